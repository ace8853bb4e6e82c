// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package smock

import (
	"fmt"
	"reflect"

	"github.com/Fantom-foundation/smock/go/common"
	"github.com/Fantom-foundation/smock/go/contract"
	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultReturnSize is the size of the zero filled result of functions that
// return without a configured value. It is large enough for callers to
// decode any static result from it.
const DefaultReturnSize = 2048

var (
	errorSelector = crypto.Keccak256([]byte("Error(string)"))[:4]
	stringType    = mustNewType("string")
)

func mustNewType(name string) abi.Type {
	res, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(fmt.Sprintf("invalid ABI type %s: %v", name, err))
	}
	return res
}

// resolution is the answer to a single call to a mock.
type resolution struct {
	Function string
	Resolve  Resolve
	Output   tosca.Data
}

// resolve computes the answer of the mock to the given calldata.
func (m *MockContract) resolve(input tosca.Data) (resolution, error) {
	function := m.route(input)
	policy := m.getPolicy(function)
	res := resolution{Function: function.name, Resolve: policy.resolve}

	// An unconfigured fallback answers with empty data.
	if function.method == nil && !policy.configured {
		return res, nil
	}

	args, err := function.arguments(input)
	if err != nil {
		return res, err
	}

	value := policy.value
	if policy.hasValue && isProducer(value) {
		value, err = produce(value, args)
		if err != nil {
			return res, fmt.Errorf("value producer of %s failed: %w", function.name, err)
		}
	}

	if policy.resolve == Revert {
		res.Output, err = encodeRevert(function.name, value)
		return res, err
	}
	if !policy.hasValue {
		res.Output = make(tosca.Data, DefaultReturnSize)
		return res, nil
	}
	res.Output, err = encodeReturn(function, value)
	return res, err
}

// arguments decodes the arguments of a call. The fallback receives the raw
// calldata.
func (f *MockFunction) arguments(input tosca.Data) ([]any, error) {
	if f.method == nil {
		return []any{input}, nil
	}
	res, err := f.method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode arguments of %s: %w", f.name, err)
	}
	return res, nil
}

func encodeRevert(function string, reason any) (tosca.Data, error) {
	switch v := reason.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case tosca.Data:
		return v, nil
	case string:
		if common.IsHex(v) {
			return common.FromHex(v)
		}
		return EncodeRevertReason(v)
	case error:
		return EncodeRevertReason(v.Error())
	}
	return nil, fmt.Errorf("%w for %s: revert reason must be a string, got %T", ErrEncoding, function, reason)
}

// EncodeRevertReason encodes the reason as Error(string) revert data.
func EncodeRevertReason(reason string) (tosca.Data, error) {
	encoded, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	if err != nil {
		return nil, err
	}
	return append(append(tosca.Data{}, errorSelector...), encoded...), nil
}

// encodeReturn encodes the value as the result of the function. The value
// is tried as the single result first, then as the list of all results and
// finally as raw result data.
func encodeReturn(function *MockFunction, value any) (tosca.Data, error) {
	if value == nil {
		return tosca.Data{}, nil
	}
	var cause error
	if function.method != nil {
		outputs := function.method.Outputs
		if len(outputs) == 1 {
			res, err := pack(outputs, value)
			if err == nil {
				return res, nil
			}
			cause = err
		}
		if items, ok := asResults(outputs, value); ok {
			res, err := pack(outputs, items...)
			if err == nil {
				return res, nil
			}
			cause = err
		}
	}
	switch v := value.(type) {
	case []byte:
		return v, nil
	case tosca.Data:
		return v, nil
	case string:
		if common.IsHex(v) {
			return common.FromHex(v)
		}
	}
	if cause == nil {
		cause = fmt.Errorf("unsupported value %T", value)
	}
	return nil, fmt.Errorf("%w for %s: %v", ErrEncoding, function.name, cause)
}

func pack(outputs abi.Arguments, values ...any) (tosca.Data, error) {
	converted, err := contract.Convert(outputs, values...)
	if err != nil {
		return nil, err
	}
	return outputs.Pack(converted...)
}

// asResults interprets the value as the list of all results, given either
// positionally or as a map keyed by result names.
func asResults(outputs abi.Arguments, value any) ([]any, bool) {
	switch value.(type) {
	case []byte, tosca.Data, string:
		return nil, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		res := make([]any, rv.Len())
		for i := range res {
			res[i] = rv.Index(i).Interface()
		}
		return res, true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || rv.Len() != len(outputs) {
			return nil, false
		}
		res := make([]any, len(outputs))
		for i, output := range outputs {
			entry := rv.MapIndex(reflect.ValueOf(output.Name).Convert(rv.Type().Key()))
			if output.Name == "" || !entry.IsValid() {
				return nil, false
			}
			res[i] = entry.Interface()
		}
		return res, true
	}
	return nil, false
}
