// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package contract

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/Fantom-foundation/smock/go/common"
	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/accounts/abi"
	geth "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Convert converts loosely typed values into the Go types expected by the
// ABI packer for the given arguments. Values already of the expected type
// are passed through.
func Convert(arguments abi.Arguments, values ...any) ([]any, error) {
	if want, got := len(arguments), len(values); want != got {
		return nil, fmt.Errorf("argument count mismatch: expected %d, got %d", want, got)
	}
	res := make([]any, len(values))
	for i, value := range values {
		converted, err := ConvertValue(arguments[i].Type, value)
		if err != nil {
			name := arguments[i].Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		res[i] = converted
	}
	return res, nil
}

// ConvertValue converts a single value to the Go type used for typ.
// Integers accept Go integers, big and uint256 integers, decimal and hex
// strings, and integral JSON numbers. Tuples accept maps keyed by component
// name, positional slices and structs with matching field names.
func ConvertValue(typ abi.Type, value any) (any, error) {
	res, err := convert(typ, value)
	if err != nil {
		return nil, err
	}
	return res.Interface(), nil
}

var bigIntType = reflect.TypeOf(&big.Int{})

func convert(typ abi.Type, value any) (reflect.Value, error) {
	target := typ.GetType()
	if value == nil {
		return reflect.Value{}, fmt.Errorf("missing value for %v", typ)
	}
	if rv := reflect.ValueOf(value); rv.Type() == target {
		return rv, nil
	}

	switch typ.T {
	case abi.IntTy, abi.UintTy:
		n, err := toBig(value)
		if err != nil {
			return reflect.Value{}, err
		}
		if err := checkIntRange(typ, n); err != nil {
			return reflect.Value{}, err
		}
		if target == bigIntType {
			return reflect.ValueOf(n), nil
		}
		res := reflect.New(target).Elem()
		if typ.T == abi.UintTy {
			res.SetUint(n.Uint64())
		} else {
			res.SetInt(n.Int64())
		}
		return res, nil

	case abi.BoolTy:
		switch v := value.(type) {
		case string:
			switch strings.ToLower(v) {
			case "true", "1":
				return reflect.ValueOf(true), nil
			case "false", "0":
				return reflect.ValueOf(false), nil
			}
		default:
			if n, err := toBig(value); err == nil && (n.Sign() == 0 || n.Cmp(big.NewInt(1)) == 0) {
				return reflect.ValueOf(n.Sign() != 0), nil
			}
		}
		return reflect.Value{}, fmt.Errorf("cannot convert %v (%T) to bool", value, value)

	case abi.StringTy:
		switch v := value.(type) {
		case string:
			return reflect.ValueOf(v), nil
		case []byte:
			return reflect.ValueOf(string(v)), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot convert %T to string", value)

	case abi.AddressTy:
		switch v := value.(type) {
		case tosca.Address:
			return reflect.ValueOf(geth.Address(v)), nil
		case string:
			address, err := common.ParseAddress(v)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(geth.Address(address)), nil
		case [20]byte:
			return reflect.ValueOf(geth.Address(v)), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot convert %T to address", value)

	case abi.BytesTy:
		data, err := toBytes(value)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(data), nil

	case abi.FixedBytesTy, abi.FunctionTy:
		size := typ.Size
		if typ.T == abi.FunctionTy {
			size = 24
		}
		data, err := toBytes(value)
		if err != nil {
			return reflect.Value{}, err
		}
		if len(data) > size {
			return reflect.Value{}, fmt.Errorf("value of %d bytes exceeds %v", len(data), typ)
		}
		res := reflect.New(target).Elem()
		reflect.Copy(res, reflect.ValueOf(data))
		return res, nil

	case abi.SliceTy, abi.ArrayTy:
		items, err := toItems(value)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot convert %T to %v: %w", value, typ, err)
		}
		var res reflect.Value
		if typ.T == abi.SliceTy {
			res = reflect.MakeSlice(target, len(items), len(items))
		} else {
			if len(items) != typ.Size {
				return reflect.Value{}, fmt.Errorf("expected %d elements for %v, got %d", typ.Size, typ, len(items))
			}
			res = reflect.New(target).Elem()
		}
		for i, item := range items {
			converted, err := convert(*typ.Elem, item)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			res.Index(i).Set(converted)
		}
		return res, nil

	case abi.TupleTy:
		components, err := toComponents(typ, value)
		if err != nil {
			return reflect.Value{}, err
		}
		res := reflect.New(target).Elem()
		for i, elem := range typ.TupleElems {
			converted, err := convert(*elem, components[i])
			if err != nil {
				return reflect.Value{}, fmt.Errorf("component %s: %w", typ.TupleRawNames[i], err)
			}
			res.Field(i).Set(converted)
		}
		return res, nil
	}
	return reflect.Value{}, fmt.Errorf("unsupported type %v", typ)
}

func toBig(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case *uint256.Int:
		return v.ToBig(), nil
	case uint256.Int:
		return v.ToBig(), nil
	case tosca.Value:
		return v.ToBig(), nil
	case tosca.Word:
		return new(big.Int).SetBytes(v[:]), nil
	case json.Number:
		return toBig(string(v))
	case float64:
		if v != float64(int64(v)) {
			return nil, fmt.Errorf("cannot convert non-integral number %v to integer", v)
		}
		return big.NewInt(int64(v)), nil
	case string:
		text := strings.TrimSpace(v)
		res, ok := new(big.Int).SetString(text, 0)
		if !ok {
			return nil, fmt.Errorf("cannot convert %q to integer", v)
		}
		return res, nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("cannot convert %T to integer", value)
}

func checkIntRange(typ abi.Type, n *big.Int) error {
	if typ.T == abi.UintTy {
		if n.Sign() < 0 || n.BitLen() > typ.Size {
			return fmt.Errorf("value %v out of range for %v", n, typ)
		}
		return nil
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(typ.Size-1))
	if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
		return fmt.Errorf("value %v out of range for %v", n, typ)
	}
	return nil
}

func toBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case tosca.Data:
		return v, nil
	case tosca.Code:
		return v, nil
	case string:
		if !common.IsHex(v) {
			return nil, fmt.Errorf("expected 0x-prefixed hex string, got %q", v)
		}
		return common.FromHex(v)
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		res := make([]byte, rv.Len())
		for i := range res {
			res[i] = byte(rv.Index(i).Uint())
		}
		return res, nil
	}
	return nil, fmt.Errorf("cannot convert %T to bytes", value)
}

func toItems(value any) ([]any, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("not a list")
	}
	res := make([]any, rv.Len())
	for i := range res {
		res[i] = rv.Index(i).Interface()
	}
	return res, nil
}

func toComponents(typ abi.Type, value any) ([]any, error) {
	names := typ.TupleRawNames
	res := make([]any, len(names))
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("tuple maps need string keys, got %v", rv.Type().Key())
		}
		for i, name := range names {
			entry := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if !entry.IsValid() {
				return nil, fmt.Errorf("missing component %s of %v", name, typ)
			}
			res[i] = entry.Interface()
		}
		if rv.Len() != len(names) {
			return nil, fmt.Errorf("expected %d components for %v, got %d", len(names), typ, rv.Len())
		}
	case reflect.Slice, reflect.Array:
		if rv.Len() != len(names) {
			return nil, fmt.Errorf("expected %d components for %v, got %d", len(names), typ, rv.Len())
		}
		for i := range res {
			res[i] = rv.Index(i).Interface()
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, fmt.Errorf("nil value for %v", typ)
		}
		return toComponents(typ, rv.Elem().Interface())
	case reflect.Struct:
		for i, name := range names {
			field := rv.FieldByName(abi.ToCamelCase(name))
			if !field.IsValid() {
				return nil, fmt.Errorf("missing field %s for %v", abi.ToCamelCase(name), typ)
			}
			res[i] = field.Interface()
		}
	default:
		return nil, fmt.Errorf("cannot convert %T to %v", value, typ)
	}
	return res, nil
}
