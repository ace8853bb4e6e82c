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
	"sync"

	"github.com/Fantom-foundation/smock/go/common"
	"github.com/Fantom-foundation/smock/go/contract"
	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// FallbackName names the function answering calls matching no function of
// the mocked ABI.
const FallbackName = "fallback"

// Resolve is the outcome a mock function is configured to produce.
type Resolve int

const (
	Return Resolve = iota
	Revert
)

func (r Resolve) String() string {
	switch r {
	case Return:
		return "return"
	case Revert:
		return "revert"
	}
	return fmt.Sprintf("Resolve(%d)", int(r))
}

// policy is the configured answer of a mock function. A value is either
// static or a producer function called with the decoded arguments.
type policy struct {
	resolve    Resolve
	value      any
	hasValue   bool
	configured bool
}

// MockContract is a contract whose calls are answered by configured
// policies instead of code. It embeds a handle for calling the mock.
type MockContract struct {
	*contract.Contract

	mu        sync.Mutex
	engine    *Engine
	functions map[string]*MockFunction
	selectors map[[4]byte]*MockFunction
	fallback  *MockFunction
}

func newMockContract(handle *contract.Contract) *MockContract {
	res := &MockContract{
		Contract:  handle,
		functions: map[string]*MockFunction{},
		selectors: map[[4]byte]*MockFunction{},
	}
	contractAbi := handle.ABI()
	for name := range contractAbi.Methods {
		method := contractAbi.Methods[name]
		function := &MockFunction{name: name, method: &method, mock: res}
		res.functions[name] = function
		res.selectors[[4]byte(method.ID)] = function
	}
	res.fallback = &MockFunction{name: FallbackName, mock: res}
	return res
}

// Function returns the mock of the named function. It panics if the mocked
// ABI has no such function; use Lookup to probe.
func (m *MockContract) Function(name string) *MockFunction {
	res, found := m.Lookup(name)
	if !found {
		panic(fmt.Sprintf("mock %v has no function %q", m.Address(), name))
	}
	return res
}

// Lookup returns the mock of the named function. The fallback is available
// under FallbackName.
func (m *MockContract) Lookup(name string) (*MockFunction, bool) {
	if name == FallbackName {
		return m.fallback, true
	}
	res, found := m.functions[name]
	return res, found
}

// Fallback returns the mock answering calls matching no function.
func (m *MockContract) Fallback() *MockFunction {
	return m.fallback
}

// Functions lists the names of the mocked functions in lexical order.
func (m *MockContract) Functions() []string {
	res := maps.Keys(m.functions)
	slices.Sort(res)
	return res
}

// Reset restores the default policy of all functions.
func (m *MockContract) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, function := range m.functions {
		function.policy = policy{}
	}
	m.fallback.policy = policy{}
}

// Calls returns all recorded calls to the mock in the order they were made.
func (m *MockContract) Calls() []Call {
	if m.engine == nil {
		return nil
	}
	inputs := m.engine.calldata(m.Address())
	res := make([]Call, 0, len(inputs))
	for _, input := range inputs {
		res = append(res, m.decodeCall(m.route(input), input))
	}
	return res
}

// route returns the function answering the given calldata.
func (m *MockContract) route(input []byte) *MockFunction {
	if len(input) >= 4 {
		if function, found := m.selectors[[4]byte(input[:4])]; found {
			return function
		}
	}
	return m.fallback
}

func (m *MockContract) decodeCall(function *MockFunction, input tosca.Data) Call {
	res := Call{Function: function.name, Input: input}
	if function.method == nil {
		res.Args = []any{input}
		return res
	}
	if args, err := function.method.Inputs.Unpack(input[4:]); err == nil {
		res.Args = args
	}
	return res
}

func (m *MockContract) getPolicy(function *MockFunction) policy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return function.policy
}

func (m *MockContract) setPolicy(function *MockFunction, policy policy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	function.policy = policy
}

// Call is a recorded call to a mock function.
type Call struct {
	Function string
	// Input is the raw calldata including the selector.
	Input tosca.Data
	// Args are the decoded arguments, nil if the calldata could not be
	// decoded. The fallback receives the raw calldata as its only argument.
	Args []any
}

// Hex returns the calldata as hex string.
func (c Call) Hex() string {
	return common.ToHex(c.Input)
}

// MockFunction is the mock of a single function of a MockContract.
type MockFunction struct {
	name   string
	method *abi.Method // nil for the fallback
	mock   *MockContract
	policy policy
}

func (f *MockFunction) Name() string {
	return f.name
}

// Method returns the ABI of the function, nil for the fallback.
func (f *MockFunction) Method() *abi.Method {
	return f.method
}

// Will configures the answer of the function.
func (f *MockFunction) Will() Will {
	return Will{function: f}
}

// Reset restores the default policy: return without a value.
func (f *MockFunction) Reset() {
	f.mock.setPolicy(f, policy{})
}

// Calls returns the recorded calls routed to this function. The result is
// derived from the engine's call log on every invocation.
func (f *MockFunction) Calls() []Call {
	var res []Call
	for _, call := range f.mock.Calls() {
		if call.Function == f.name {
			res = append(res, call)
		}
	}
	return res
}

// Will is the configuration handle of a MockFunction.
type Will struct {
	function *MockFunction
}

// Return answers calls with a zero filled result.
func (w Will) Return() {
	w.function.mock.setPolicy(w.function, policy{resolve: Return, configured: true})
}

// ReturnWith answers calls with the ABI encoding of the value. The value is
// either the single result, the list of all results, raw hex encoded result
// data, or a function producing one of those from the decoded arguments.
func (w Will) ReturnWith(value any) {
	w.function.mock.setPolicy(w.function, policy{resolve: Return, value: value, hasValue: true, configured: true})
}

// Revert reverts calls without revert data.
func (w Will) Revert() {
	w.function.mock.setPolicy(w.function, policy{resolve: Revert, configured: true})
}

// RevertWith reverts calls with the given reason. A hex string or byte
// slice is used as raw revert data, other strings are encoded as
// Error(string). The reason may be produced by a function.
func (w Will) RevertWith(reason any) {
	w.function.mock.setPolicy(w.function, policy{resolve: Revert, value: reason, hasValue: true, configured: true})
}
