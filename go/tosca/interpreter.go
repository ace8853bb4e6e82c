// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tosca

//go:generate mockgen -source interpreter.go -destination interpreter_mock.go -package tosca

// Interpreter executes the code of a single call frame. Nested calls and
// creations are handed back to the RunContext of the parameters, so the
// processor sees every frame.
type Interpreter interface {
	// Run executes params.Code. Failures of the executed code, reverts and
	// out-of-gas included, are reported in the result; an error means the
	// interpreter itself could not process the frame.
	Run(Parameters) (Result, error)
}

// Parameters describe the frame to execute.
type Parameters struct {
	BlockParameters
	TransactionParameters
	Context   RunContext
	Kind      CallKind
	Static    bool
	Depth     int
	Gas       Gas
	Recipient Address
	Sender    Address
	Input     Data
	Value     Value
	CodeHash  *Hash
	Code      Code
}

// BlockParameters describe the block a transaction is executed in.
type BlockParameters struct {
	ChainID     Word
	BlockNumber int64
	Timestamp   int64
	Coinbase    Address
	GasLimit    Gas
	BaseFee     Value
	Revision    Revision
}

// TransactionParameters are the per-transaction inputs visible to code.
type TransactionParameters struct {
	Origin   Address
	GasPrice Value
}

// RunContext is the state and call dispatch an interpreter works on.
type RunContext interface {
	TransactionContext

	Call(kind CallKind, parameter CallParameters) (CallResult, error)
}

// TransactionContext buffers the state changes of one transaction. Snapshots
// allow rolling back the changes of failed frames.
type TransactionContext interface {
	WorldState

	CreateSnapshot() Snapshot
	RestoreSnapshot(Snapshot)

	EmitLog(Log)
	GetLogs() []Log
}

// Result is the outcome of executing a frame.
type Result struct {
	Success   bool // unset for reverts and failures
	Output    Data
	GasLeft   Gas
	GasRefund Gas
}

type (
	// Data is calldata, return data or revert data.
	Data []byte
	// Gas is signed to simplify underflow checks.
	Gas int64
	// Snapshot identifies a rollback point of a TransactionContext.
	Snapshot int
)

// Log is an event emitted by executed code.
type Log struct {
	Address Address
	Topics  []Hash
	Data    Data
}

// CallKind distinguishes the message types of the EVM.
type CallKind int

const (
	Call CallKind = iota
	DelegateCall
	StaticCall
	CallCode
	Create
	Create2
)

// CallParameters describe a nested message issued by running code.
type CallParameters struct {
	Sender      Address
	Recipient   Address // unused by creates
	Value       Value   // zero for static calls
	Input       Data    // init code for creates
	Gas         Gas
	Salt        Hash    // CREATE2 only
	CodeAddress Address // code source of delegate calls and call codes
}

// CallResult is what a nested message reports back to its caller.
type CallResult struct {
	Output         Data
	GasLeft        Gas
	GasRefund      Gas
	CreatedAddress Address // set by successful creates
	Success        bool
}
