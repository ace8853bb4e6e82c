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

import "sync"

//go:generate mockgen -source lifecycle.go -destination lifecycle_mock.go -package tosca

// Message describes a single call frame as it is announced to lifecycle
// observers before the frame starts executing.
type Message struct {
	Kind        CallKind
	Depth       int
	Sender      Address
	Recipient   *Address // nil for contract creations
	CodeAddress Address
	Input       Data
	Value       Value
	Gas         Gas
}

// MessageResult is the in-flight result of a call frame. Observers may modify
// it in AfterMessage; the processor continues with whatever it holds after
// all observers returned.
type MessageResult struct {
	Success        bool
	Output         Data
	GasLeft        Gas
	GasRefund      Gas
	CreatedAddress *Address // set if the frame deployed a contract
	// Exception marks the frame as abnormally terminated. A frame with an
	// exception is rolled back. For the outermost frame the exception is
	// classified by the processor's ErrorManager.
	Exception error
}

// LifecycleObserver receives the transaction and message events of an
// instrumented processor. Message events are strictly nested: every
// BeforeMessage is matched by exactly one AfterMessage, and frames end in the
// reverse order they started.
type LifecycleObserver interface {
	BeforeTransaction(Transaction)
	BeforeMessage(*Message)
	AfterMessage(*Message, *MessageResult)
}

// CodeReader answers the "which code is deployed at this address" probe.
type CodeReader func(Address) Code

// StorageAccessor is the storage slice of a WorldState.
type StorageAccessor interface {
	GetStorage(Address, Key) Word
	SetStorage(Address, Key, Word) StorageStatus
}

// ErrorManager classifies the exception of an outermost call frame. Returning
// nil or ErrExecutionReverted turns it into an ordinary failed receipt, any
// other error aborts the transaction with that error.
type ErrorManager func(exception error) error

// Instrumented is implemented by processors offering interception points.
type Instrumented interface {
	Instrumentation() *Instrumentation
}

// Instrumentation collects the observers and interceptors installed on a
// processor. Interceptors are composed as middleware around the processor's
// own implementation; the most recently installed one runs first.
type Instrumentation struct {
	mu          sync.Mutex
	attachments map[any]any

	observers []LifecycleObserver
	code      []func(CodeReader) CodeReader
	storage   []func(StorageAccessor) StorageAccessor
	errors    []func(ErrorManager) ErrorManager
	commits   []func()
}

// Attach returns the value attached under key, creating and attaching it
// with create on first use. Components installing interceptors use it to
// make their installation idempotent.
func (i *Instrumentation) Attach(key any, create func() any) any {
	i.mu.Lock()
	defer i.mu.Unlock()
	if res, found := i.attachments[key]; found {
		return res
	}
	if i.attachments == nil {
		i.attachments = map[any]any{}
	}
	res := create()
	i.attachments[key] = res
	return res
}

// Observe adds an observer for transaction and message events.
func (i *Instrumentation) Observe(observer LifecycleObserver) {
	i.observers = append(i.observers, observer)
}

// InterceptCode wraps the code probe of the processor.
func (i *Instrumentation) InterceptCode(interceptor func(next CodeReader) CodeReader) {
	i.code = append(i.code, interceptor)
}

// InterceptStorage wraps the storage reads and writes of executed code.
func (i *Instrumentation) InterceptStorage(interceptor func(next StorageAccessor) StorageAccessor) {
	i.storage = append(i.storage, interceptor)
}

// ManageErrors wraps the top-level exception classification.
func (i *Instrumentation) ManageErrors(manager func(next ErrorManager) ErrorManager) {
	i.errors = append(i.errors, manager)
}

// OnCommit adds a callback run whenever the host persists the effects of a
// transaction executed by the processor. Runs that are only simulated, e.g.
// eth_call style executions, are never committed.
func (i *Instrumentation) OnCommit(callback func()) {
	i.commits = append(i.commits, callback)
}

// Commit is called by hosts after persisting the state of the last
// transaction run by the processor.
func (i *Instrumentation) Commit() {
	for _, callback := range i.commits {
		callback()
	}
}

func (i *Instrumentation) BeforeTransaction(transaction Transaction) {
	for _, observer := range i.observers {
		observer.BeforeTransaction(transaction)
	}
}

func (i *Instrumentation) BeforeMessage(message *Message) {
	for _, observer := range i.observers {
		observer.BeforeMessage(message)
	}
}

func (i *Instrumentation) AfterMessage(message *Message, result *MessageResult) {
	for _, observer := range i.observers {
		observer.AfterMessage(message, result)
	}
}

// Code composes the installed code interceptors around base.
func (i *Instrumentation) Code(base CodeReader) CodeReader {
	res := base
	for _, interceptor := range i.code {
		res = interceptor(res)
	}
	return res
}

// Storage composes the installed storage interceptors around base.
func (i *Instrumentation) Storage(base StorageAccessor) StorageAccessor {
	res := base
	for _, interceptor := range i.storage {
		res = interceptor(res)
	}
	return res
}

// ErrorManager composes the installed error managers around the identity
// classification.
func (i *Instrumentation) ErrorManager() ErrorManager {
	var res ErrorManager = func(exception error) error { return exception }
	for _, manager := range i.errors {
		res = manager(res)
	}
	return res
}
