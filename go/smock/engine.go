// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package smock replaces contracts with programmable mocks. An Engine
// attaches to an instrumented processor, records the calls addressed to
// registered mocks and answers them with the configured return or revert
// data instead of executing contract code.
package smock

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Fantom-foundation/smock/go/common"
	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"pgregory.net/rand"
)

// CallHistory selects how long recorded calls are retained.
type CallHistory int

const (
	// PerTransaction clears the recorded calls at the start of every
	// transaction.
	PerTransaction CallHistory = iota
	// Retained keeps the recorded calls for the lifetime of the engine.
	Retained
)

func (h CallHistory) String() string {
	switch h {
	case PerTransaction:
		return "per-transaction"
	case Retained:
		return "retained"
	}
	return fmt.Sprintf("CallHistory(%d)", int(h))
}

// stubCode is reported as the code of a mock while one of its frames runs.
var stubCode = tosca.Code{0x00} // STOP

// Engine intercepts the calls to registered mocks on one processor.
type Engine struct {
	mu       sync.Mutex
	mocks    map[tosca.Address]*MockContract
	calls    map[tosca.Address][]tosca.Data
	inFlight []frame
	failure  error

	history     CallHistory
	visibleCode bool
	logger      log.Logger

	addressesMu sync.Mutex
	addresses   *common.AddressAllocator
}

// frame is a call to a mock that has started but not yet ended. A frame is
// reached once the processor probes its code, i.e. after value transfer and
// precompile dispatch. Frames failing before that are left as they are.
type frame struct {
	message *tosca.Message
	address tosca.Address
	reached bool
}

type config struct {
	logger      log.Logger
	history     CallHistory
	random      *rand.Rand
	visibleCode bool
}

// Option configures an Engine. Options are only effective on the call
// creating the engine of a processor.
type Option func(*config)

func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithCallHistory sets the retention of recorded calls, PerTransaction by
// default.
func WithCallHistory(history CallHistory) Option {
	return func(c *config) {
		c.history = history
	}
}

// WithRandom sets the source of generated mock addresses.
func WithRandom(random *rand.Rand) Option {
	return func(c *config) {
		c.random = random
	}
}

// WithVisibleCode makes mocks report their stub code to every code probe,
// not only while one of their own frames is running. Callers checking the
// code size of their targets before calling need this.
func WithVisibleCode() Option {
	return func(c *config) {
		c.visibleCode = true
	}
}

type engineKey struct{}

// Initialize returns the engine of the given processor, installing it on
// first use. Repeated calls for the same processor return the same engine
// and install nothing.
func Initialize(processor tosca.Processor, options ...Option) (*Engine, error) {
	instrumented, ok := processor.(tosca.Instrumented)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrIntegration, processor)
	}
	instrumentation := instrumented.Instrumentation()
	if instrumentation == nil {
		return nil, fmt.Errorf("%w: %T has no instrumentation", ErrIntegration, processor)
	}
	res := instrumentation.Attach(engineKey{}, func() any {
		engine := newEngine(options...)
		instrumentation.Observe(engine)
		instrumentation.InterceptCode(engine.interceptCode)
		instrumentation.ManageErrors(engine.manageErrors)
		engine.logger.Debug("Call interception installed", "history", engine.history)
		return engine
	})
	return res.(*Engine), nil
}

func newEngine(options ...Option) *Engine {
	config := config{logger: log.Root()}
	for _, option := range options {
		option(&config)
	}
	res := &Engine{
		mocks:       map[tosca.Address]*MockContract{},
		calls:       map[tosca.Address][]tosca.Data{},
		history:     config.history,
		visibleCode: config.visibleCode,
		logger:      config.logger,
	}
	res.addresses = common.NewAddressAllocator(config.random, res.IsRegistered)
	return res
}

// Register adds the mock, replacing any mock registered for its address.
func (e *Engine) Register(mock *MockContract) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mocks[mock.Address()] = mock
	mock.engine = e
	e.logger.Debug("Mock registered", "address", common.ChecksumAddress(mock.Address()))
}

// Deregister removes the mock registered for the address, if any.
func (e *Engine) Deregister(address tosca.Address) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.mocks, address)
}

// IsRegistered reports whether a mock is registered for the address.
func (e *Engine) IsRegistered(address tosca.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, found := e.mocks[address]
	return found
}

// Mocks returns the addresses of all registered mocks in ascending order.
func (e *Engine) Mocks() []tosca.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	res := maps.Keys(e.mocks)
	slices.SortFunc(res, func(a, b tosca.Address) int {
		return slices.Compare(a[:], b[:])
	})
	return res
}

// Err returns the first failure to answer a call to a mock in the current
// transaction. Failures in nested frames only revert that frame, so they
// are kept here to be inspected by the test.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failure
}

// calldata returns the recorded inputs of calls to the address.
func (e *Engine) calldata(address tosca.Address) []tosca.Data {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.calls[address])
}

func (e *Engine) BeforeTransaction(tosca.Transaction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.history == PerTransaction {
		e.calls = map[tosca.Address][]tosca.Data{}
	}
	e.inFlight = e.inFlight[:0]
	e.failure = nil
}

func (e *Engine) BeforeMessage(message *tosca.Message) {
	if message.Recipient == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	address := *message.Recipient
	if _, found := e.mocks[address]; !found {
		return
	}
	e.inFlight = append(e.inFlight, frame{message: message, address: address})
}

func (e *Engine) AfterMessage(message *tosca.Message, result *tosca.MessageResult) {
	e.mu.Lock()
	if created := result.CreatedAddress; created != nil {
		if _, found := e.mocks[*created]; found {
			delete(e.mocks, *created)
			e.logger.Debug("Mock replaced by deployed code", "address", common.ChecksumAddress(*created))
		}
		e.mu.Unlock()
		return
	}
	if len(e.inFlight) == 0 || e.inFlight[len(e.inFlight)-1].message != message {
		e.mu.Unlock()
		return
	}
	top := e.inFlight[len(e.inFlight)-1]
	e.inFlight = e.inFlight[:len(e.inFlight)-1]
	mock, found := e.mocks[top.address]
	e.mu.Unlock()
	if !found || !top.reached {
		return
	}

	// Resolution runs value producers, which may call back into the engine.
	resolution, err := mock.resolve(message.Input)
	if err != nil {
		e.logger.Error("Failed to answer call to mock", "address", common.ChecksumAddress(top.address), "err", err)
		e.mu.Lock()
		if e.failure == nil {
			e.failure = err
		}
		e.mu.Unlock()
		result.Success = false
		result.Output = nil
		result.Exception = err
		return
	}
	e.logger.Trace("Call answered by mock",
		"address", common.ChecksumAddress(top.address), "function", resolution.Function,
		"resolve", resolution.Resolve, "output", len(resolution.Output))
	result.Output = resolution.Output
	if resolution.Resolve == Revert {
		result.Success = false
		result.Exception = ErrMockRevert
	} else {
		result.Success = true
		result.Exception = nil
	}
}

func (e *Engine) interceptCode(next tosca.CodeReader) tosca.CodeReader {
	return func(address tosca.Address) tosca.Code {
		if e.reportsStub(address) {
			return stubCode
		}
		return next(address)
	}
}

func (e *Engine) reportsStub(address tosca.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n := len(e.inFlight); n > 0 && e.inFlight[n-1].address == address {
		if top := &e.inFlight[n-1]; !top.reached {
			top.reached = true
			e.calls[address] = append(e.calls[address], slices.Clone(top.message.Input))
		}
		return true
	}
	if e.visibleCode {
		_, found := e.mocks[address]
		return found
	}
	return false
}

func (e *Engine) manageErrors(next tosca.ErrorManager) tosca.ErrorManager {
	return func(exception error) error {
		if errors.Is(exception, ErrMockRevert) {
			return tosca.ErrExecutionReverted
		}
		return next(exception)
	}
}

// newAddress allocates an address that is neither registered nor reported
// as in use.
func (e *Engine) newAddress(inUse func(tosca.Address) bool) tosca.Address {
	e.addressesMu.Lock()
	defer e.addressesMu.Unlock()
	for {
		address := e.addresses.Next()
		if inUse == nil || !inUse(address) {
			return address
		}
	}
}
