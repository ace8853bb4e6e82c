// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package chain provides an in-memory chain executing transactions on a
// transaction processor. It is the host the mocking and storage override
// engines attach to in tests.
package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/Fantom-foundation/smock/go/interpreter/evm"
	"github.com/Fantom-foundation/smock/go/processor/floria"
	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/log"
)

const (
	DefaultChainID  = 31337
	DefaultGasLimit = tosca.Gas(30_000_000)
)

// Chain holds a world state and applies transactions to it one at a time.
type Chain struct {
	mu        sync.Mutex
	processor tosca.Processor
	block     tosca.BlockParameters
	state     WorldState
	logger    log.Logger
}

type config struct {
	interpreter tosca.Interpreter
	processor   tosca.Processor
	block       tosca.BlockParameters
	logger      log.Logger
}

// Option configures a Chain.
type Option func(*config)

// WithInterpreter sets the interpreter of the default floria processor.
func WithInterpreter(interpreter tosca.Interpreter) Option {
	return func(c *config) {
		c.interpreter = interpreter
	}
}

// WithProcessor replaces the default processor. Mocks and storage overrides
// require the processor to be tosca.Instrumented.
func WithProcessor(processor tosca.Processor) Option {
	return func(c *config) {
		c.processor = processor
	}
}

// WithBlockParameters sets the parameters of the first block.
func WithBlockParameters(block tosca.BlockParameters) Option {
	return func(c *config) {
		c.block = block
	}
}

func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// DefaultBlockParameters returns the parameters used when none are given.
func DefaultBlockParameters() tosca.BlockParameters {
	var chainID tosca.Word
	chainID[30] = DefaultChainID >> 8
	chainID[31] = DefaultChainID & 0xff
	return tosca.BlockParameters{
		ChainID:     chainID,
		BlockNumber: 1,
		Timestamp:   1,
		GasLimit:    DefaultGasLimit,
		Revision:    tosca.R13_Cancun,
	}
}

// New creates an empty chain. By default transactions are executed by the
// floria processor on the built-in EVM interpreter.
func New(options ...Option) *Chain {
	config := config{
		block:  DefaultBlockParameters(),
		logger: log.Root(),
	}
	for _, option := range options {
		option(&config)
	}
	if config.processor == nil {
		if config.interpreter == nil {
			config.interpreter = evm.NewInterpreter()
		}
		config.processor = floria.NewProcessor(config.interpreter)
	}
	return &Chain{
		processor: config.processor,
		block:     config.block,
		state:     WorldState{},
		logger:    config.logger,
	}
}

// Processor returns the processor executing the transactions of this chain.
func (c *Chain) Processor() tosca.Processor {
	return c.processor
}

// BlockParameters returns the parameters of the next block.
func (c *Chain) BlockParameters() tosca.BlockParameters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block
}

// SendTransaction executes the transaction and commits its effects. The
// nonce is filled in from the sender's account and a zero gas limit is
// replaced by the block gas limit. Every transaction is mined in its own
// block.
func (c *Chain) SendTransaction(ctx context.Context, transaction tosca.Transaction) (tosca.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return tosca.Receipt{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	receipt, state, err := c.run(transaction)
	if err != nil {
		return tosca.Receipt{}, err
	}
	c.state = state
	c.block.BlockNumber++
	c.block.Timestamp++
	if instrumented, ok := c.processor.(tosca.Instrumented); ok {
		instrumented.Instrumentation().Commit()
	}
	return receipt, nil
}

// Call executes the transaction without committing its effects. Commit
// callbacks of the processor's instrumentation are not run.
func (c *Chain) Call(ctx context.Context, transaction tosca.Transaction) (tosca.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return tosca.Receipt{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	receipt, _, err := c.run(transaction)
	return receipt, err
}

func (c *Chain) run(transaction tosca.Transaction) (tosca.Receipt, WorldState, error) {
	transaction.Nonce = c.state[transaction.Sender].Nonce
	if transaction.GasLimit == 0 {
		transaction.GasLimit = c.block.GasLimit
	}
	txContext := newTransactionContext(c.state)
	receipt, err := c.processor.Run(c.block, transaction, txContext)
	if err != nil {
		c.logger.Debug("Transaction aborted", "sender", transaction.Sender, "err", err)
		return tosca.Receipt{}, nil, fmt.Errorf("transaction aborted: %w", err)
	}
	c.logger.Trace("Transaction executed",
		"sender", transaction.Sender, "recipient", transaction.Recipient,
		"success", receipt.Success, "gas", receipt.GasUsed)
	return receipt, txContext.commit(), nil
}

func (c *Chain) AccountExists(addr tosca.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	account := c.state[addr]
	return !account.IsEmpty()
}

func (c *Chain) GetBalance(addr tosca.Address) tosca.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state[addr].Balance
}

func (c *Chain) GetNonce(addr tosca.Address) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state[addr].Nonce
}

// GetCode returns the code deployed at the address as seen by executed
// code, that is, after passing the installed code interceptors.
func (c *Chain) GetCode(addr tosca.Address) tosca.Code {
	c.mu.Lock()
	defer c.mu.Unlock()
	reader := tosca.CodeReader(newTransactionContext(c.state).GetCode)
	if instrumented, ok := c.processor.(tosca.Instrumented); ok {
		reader = instrumented.Instrumentation().Code(reader)
	}
	return reader(addr)
}

// GetStorage returns the value of a storage slot as seen by executed code,
// that is, after passing the installed storage interceptors.
func (c *Chain) GetStorage(addr tosca.Address, key tosca.Key) tosca.Word {
	c.mu.Lock()
	defer c.mu.Unlock()
	var storage tosca.StorageAccessor = newTransactionContext(c.state)
	if instrumented, ok := c.processor.(tosca.Instrumented); ok {
		storage = instrumented.Instrumentation().Storage(storage)
	}
	return storage.GetStorage(addr, key)
}

// GetRawStorage returns the committed value of a storage slot, ignoring
// any interceptors.
func (c *Chain) GetRawStorage(addr tosca.Address, key tosca.Key) tosca.Word {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state[addr].Storage[key]
}

func (c *Chain) SetBalance(addr tosca.Address, value tosca.Value) {
	c.modify(addr, func(account *Account) { account.Balance = value })
}

func (c *Chain) SetNonce(addr tosca.Address, nonce uint64) {
	c.modify(addr, func(account *Account) { account.Nonce = nonce })
}

func (c *Chain) SetCode(addr tosca.Address, code tosca.Code) {
	c.modify(addr, func(account *Account) { account.Code = append(tosca.Code(nil), code...) })
}

func (c *Chain) SetStorage(addr tosca.Address, key tosca.Key, value tosca.Word) {
	c.modify(addr, func(account *Account) {
		if account.Storage == nil {
			account.Storage = Storage{}
		}
		account.Storage[key] = value
	})
}

func (c *Chain) modify(addr tosca.Address, update func(*Account)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	account := c.state[addr]
	update(&account)
	c.state[addr] = account
}

// State returns a copy of the committed world state.
func (c *Chain) State() WorldState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}
