// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package floria

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/smock/go/tosca"
)

const (
	TxGas                   = 21_000
	TxGasContractCreation   = 53_000
	TxDataNonZeroGasEIP2028 = 16
	TxDataZeroGasEIP2028    = 4
)

func init() {
	tosca.RegisterProcessorFactory("floria", func(interpreter tosca.Interpreter) tosca.Processor {
		return NewProcessor(interpreter)
	})
}

// Processor executes transactions by dispatching every call frame to an
// interpreter. Each frame is announced to the observers installed on its
// Instrumentation, and code probes, storage accesses and top-level exception
// handling are routed through the installed interceptors.
type Processor struct {
	interpreter     tosca.Interpreter
	instrumentation tosca.Instrumentation
}

// NewProcessor creates a processor running contract code on the given
// interpreter.
func NewProcessor(interpreter tosca.Interpreter) *Processor {
	return &Processor{interpreter: interpreter}
}

func (p *Processor) Instrumentation() *tosca.Instrumentation {
	return &p.instrumentation
}

// Run executes a transaction. Transactions that cannot pay for their gas or
// carry a wrong nonce fail without running any code. Errors are reserved for
// failures of the execution machinery and for exceptions the error manager
// does not classify as reverts.
func (p *Processor) Run(
	blockParams tosca.BlockParameters,
	transaction tosca.Transaction,
	context tosca.TransactionContext,
) (tosca.Receipt, error) {
	failed := tosca.Receipt{GasUsed: transaction.GasLimit}

	if err := prepayGas(transaction, context); err != nil {
		return failed, nil
	}
	gas := transaction.GasLimit - intrinsicGas(transaction)
	if gas < 0 {
		return failed, nil
	}
	if err := consumeNonce(transaction, context); err != nil {
		return failed, nil
	}

	p.instrumentation.BeforeTransaction(transaction)

	runContext := runContext{
		TransactionContext: newInstrumentedContext(context, &p.instrumentation),
		interpreter:        p.interpreter,
		instrumentation:    &p.instrumentation,
		blockParameters:    blockParams,
		transactionParameters: tosca.TransactionParameters{
			Origin:   transaction.Sender,
			GasPrice: transaction.GasPrice,
		},
	}

	kind := tosca.Call
	parameters := tosca.CallParameters{
		Sender: transaction.Sender,
		Value:  transaction.Value,
		Input:  transaction.Input,
		Gas:    gas,
	}
	if transaction.Recipient == nil {
		kind = tosca.Create
	} else {
		parameters.Recipient = *transaction.Recipient
		parameters.CodeAddress = *transaction.Recipient
	}

	result, err := runContext.dispatch(kind, parameters)
	if err != nil {
		return failed, err
	}
	if result.Exception != nil {
		classified := p.instrumentation.ErrorManager()(result.Exception)
		if classified != nil && !errors.Is(classified, tosca.ErrExecutionReverted) {
			return failed, classified
		}
		result.Success = false
	}

	receipt := tosca.Receipt{
		Success:         result.Success,
		GasUsed:         gasUsed(transaction, result.GasLeft),
		ContractAddress: result.CreatedAddress,
		Output:          result.Output,
	}
	if result.Success {
		receipt.Logs = context.GetLogs()
	}
	return receipt, nil
}

// gasUsed charges the gas consumed, minus a refund of 90% of the unused gas
// for transactions from real senders.
func gasUsed(transaction tosca.Transaction, gasLeft tosca.Gas) tosca.Gas {
	if transaction.Sender != (tosca.Address{}) {
		gasLeft -= gasLeft / 10
	}
	return transaction.GasLimit - gasLeft
}

// intrinsicGas is charged before any code runs.
func intrinsicGas(transaction tosca.Transaction) tosca.Gas {
	gas := tosca.Gas(TxGas)
	if transaction.Recipient == nil {
		gas = TxGasContractCreation
	}
	for _, b := range transaction.Input {
		if b == 0 {
			gas += TxDataZeroGasEIP2028
		} else {
			gas += TxDataNonZeroGasEIP2028
		}
	}
	return gas
}

func consumeNonce(transaction tosca.Transaction, context tosca.TransactionContext) error {
	nonce := context.GetNonce(transaction.Sender)
	if transaction.Nonce != nonce {
		return fmt.Errorf("nonce mismatch, transaction has %d, account has %d", transaction.Nonce, nonce)
	}
	context.SetNonce(transaction.Sender, nonce+1)
	return nil
}

// prepayGas takes the price of the full gas limit from the sender.
func prepayGas(transaction tosca.Transaction, context tosca.TransactionContext) error {
	price := transaction.GasPrice.Scale(uint64(transaction.GasLimit))
	balance := context.GetBalance(transaction.Sender)
	if balance.Cmp(price) < 0 {
		return fmt.Errorf("insufficient balance to buy gas, have %v, need %v", balance, price)
	}
	context.SetBalance(transaction.Sender, tosca.Sub(balance, price))
	return nil
}
