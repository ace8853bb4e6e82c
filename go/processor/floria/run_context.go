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
	"github.com/Fantom-foundation/smock/go/tosca"

	// geth dependencies
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	MaxRecursiveDepth = 1024

	maxCodeSize          = 24576
	createGasCostPerByte = 200
)

var emptyCodeHash = tosca.Hash(crypto.Keccak256(nil))

// runContext is handed to the interpreter of every frame. It is passed by
// value, so depth and static only grow along the current call path.
type runContext struct {
	tosca.TransactionContext
	interpreter           tosca.Interpreter
	instrumentation       *tosca.Instrumentation
	blockParameters       tosca.BlockParameters
	transactionParameters tosca.TransactionParameters
	depth                 int
	static                bool
}

func (r runContext) Call(kind tosca.CallKind, parameters tosca.CallParameters) (tosca.CallResult, error) {
	result, err := r.dispatch(kind, parameters)
	res := tosca.CallResult{
		Output:    result.Output,
		GasLeft:   result.GasLeft,
		GasRefund: result.GasRefund,
		Success:   result.Success,
	}
	if result.CreatedAddress != nil {
		res.CreatedAddress = *result.CreatedAddress
	}
	return res, err
}

// dispatch runs one message between the BeforeMessage and AfterMessage
// events. An exception set by an observer rolls the frame back.
func (r runContext) dispatch(kind tosca.CallKind, parameters tosca.CallParameters) (tosca.MessageResult, error) {
	if r.depth > MaxRecursiveDepth {
		return tosca.MessageResult{GasLeft: parameters.Gas}, nil
	}

	message := &tosca.Message{
		Kind:        kind,
		Depth:       r.depth,
		Sender:      parameters.Sender,
		CodeAddress: parameters.CodeAddress,
		Input:       parameters.Input,
		Value:       parameters.Value,
		Gas:         parameters.Gas,
	}
	if !kind.IsCreate() {
		recipient := parameters.Recipient
		message.Recipient = &recipient
	}
	r.instrumentation.BeforeMessage(message)

	snapshot := r.CreateSnapshot()
	run := r.executeCall
	if kind.IsCreate() {
		run = r.executeCreate
	}
	result, err := run(kind, parameters)

	r.instrumentation.AfterMessage(message, &result)
	if err != nil {
		return result, err
	}
	if result.Exception != nil {
		r.RestoreSnapshot(snapshot)
		result.Success = false
		result.CreatedAddress = nil
	}
	return result, nil
}

// frame builds the interpreter input for a frame one level below r.
func (r runContext) frame(kind tosca.CallKind, parameters tosca.CallParameters, recipient tosca.Address, code tosca.Code, codeHash tosca.Hash) tosca.Parameters {
	input := parameters.Input
	if kind.IsCreate() {
		input = nil
	}
	return tosca.Parameters{
		BlockParameters:       r.blockParameters,
		TransactionParameters: r.transactionParameters,
		Context:               r,
		Kind:                  kind,
		Static:                r.static,
		Depth:                 r.depth - 1,
		Gas:                   parameters.Gas,
		Recipient:             recipient,
		Sender:                parameters.Sender,
		Input:                 input,
		Value:                 parameters.Value,
		CodeHash:              &codeHash,
		Code:                  code,
	}
}

func (r runContext) executeCall(kind tosca.CallKind, parameters tosca.CallParameters) (tosca.MessageResult, error) {
	r.depth++
	if kind == tosca.StaticCall {
		r.static = true
	}
	recipient := parameters.Recipient
	movesValue := kind == tosca.Call || kind == tosca.CallCode

	snapshot := r.CreateSnapshot()
	if movesValue && !transfer(r, parameters.Value, parameters.Sender, &recipient) {
		return tosca.MessageResult{GasLeft: parameters.Gas}, nil
	}

	if result, found := handlePrecompiled(r.blockParameters.Revision, parameters.Input, recipient, parameters.Gas); found {
		if !result.Success {
			r.RestoreSnapshot(snapshot)
			result.GasLeft = 0
		}
		return result, nil
	}

	codeAddress := recipient
	if kind == tosca.DelegateCall || kind == tosca.CallCode {
		codeAddress = parameters.CodeAddress
	}
	code := r.GetCode(codeAddress)
	if len(code) == 0 {
		return tosca.MessageResult{Success: true, GasLeft: parameters.Gas}, nil
	}

	result, err := r.interpreter.Run(r.frame(kind, parameters, recipient, code, r.GetCodeHash(codeAddress)))
	if err != nil || !result.Success {
		r.RestoreSnapshot(snapshot)
		// Reverts return the unused gas, all other failures burn it.
		if !isRevert(result, err) {
			result.GasLeft = 0
		}
	}
	return tosca.MessageResult{
		Output:    result.Output,
		GasLeft:   result.GasLeft,
		GasRefund: result.GasRefund,
		Success:   result.Success,
	}, err
}

func (r runContext) executeCreate(kind tosca.CallKind, parameters tosca.CallParameters) (tosca.MessageResult, error) {
	r.depth++
	failed := tosca.MessageResult{GasLeft: parameters.Gas}

	if !hasFunds(r, parameters.Sender, parameters.Value) {
		return failed, nil
	}
	// Transaction senders had their nonce bumped by the processor.
	if r.depth > 1 {
		nonce := r.GetNonce(parameters.Sender)
		if nonce+1 < nonce {
			return failed, nil
		}
		r.SetNonce(parameters.Sender, nonce+1)
	}

	code := tosca.Code(parameters.Input)
	codeHash := hashCode(code)
	created := createAddress(kind, parameters.Sender, r.GetNonce(parameters.Sender)-1, parameters.Salt, codeHash)
	if r.GetNonce(created) != 0 {
		return tosca.MessageResult{}, nil
	}
	if hash := r.GetCodeHash(created); hash != (tosca.Hash{}) && hash != emptyCodeHash {
		return tosca.MessageResult{}, nil
	}

	snapshot := r.CreateSnapshot()
	r.SetNonce(created, 1)
	transfer(r, parameters.Value, parameters.Sender, &created)

	result, err := r.interpreter.Run(r.frame(kind, parameters, created, code, codeHash))
	if err != nil || !result.Success {
		r.RestoreSnapshot(snapshot)
		if !isRevert(result, err) {
			return tosca.MessageResult{}, err
		}
		return tosca.MessageResult{Output: result.Output, GasLeft: result.GasLeft}, nil
	}

	deployed := tosca.Code(result.Output)
	depositGas := tosca.Gas(len(deployed) * createGasCostPerByte)
	valid := len(deployed) <= maxCodeSize && result.GasLeft >= depositGas
	if r.blockParameters.Revision >= tosca.R10_London && len(deployed) > 0 && deployed[0] == 0xEF {
		valid = false
	}
	if !valid {
		r.RestoreSnapshot(snapshot)
		return tosca.MessageResult{}, nil
	}

	r.SetCode(created, deployed)
	return tosca.MessageResult{
		Output:         result.Output,
		GasLeft:        result.GasLeft - depositGas,
		GasRefund:      result.GasRefund,
		Success:        true,
		CreatedAddress: &created,
	}, nil
}

func isRevert(result tosca.Result, err error) bool {
	return err == nil && !result.Success && (result.GasLeft > 0 || len(result.Output) > 0)
}

func hashCode(code tosca.Code) tosca.Hash {
	return tosca.Hash(crypto.Keccak256(code))
}

func createAddress(kind tosca.CallKind, sender tosca.Address, nonce uint64, salt tosca.Hash, initHash tosca.Hash) tosca.Address {
	if kind == tosca.Create {
		return tosca.Address(crypto.CreateAddress(common.Address(sender), nonce))
	}
	return tosca.Address(crypto.CreateAddress2(common.Address(sender), common.Hash(salt), initHash[:]))
}

func hasFunds(context tosca.TransactionContext, account tosca.Address, value tosca.Value) bool {
	return value == (tosca.Value{}) || context.GetBalance(account).Cmp(value) >= 0
}

// transfer moves value from sender to recipient. It reports false and leaves
// the balances untouched if the sender is short on funds or the recipient's
// balance would overflow.
func transfer(context tosca.TransactionContext, value tosca.Value, sender tosca.Address, recipient *tosca.Address) bool {
	if value == (tosca.Value{}) {
		return true
	}
	if !hasFunds(context, sender, value) {
		return false
	}
	if sender == *recipient {
		return true
	}
	before := context.GetBalance(*recipient)
	after := tosca.Add(before, value)
	if after.Cmp(before) < 0 {
		return false
	}
	context.SetBalance(sender, tosca.Sub(context.GetBalance(sender), value))
	context.SetBalance(*recipient, after)
	return true
}
