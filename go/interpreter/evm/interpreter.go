// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package evm

import (
	"fmt"

	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/core/vm"
)

// status is enumeration of the execution state of an interpreter run.
type status byte

const (
	statusRunning        status = iota // < all fine, ops are processed
	statusStopped                      // < execution stopped with a STOP
	statusReverted                     // < execution stopped with a REVERT
	statusReturned                     // < execution stopped with a RETURN
	statusSelfDestructed               // < execution stopped with a SELF-DESTRUCT
	statusFailed                       // < execution stopped with a logic error
)

// context is the execution environment of a single frame.
type context struct {
	params    tosca.Parameters
	context   tosca.RunContext
	code      tosca.Code
	jumpdests bitmap

	pc     int
	gas    tosca.Gas
	refund tosca.Gas
	stack  *stack
	memory *memory

	// output of the frame for RETURN and REVERT, otherwise the result of
	// the last nested call
	returnData []byte
}

// useGas reduces the gas level by the given amount, failing if not enough
// gas is left.
func (c *context) useGas(amount tosca.Gas) error {
	if c.gas < 0 || amount < 0 || c.gas < amount {
		return errOutOfGas
	}
	c.gas -= amount
	return nil
}

func (c *context) isAtLeast(revision tosca.Revision) bool {
	return c.params.Revision >= revision
}

func run(params tosca.Parameters) (tosca.Result, error) {
	if len(params.Code) == 0 {
		return tosca.Result{
			GasLeft: params.Gas,
			Success: true,
		}, nil
	}

	ctxt := context{
		params:    params,
		context:   params.Context,
		code:      params.Code,
		jumpdests: analyzeJumpDests(params.Code),
		gas:       params.Gas,
		stack:     newStack(),
		memory:    &memory{},
	}
	defer returnStack(ctxt.stack)

	status, err := steps(&ctxt)
	if err != nil {
		status = statusFailed
	}
	return generateResult(status, &ctxt)
}

func generateResult(status status, ctxt *context) (tosca.Result, error) {
	switch status {
	case statusStopped, statusSelfDestructed:
		return tosca.Result{
			Success:   true,
			GasLeft:   ctxt.gas,
			GasRefund: ctxt.refund,
		}, nil
	case statusReturned:
		return tosca.Result{
			Success:   true,
			Output:    ctxt.returnData,
			GasLeft:   ctxt.gas,
			GasRefund: ctxt.refund,
		}, nil
	case statusReverted:
		return tosca.Result{
			Success: false,
			Output:  ctxt.returnData,
			GasLeft: ctxt.gas,
		}, nil
	case statusFailed:
		return tosca.Result{
			Success: false,
		}, nil
	default:
		return tosca.Result{}, fmt.Errorf("unexpected error in interpreter, unknown status: %v", status)
	}
}

// steps executes the frame's code until it halts. Any execution violation
// (out of gas, stack underflow, invalid jump, ...) is reported as an error.
func steps(c *context) (status, error) {
	status := statusRunning
	for status == statusRunning {
		if c.pc >= len(c.code) {
			return statusStopped, nil
		}

		op := vm.OpCode(c.code[c.pc])

		if err := checkStackLimits(c.stack.len(), op); err != nil {
			return status, err
		}
		if err := c.useGas(staticGasPrices[op]); err != nil {
			return status, err
		}

		var err error
		switch {
		case vm.PUSH1 <= op && op <= vm.PUSH32:
			opPush(c, int(op-vm.PUSH1)+1)
		case vm.DUP1 <= op && op <= vm.DUP16:
			c.stack.dup(int(op-vm.DUP1) + 1)
		case vm.SWAP1 <= op && op <= vm.SWAP16:
			c.stack.swap(int(op-vm.SWAP1) + 1)
		case vm.LOG0 <= op && op <= vm.LOG4:
			err = opLog(c, int(op-vm.LOG0))
		default:
			status, err = execute(c, op)
		}
		if err != nil {
			return status, err
		}
		c.pc++
	}
	return status, nil
}

// execute runs a single op code that is not a PUSH, DUP, SWAP, or LOG.
func execute(c *context, op vm.OpCode) (status, error) {
	var err error
	switch op {
	case vm.STOP:
		return statusStopped, nil
	case vm.RETURN:
		return statusReturned, opEndWithResult(c)
	case vm.REVERT:
		return statusReverted, opEndWithResult(c)
	case vm.SELFDESTRUCT:
		return opSelfdestruct(c)
	case vm.JUMPDEST:
		// nothing
	case vm.JUMP:
		err = opJump(c)
	case vm.JUMPI:
		err = opJumpi(c)
	case vm.PC:
		c.stack.pushUndefined().SetUint64(uint64(c.pc))
	case vm.POP:
		c.stack.pop()
	case vm.PUSH0:
		if !c.isAtLeast(tosca.R12_Shanghai) {
			return statusRunning, errInvalidOpCode
		}
		c.stack.pushUndefined().Clear()

	case vm.ADD, vm.SUB, vm.MUL, vm.DIV, vm.SDIV, vm.MOD, vm.SMOD,
		vm.SIGNEXTEND, vm.LT, vm.GT, vm.SLT, vm.SGT, vm.EQ, vm.AND, vm.OR,
		vm.XOR, vm.BYTE, vm.SHL, vm.SHR, vm.SAR:
		opBinary(c, op)
	case vm.ADDMOD, vm.MULMOD:
		opTernary(c, op)
	case vm.ISZERO, vm.NOT:
		opUnary(c, op)
	case vm.EXP:
		err = opExp(c)
	case vm.KECCAK256:
		err = opSha3(c)

	case vm.MLOAD:
		top := c.stack.peek()
		err = c.memory.readWord(top, top, c)
	case vm.MSTORE:
		offset, value := c.stack.pop(), c.stack.pop()
		err = c.memory.setWord(offset, value, c)
	case vm.MSTORE8:
		offset, value := c.stack.pop(), c.stack.pop()
		err = c.memory.setByte(offset, byte(value.Uint64()), c)
	case vm.MSIZE:
		c.stack.pushUndefined().SetUint64(c.memory.length())
	case vm.MCOPY:
		if !c.isAtLeast(tosca.R13_Cancun) {
			return statusRunning, errInvalidOpCode
		}
		err = opMcopy(c)

	case vm.SLOAD:
		err = opSload(c)
	case vm.SSTORE:
		err = opSstore(c)

	case vm.ADDRESS:
		c.stack.pushUndefined().SetBytes20(c.params.Recipient[:])
	case vm.ORIGIN:
		c.stack.pushUndefined().SetBytes20(c.params.Origin[:])
	case vm.CALLER:
		c.stack.pushUndefined().SetBytes20(c.params.Sender[:])
	case vm.CALLVALUE:
		c.stack.pushUndefined().SetBytes32(c.params.Value[:])
	case vm.CALLDATALOAD:
		opCallDataload(c)
	case vm.CALLDATASIZE:
		c.stack.pushUndefined().SetUint64(uint64(len(c.params.Input)))
	case vm.CALLDATACOPY:
		err = genericDataCopy(c, c.params.Input)
	case vm.CODESIZE:
		c.stack.pushUndefined().SetUint64(uint64(len(c.code)))
	case vm.CODECOPY:
		err = genericDataCopy(c, c.code)
	case vm.RETURNDATASIZE:
		c.stack.pushUndefined().SetUint64(uint64(len(c.returnData)))
	case vm.RETURNDATACOPY:
		err = opReturnDataCopy(c)

	case vm.BALANCE:
		top := c.stack.peek()
		balance := c.context.GetBalance(tosca.Address(top.Bytes20()))
		top.SetBytes32(balance[:])
	case vm.SELFBALANCE:
		balance := c.context.GetBalance(c.params.Recipient)
		c.stack.pushUndefined().SetBytes32(balance[:])
	case vm.EXTCODESIZE:
		top := c.stack.peek()
		top.SetUint64(uint64(c.context.GetCodeSize(tosca.Address(top.Bytes20()))))
	case vm.EXTCODEHASH:
		opExtcodehash(c)
	case vm.EXTCODECOPY:
		err = opExtCodeCopy(c)

	case vm.GASPRICE:
		c.stack.pushUndefined().SetBytes32(c.params.GasPrice[:])
	case vm.COINBASE:
		c.stack.pushUndefined().SetBytes20(c.params.Coinbase[:])
	case vm.TIMESTAMP:
		c.stack.pushUndefined().SetUint64(uint64(c.params.Timestamp))
	case vm.NUMBER:
		c.stack.pushUndefined().SetUint64(uint64(c.params.BlockNumber))
	case vm.DIFFICULTY:
		c.stack.pushUndefined().Clear()
	case vm.GASLIMIT:
		c.stack.pushUndefined().SetUint64(uint64(c.params.GasLimit))
	case vm.CHAINID:
		c.stack.pushUndefined().SetBytes32(c.params.ChainID[:])
	case vm.BASEFEE:
		if !c.isAtLeast(tosca.R10_London) {
			return statusRunning, errInvalidOpCode
		}
		c.stack.pushUndefined().SetBytes32(c.params.BaseFee[:])
	case vm.BLOCKHASH:
		// no block history is available
		c.stack.peek().Clear()
	case vm.BLOBHASH:
		if !c.isAtLeast(tosca.R13_Cancun) {
			return statusRunning, errInvalidOpCode
		}
		c.stack.peek().Clear()
	case vm.BLOBBASEFEE:
		if !c.isAtLeast(tosca.R13_Cancun) {
			return statusRunning, errInvalidOpCode
		}
		c.stack.pushUndefined().Clear()
	case vm.GAS:
		c.stack.pushUndefined().SetUint64(uint64(c.gas))

	case vm.CALL:
		err = opCall(c)
	case vm.CALLCODE:
		err = genericCall(c, tosca.CallCode)
	case vm.DELEGATECALL:
		err = genericCall(c, tosca.DelegateCall)
	case vm.STATICCALL:
		err = genericCall(c, tosca.StaticCall)
	case vm.CREATE:
		err = genericCreate(c, tosca.Create)
	case vm.CREATE2:
		err = genericCreate(c, tosca.Create2)

	default:
		err = errInvalidOpCode
	}
	return statusRunning, err
}
