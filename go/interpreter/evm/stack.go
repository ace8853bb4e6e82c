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
	"sync"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
)

const maxStackSize = 1024

// stack is the fixed-size 1024-element word stack of a single frame. Bounds
// are not checked by its operations; checkStackLimits has to be consulted
// before an instruction is executed.
type stack struct {
	data         [maxStackSize]uint256.Int
	stackPointer int
}

func (s *stack) push(d *uint256.Int) {
	s.data[s.stackPointer] = *d
	s.stackPointer++
}

// pushUndefined pushes an element with undefined content and returns a
// pointer to it, to be set in place.
func (s *stack) pushUndefined() *uint256.Int {
	s.stackPointer++
	return &s.data[s.stackPointer-1]
}

// pop removes the top element. The returned pointer stays valid until the
// next push.
func (s *stack) pop() *uint256.Int {
	s.stackPointer--
	return &s.data[s.stackPointer]
}

func (s *stack) peek() *uint256.Int {
	return &s.data[s.stackPointer-1]
}

// peekN returns the n-th element from the top; peekN(0) equals peek().
func (s *stack) peekN(n int) *uint256.Int {
	return &s.data[s.stackPointer-n-1]
}

func (s *stack) len() int {
	return s.stackPointer
}

// swap exchanges the top element with the n-th element below it.
func (s *stack) swap(n int) {
	top := s.stackPointer - 1
	s.data[top-n], s.data[top] = s.data[top], s.data[top-n]
}

// dup pushes a copy of the n-th element from the top, counting from 1.
func (s *stack) dup(n int) {
	s.data[s.stackPointer] = s.data[s.stackPointer-n]
	s.stackPointer++
}

var stackPool = sync.Pool{
	New: func() any {
		return &stack{}
	},
}

func newStack() *stack {
	return stackPool.Get().(*stack)
}

func returnStack(s *stack) {
	s.stackPointer = 0
	stackPool.Put(s)
}

// stackLimits defines the stack size range in which an op code may run.
type stackLimits struct {
	min int
	max int
}

var precomputedStackLimits = func() (res [256]stackLimits) {
	for i := range res {
		pops, pushes := stackUsage(vm.OpCode(i))
		res[i] = stackLimits{
			min: pops,
			max: maxStackSize - max(pushes-pops, 0),
		}
	}
	return res
}()

func checkStackLimits(stackLen int, op vm.OpCode) error {
	limits := precomputedStackLimits[op]
	if stackLen < limits.min {
		return errStackUnderflow
	}
	if stackLen > limits.max {
		return errStackOverflow
	}
	return nil
}

// stackUsage returns the number of elements consumed and produced by op.
func stackUsage(op vm.OpCode) (pops, pushes int) {
	switch {
	case vm.PUSH0 <= op && op <= vm.PUSH32:
		return 0, 1
	case vm.DUP1 <= op && op <= vm.DUP16:
		n := int(op-vm.DUP1) + 1
		return n, n + 1
	case vm.SWAP1 <= op && op <= vm.SWAP16:
		n := int(op-vm.SWAP1) + 2
		return n, n
	case vm.LOG0 <= op && op <= vm.LOG4:
		return int(op-vm.LOG0) + 2, 0
	}

	switch op {
	case vm.ADD, vm.SUB, vm.MUL, vm.DIV, vm.SDIV, vm.MOD, vm.SMOD, vm.EXP,
		vm.SIGNEXTEND, vm.KECCAK256, vm.LT, vm.GT, vm.SLT, vm.SGT, vm.EQ,
		vm.AND, vm.XOR, vm.OR, vm.BYTE, vm.SHL, vm.SHR, vm.SAR:
		return 2, 1
	case vm.ADDMOD, vm.MULMOD:
		return 3, 1
	case vm.ISZERO, vm.NOT, vm.BALANCE, vm.CALLDATALOAD, vm.EXTCODESIZE,
		vm.BLOCKHASH, vm.MLOAD, vm.SLOAD, vm.EXTCODEHASH, vm.BLOBHASH:
		return 1, 1
	case vm.MSIZE, vm.ADDRESS, vm.ORIGIN, vm.CALLER, vm.CALLVALUE,
		vm.CALLDATASIZE, vm.CODESIZE, vm.GASPRICE, vm.COINBASE, vm.TIMESTAMP,
		vm.NUMBER, vm.DIFFICULTY, vm.GASLIMIT, vm.PC, vm.GAS,
		vm.RETURNDATASIZE, vm.SELFBALANCE, vm.CHAINID, vm.BASEFEE,
		vm.BLOBBASEFEE:
		return 0, 1
	case vm.POP, vm.JUMP, vm.SELFDESTRUCT:
		return 1, 0
	case vm.MSTORE, vm.MSTORE8, vm.SSTORE, vm.JUMPI, vm.RETURN, vm.REVERT:
		return 2, 0
	case vm.CALLDATACOPY, vm.CODECOPY, vm.RETURNDATACOPY, vm.MCOPY:
		return 3, 0
	case vm.EXTCODECOPY:
		return 4, 0
	case vm.CREATE:
		return 3, 1
	case vm.CREATE2:
		return 4, 1
	case vm.CALL, vm.CALLCODE:
		return 7, 1
	case vm.STATICCALL, vm.DELEGATECALL:
		return 6, 1
	}
	return 0, 0
}
