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
	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/core/vm"
)

const (
	gasQuickStep   tosca.Gas = 2
	gasFastestStep tosca.Gas = 3
	gasFastStep    tosca.Gas = 5
	gasMidStep     tosca.Gas = 8
	gasSlowStep    tosca.Gas = 10
	gasExtStep     tosca.Gas = 20

	gasWarmAccess        tosca.Gas = 100
	gasSload             tosca.Gas = 800
	gasSstoreSet         tosca.Gas = 20000
	gasSstoreReset       tosca.Gas = 2900
	gasSstoreClearRefund tosca.Gas = 4800
	gasSstoreSentry      tosca.Gas = 2300

	gasCallValueTransfer tosca.Gas = 9000
	gasCallNewAccount    tosca.Gas = 25000
	gasCallStipend       tosca.Gas = 2300
	gasCreate            tosca.Gas = 32000
	gasSelfdestruct      tosca.Gas = 5000

	gasKeccakWord   tosca.Gas = 6
	gasCopyWord     tosca.Gas = 3
	gasExpByte      tosca.Gas = 50
	gasLog          tosca.Gas = 375
	gasLogTopic     tosca.Gas = 375
	gasLogData      tosca.Gas = 8
	gasInitCodeWord tosca.Gas = 2
	gasJumpDest     tosca.Gas = 1
	gasBlockhash    tosca.Gas = 20
)

// staticGasPrices is the fee charged for each op code before it is executed.
// Dynamic parts such as memory expansion are charged by the instructions.
var staticGasPrices = func() (res [256]tosca.Gas) {
	for i := range res {
		res[i] = staticGasPrice(vm.OpCode(i))
	}
	return res
}()

func staticGasPrice(op vm.OpCode) tosca.Gas {
	switch {
	case vm.PUSH1 <= op && op <= vm.PUSH32,
		vm.DUP1 <= op && op <= vm.DUP16,
		vm.SWAP1 <= op && op <= vm.SWAP16:
		return gasFastestStep
	case vm.LOG0 <= op && op <= vm.LOG4:
		return gasLog + tosca.Gas(op-vm.LOG0)*gasLogTopic
	}

	switch op {
	case vm.STOP, vm.RETURN, vm.REVERT, vm.INVALID:
		return 0
	case vm.JUMPDEST:
		return gasJumpDest
	case vm.ADDRESS, vm.ORIGIN, vm.CALLER, vm.CALLVALUE, vm.CALLDATASIZE,
		vm.CODESIZE, vm.GASPRICE, vm.COINBASE, vm.TIMESTAMP, vm.NUMBER,
		vm.DIFFICULTY, vm.GASLIMIT, vm.CHAINID, vm.RETURNDATASIZE, vm.POP,
		vm.PC, vm.MSIZE, vm.GAS, vm.BASEFEE, vm.PUSH0, vm.BLOBBASEFEE:
		return gasQuickStep
	case vm.ADD, vm.SUB, vm.NOT, vm.LT, vm.GT, vm.SLT, vm.SGT, vm.EQ,
		vm.ISZERO, vm.AND, vm.OR, vm.XOR, vm.BYTE, vm.SHL, vm.SHR, vm.SAR,
		vm.CALLDATALOAD, vm.MLOAD, vm.MSTORE, vm.MSTORE8, vm.CALLDATACOPY,
		vm.CODECOPY, vm.RETURNDATACOPY, vm.MCOPY, vm.BLOBHASH:
		return gasFastestStep
	case vm.MUL, vm.DIV, vm.SDIV, vm.MOD, vm.SMOD, vm.SIGNEXTEND, vm.SELFBALANCE:
		return gasFastStep
	case vm.ADDMOD, vm.MULMOD, vm.JUMP:
		return gasMidStep
	case vm.EXP, vm.JUMPI:
		return gasSlowStep
	case vm.BLOCKHASH:
		return gasBlockhash
	case vm.KECCAK256:
		return 30
	case vm.BALANCE, vm.EXTCODESIZE, vm.EXTCODEHASH, vm.EXTCODECOPY,
		vm.CALL, vm.CALLCODE, vm.DELEGATECALL, vm.STATICCALL:
		return gasWarmAccess
	case vm.SLOAD:
		return gasSload
	case vm.SSTORE:
		return 0
	case vm.CREATE, vm.CREATE2:
		return gasCreate
	case vm.SELFDESTRUCT:
		return gasSelfdestruct
	}
	return 0
}

// sstoreCosts returns the dynamic fee and refund of an SSTORE given the
// effect it had on the storage slot.
func sstoreCosts(status tosca.StorageStatus) (cost tosca.Gas, refund tosca.Gas) {
	switch status {
	case tosca.StorageAdded:
		return gasSstoreSet, 0
	case tosca.StorageModified:
		return gasSstoreReset, 0
	case tosca.StorageDeleted:
		return gasSstoreReset, gasSstoreClearRefund
	case tosca.StorageDeletedAdded:
		return gasWarmAccess, -gasSstoreClearRefund
	case tosca.StorageModifiedDeleted:
		return gasWarmAccess, gasSstoreClearRefund
	case tosca.StorageDeletedRestored:
		return gasWarmAccess, gasSstoreReset - gasWarmAccess - gasSstoreClearRefund
	case tosca.StorageAddedDeleted:
		return gasWarmAccess, gasSstoreSet - gasWarmAccess
	case tosca.StorageModifiedRestored:
		return gasWarmAccess, gasSstoreReset - gasWarmAccess
	}
	return gasWarmAccess, 0
}
