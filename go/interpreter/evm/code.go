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

// bitmap marks the positions of valid jump destinations in a code.
type bitmap []uint64

func (b bitmap) isSet(pos uint64) bool {
	if pos/64 >= uint64(len(b)) {
		return false
	}
	return b[pos/64]&(1<<(pos%64)) != 0
}

func (b bitmap) set(pos int) {
	b[pos/64] |= 1 << (pos % 64)
}

// analyzeJumpDests collects all JUMPDEST instructions of the given code that
// are not part of the data section of a PUSH instruction.
func analyzeJumpDests(code tosca.Code) bitmap {
	res := make(bitmap, len(code)/64+1)
	for i := 0; i < len(code); i++ {
		op := vm.OpCode(code[i])
		if op == vm.JUMPDEST {
			res.set(i)
		} else if vm.PUSH1 <= op && op <= vm.PUSH32 {
			i += int(op-vm.PUSH1) + 1
		}
	}
	return res
}
