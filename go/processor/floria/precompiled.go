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
	"github.com/ethereum/go-ethereum/common"
	geth "github.com/ethereum/go-ethereum/core/vm"
)

// handlePrecompiled runs the precompiled contract at the given address, if
// there is one for the revision. The second result reports whether the
// address hosts a precompiled contract.
func handlePrecompiled(revision tosca.Revision, input tosca.Data, address tosca.Address, gas tosca.Gas) (tosca.MessageResult, bool) {
	contract, ok := precompiledContract(address, revision)
	if !ok {
		return tosca.MessageResult{}, false
	}
	gasCost := tosca.Gas(contract.RequiredGas(input))
	if gasCost < 0 || gas < gasCost {
		return tosca.MessageResult{}, true
	}
	output, err := contract.Run(input)
	return tosca.MessageResult{
		Success: err == nil, // precompiled contracts only return errors on invalid input
		Output:  output,
		GasLeft: gas - gasCost,
	}, true
}

func precompiledContract(address tosca.Address, revision tosca.Revision) (geth.PrecompiledContract, bool) {
	var precompiles map[common.Address]geth.PrecompiledContract
	switch {
	case revision >= tosca.R13_Cancun:
		precompiles = geth.PrecompiledContractsCancun
	case revision >= tosca.R09_Berlin:
		precompiles = geth.PrecompiledContractsBerlin
	default:
		precompiles = geth.PrecompiledContractsIstanbul
	}
	contract, ok := precompiles[common.Address(address)]
	return contract, ok
}
