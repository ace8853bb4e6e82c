// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package contract

import (
	"context"
	"fmt"

	"github.com/Fantom-foundation/smock/go/artifact"
	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Factory deploys instances of a contract.
type Factory struct {
	name     string
	abi      abi.ABI
	bytecode tosca.Code
	backend  Backend
	from     tosca.Address
}

// NewFactory creates a factory deploying the given init code.
func NewFactory(name string, contractAbi abi.ABI, bytecode tosca.Code, backend Backend) *Factory {
	return &Factory{
		name:     name,
		abi:      contractAbi,
		bytecode: bytecode,
		backend:  backend,
		from:     DefaultSender,
	}
}

// NewFactoryFromArtifact creates a factory for a compiled artifact.
func NewFactoryFromArtifact(compiled *artifact.Artifact, backend Backend) (*Factory, error) {
	contractAbi, err := compiled.ParseABI()
	if err != nil {
		return nil, err
	}
	bytecode, err := compiled.CreationCode()
	if err != nil {
		return nil, err
	}
	return NewFactory(compiled.ContractName, contractAbi, bytecode, backend), nil
}

func (f *Factory) Name() string {
	return f.name
}

func (f *Factory) ABI() abi.ABI {
	return f.abi
}

func (f *Factory) Backend() Backend {
	return f.backend
}

// From returns a copy of the factory deploying from the given account.
func (f *Factory) From(sender tosca.Address) *Factory {
	res := *f
	res.from = sender
	return &res
}

// Deploy creates a new instance passing the arguments to the constructor.
func (f *Factory) Deploy(ctx context.Context, args ...any) (*Contract, error) {
	if len(f.bytecode) == 0 {
		return nil, fmt.Errorf("cannot deploy %s: no bytecode", f.name)
	}
	converted, err := Convert(f.abi.Constructor.Inputs, args...)
	if err != nil {
		return nil, fmt.Errorf("invalid constructor arguments for %s: %w", f.name, err)
	}
	encoded, err := f.abi.Constructor.Inputs.Pack(converted...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode constructor arguments for %s: %w", f.name, err)
	}
	input := append(append([]byte{}, f.bytecode...), encoded...)
	receipt, err := f.backend.SendTransaction(ctx, tosca.Transaction{
		Sender: f.from,
		Input:  input,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", f.name, err)
	}
	if !receipt.Success {
		return nil, fmt.Errorf("failed to deploy %s: %w", f.name, NewRevertError(receipt.Output))
	}
	if receipt.ContractAddress == nil {
		return nil, fmt.Errorf("failed to deploy %s: no contract address in receipt", f.name)
	}
	return Bind(*receipt.ContractAddress, f.abi, f.backend).From(f.from), nil
}
