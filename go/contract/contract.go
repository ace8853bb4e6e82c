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

	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract is a handle on a deployed contract.
type Contract struct {
	address tosca.Address
	abi     abi.ABI
	backend Backend
	from    tosca.Address
}

// Bind creates a handle for the contract at the given address.
func Bind(address tosca.Address, contractAbi abi.ABI, backend Backend) *Contract {
	return &Contract{
		address: address,
		abi:     contractAbi,
		backend: backend,
		from:    DefaultSender,
	}
}

func (c *Contract) Address() tosca.Address {
	return c.address
}

func (c *Contract) ABI() abi.ABI {
	return c.abi
}

func (c *Contract) Backend() Backend {
	return c.backend
}

// From returns a copy of the handle sending from the given account.
func (c *Contract) From(sender tosca.Address) *Contract {
	res := *c
	res.from = sender
	return &res
}

// Pack encodes a call of the named method. Arguments are converted with
// Convert.
func (c *Contract) Pack(method string, args ...any) ([]byte, error) {
	m, found := c.abi.Methods[method]
	if !found {
		return nil, fmt.Errorf("method %s not found", method)
	}
	converted, err := Convert(m.Inputs, args...)
	if err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", method, err)
	}
	packed, err := m.Inputs.Pack(converted...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments for %s: %w", method, err)
	}
	return append(append([]byte{}, m.ID...), packed...), nil
}

// Call invokes the named method without committing state changes and
// returns the decoded results.
func (c *Contract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	input, err := c.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	output, err := c.CallRaw(ctx, input)
	if err != nil {
		return nil, err
	}
	res, err := c.abi.Methods[method].Outputs.Unpack(output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result of %s: %w", method, err)
	}
	return res, nil
}

// CallRaw sends the raw input without committing state changes.
func (c *Contract) CallRaw(ctx context.Context, input []byte) ([]byte, error) {
	receipt, err := c.backend.Call(ctx, c.transaction(input))
	if err != nil {
		return nil, err
	}
	if !receipt.Success {
		return nil, NewRevertError(receipt.Output)
	}
	return receipt.Output, nil
}

// Transact invokes the named method in a transaction. A reverted
// transaction is reported as a *RevertError.
func (c *Contract) Transact(ctx context.Context, method string, args ...any) (tosca.Receipt, error) {
	input, err := c.Pack(method, args...)
	if err != nil {
		return tosca.Receipt{}, err
	}
	return c.TransactRaw(ctx, input)
}

// TransactRaw sends the raw input in a transaction.
func (c *Contract) TransactRaw(ctx context.Context, input []byte) (tosca.Receipt, error) {
	receipt, err := c.backend.SendTransaction(ctx, c.transaction(input))
	if err != nil {
		return receipt, err
	}
	if !receipt.Success {
		return receipt, NewRevertError(receipt.Output)
	}
	return receipt, nil
}

func (c *Contract) transaction(input []byte) tosca.Transaction {
	recipient := c.address
	return tosca.Transaction{
		Sender:    c.from,
		Recipient: &recipient,
		Input:     input,
	}
}
