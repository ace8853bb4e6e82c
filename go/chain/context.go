// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package chain

import (
	"bytes"

	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/exp/slices"
)

// transactionContext buffers the modifications of a single transaction on
// top of a copy of the committed state. Every modification records an undo
// operation, snapshots are positions in the undo log.
type transactionContext struct {
	original   WorldState
	current    WorldState
	logs       []tosca.Log
	undo       []func()
	destructed map[tosca.Address]struct{}
}

func newTransactionContext(state WorldState) *transactionContext {
	return &transactionContext{
		original:   state,
		current:    state.Clone(),
		destructed: map[tosca.Address]struct{}{},
	}
}

func (c *transactionContext) AccountExists(addr tosca.Address) bool {
	account := c.current[addr]
	return !account.IsEmpty()
}

func (c *transactionContext) GetBalance(addr tosca.Address) tosca.Value {
	return c.current[addr].Balance
}

func (c *transactionContext) SetBalance(addr tosca.Address, value tosca.Value) {
	c.update(addr, func(account *Account) { account.Balance = value })
}

func (c *transactionContext) GetNonce(addr tosca.Address) uint64 {
	return c.current[addr].Nonce
}

func (c *transactionContext) SetNonce(addr tosca.Address, value uint64) {
	c.update(addr, func(account *Account) { account.Nonce = value })
}

func (c *transactionContext) GetCode(addr tosca.Address) tosca.Code {
	return tosca.Code(bytes.Clone(c.current[addr].Code))
}

func (c *transactionContext) GetCodeHash(addr tosca.Address) tosca.Hash {
	return tosca.Hash(crypto.Keccak256Hash(c.current[addr].Code))
}

func (c *transactionContext) GetCodeSize(addr tosca.Address) int {
	return len(c.current[addr].Code)
}

func (c *transactionContext) SetCode(addr tosca.Address, code tosca.Code) {
	code = tosca.Code(bytes.Clone(code))
	c.update(addr, func(account *Account) { account.Code = code })
}

func (c *transactionContext) GetStorage(addr tosca.Address, key tosca.Key) tosca.Word {
	return c.current[addr].Storage[key]
}

func (c *transactionContext) SetStorage(addr tosca.Address, key tosca.Key, new tosca.Word) tosca.StorageStatus {
	original := c.original[addr].Storage[key]
	current := c.current[addr].Storage[key]

	account := c.current[addr]
	if account.Storage == nil {
		account.Storage = Storage{}
		c.current[addr] = account
	}
	storage := account.Storage
	storage[key] = new
	c.undo = append(c.undo, func() { storage[key] = current })
	return tosca.GetStorageStatus(original, current, new)
}

func (c *transactionContext) SelfDestruct(addr tosca.Address, beneficiary tosca.Address) bool {
	balance := c.GetBalance(addr)
	if addr != beneficiary {
		c.SetBalance(beneficiary, tosca.Add(c.GetBalance(beneficiary), balance))
	}
	c.SetBalance(addr, tosca.Value{})
	if _, found := c.destructed[addr]; found {
		return false
	}
	c.destructed[addr] = struct{}{}
	c.undo = append(c.undo, func() { delete(c.destructed, addr) })
	return true
}

func (c *transactionContext) CreateSnapshot() tosca.Snapshot {
	return tosca.Snapshot(len(c.undo))
}

func (c *transactionContext) RestoreSnapshot(snapshot tosca.Snapshot) {
	for len(c.undo) > int(snapshot) {
		c.undo[len(c.undo)-1]()
		c.undo = c.undo[:len(c.undo)-1]
	}
}

func (c *transactionContext) EmitLog(log tosca.Log) {
	size := len(c.logs)
	c.logs = append(c.logs, log)
	c.undo = append(c.undo, func() { c.logs = c.logs[:size] })
}

func (c *transactionContext) GetLogs() []tosca.Log {
	return slices.Clone(c.logs)
}

// commit returns the resulting state. Accounts destructed in the
// transaction are removed.
func (c *transactionContext) commit() WorldState {
	for addr := range c.destructed {
		delete(c.current, addr)
	}
	return c.current
}

func (c *transactionContext) update(addr tosca.Address, modify func(*Account)) {
	original, exists := c.current[addr]
	modified := original
	modify(&modified)
	c.current[addr] = modified
	c.undo = append(c.undo, func() {
		if exists {
			c.current[addr] = original
		} else {
			delete(c.current, addr)
		}
	})
}
