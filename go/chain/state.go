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
	"fmt"

	"github.com/Fantom-foundation/smock/go/tosca"
	"golang.org/x/exp/maps"
)

// WorldState is the committed state of the chain. Accounts missing from the
// map are empty.
type WorldState map[tosca.Address]Account

// Account is the state of a single account. The zero account is empty.
type Account struct {
	Balance tosca.Value
	Nonce   uint64
	Code    tosca.Code
	Storage Storage
}

// Storage maps keys to values. Zero-valued entries are equivalent to missing
// entries.
type Storage map[tosca.Key]tosca.Word

// Clone returns a deep copy; accounts share no code or storage with s.
func (s WorldState) Clone() WorldState {
	if s == nil {
		return nil
	}
	res := make(WorldState, len(s))
	for address, account := range s {
		res[address] = account.Clone()
	}
	return res
}

// Equal compares s and other, treating empty accounts as missing.
func (s WorldState) Equal(other WorldState) bool {
	return sameEntries(s, other, func(a, b Account) bool { return a.Equal(&b) })
}

func (a *Account) Clone() Account {
	res := *a
	res.Code = bytes.Clone(a.Code)
	res.Storage = a.Storage.Clone()
	return res
}

func (a *Account) Equal(other *Account) bool {
	if a.Balance != other.Balance || a.Nonce != other.Nonce {
		return false
	}
	return bytes.Equal(a.Code, other.Code) && a.Storage.Equal(other.Storage)
}

// IsEmpty reports whether the account has no balance, nonce or code. Storage
// is not considered.
func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 && len(a.Code) == 0 && a.Balance == (tosca.Value{})
}

func (a *Account) String() string {
	return fmt.Sprintf("{balance: %v, nonce: %d, code: %d bytes, storage: %d slots}",
		a.Balance, a.Nonce, len(a.Code), len(a.Storage))
}

func (s Storage) Clone() Storage {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}

func (s Storage) Equal(other Storage) bool {
	return sameEntries(s, other, func(a, b tosca.Word) bool { return a == b })
}

// sameEntries compares two maps where a missing key stands for the zero
// value of V.
func sameEntries[K comparable, V any](a, b map[K]V, equal func(V, V) bool) bool {
	keys := maps.Keys(a)
	keys = append(keys, maps.Keys(b)...)
	for _, key := range keys {
		if !equal(a[key], b[key]) {
			return false
		}
	}
	return true
}
