// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tosca

import "fmt"

//go:generate mockgen -source world_state.go -destination world_state_mock.go -package tosca

// WorldState gives executed code access to accounts: balances, nonces, code
// and storage. Reads of code and storage are the points where an
// instrumented processor lets interceptors answer instead of the state.
type WorldState interface {
	AccountExists(Address) bool

	GetBalance(Address) Value
	SetBalance(Address, Value)

	GetNonce(Address) uint64
	SetNonce(Address, uint64)

	GetCode(Address) Code
	GetCodeHash(Address) Hash
	GetCodeSize(Address) int
	SetCode(Address, Code)

	GetStorage(Address, Key) Word
	SetStorage(Address, Key, Word) StorageStatus

	// SelfDestruct moves the balance of addr to beneficiary and marks addr
	// for removal at the end of the transaction. It reports whether addr
	// was not marked before.
	SelfDestruct(addr Address, beneficiary Address) bool
}

// Address identifies an account, mocked or real.
type Address [20]byte

// Key addresses a storage slot.
type Key [32]byte

// Word is a 32 byte value, as stored in a slot.
type Word [32]byte

// Value is an amount of wei.
type Value [32]byte

// Hash is a keccak256 digest, e.g. of code or of a log topic.
type Hash [32]byte

// Code is contract bytecode.
type Code []byte

// StorageStatus classifies a slot update relative to the slot's values at
// the start of the transaction and before the update. SSTORE gas and refunds
// depend on it.
type StorageStatus int

// Transitions are given as original -> current -> new, with X, Y, Z
// distinct non-zero words.
const (
	StorageAssigned         StorageStatus = iota
	StorageAdded                          // 0 -> 0 -> Z
	StorageDeleted                        // X -> X -> 0
	StorageModified                       // X -> X -> Z
	StorageDeletedAdded                   // X -> 0 -> Z
	StorageModifiedDeleted                // X -> Y -> 0
	StorageDeletedRestored                // X -> 0 -> X
	StorageAddedDeleted                   // 0 -> Y -> 0
	StorageModifiedRestored               // X -> Y -> X
)

var storageStatusNames = [...]string{
	StorageAssigned:         "StorageAssigned",
	StorageAdded:            "StorageAdded",
	StorageDeleted:          "StorageDeleted",
	StorageModified:         "StorageModified",
	StorageDeletedAdded:     "StorageDeletedAdded",
	StorageModifiedDeleted:  "StorageModifiedDeleted",
	StorageDeletedRestored:  "StorageDeletedRestored",
	StorageAddedDeleted:     "StorageAddedDeleted",
	StorageModifiedRestored: "StorageModifiedRestored",
}

func (s StorageStatus) String() string {
	if s >= 0 && int(s) < len(storageStatusNames) {
		return storageStatusNames[s]
	}
	return fmt.Sprintf("StorageStatus(%d)", int(s))
}

// GetStorageStatus classifies writing new to a slot holding current that held
// original when the transaction started.
func GetStorageStatus(original, current, new Word) StorageStatus {
	var zero Word
	if current == new {
		return StorageAssigned
	}
	switch {
	case original == zero && current == zero:
		return StorageAdded
	case original != zero && current == original && new == zero:
		return StorageDeleted
	case original != zero && current == original:
		return StorageModified
	case original != zero && current == zero && new == original:
		return StorageDeletedRestored
	case original != zero && current == zero:
		return StorageDeletedAdded
	case original != zero && new == zero:
		return StorageModifiedDeleted
	case original == zero && new == zero:
		return StorageAddedDeleted
	case original != zero && new == original:
		return StorageModifiedRestored
	}
	return StorageAssigned
}
