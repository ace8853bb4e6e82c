// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"github.com/Fantom-foundation/smock/go/tosca"
	"pgregory.net/rand"
)

// AddressAllocator hands out random addresses that are not yet in use.
type AddressAllocator struct {
	rnd    *rand.Rand
	inUse  func(tosca.Address) bool
	issued map[tosca.Address]struct{}
}

// NewAddressAllocator creates an allocator drawing from rnd. The inUse
// predicate reports addresses that must not be handed out, e.g. existing
// accounts; it may be nil. A nil rnd draws from a randomly seeded source.
func NewAddressAllocator(rnd *rand.Rand, inUse func(tosca.Address) bool) *AddressAllocator {
	if rnd == nil {
		rnd = rand.New()
	}
	return &AddressAllocator{
		rnd:    rnd,
		inUse:  inUse,
		issued: map[tosca.Address]struct{}{},
	}
}

// Next returns an address never issued before by this allocator and not
// reported as in use.
func (a *AddressAllocator) Next() tosca.Address {
	for {
		var address tosca.Address
		a.rnd.Read(address[:])
		if address == (tosca.Address{}) {
			continue
		}
		if _, found := a.issued[address]; found {
			continue
		}
		if a.inUse != nil && a.inUse(address) {
			continue
		}
		a.issued[address] = struct{}{}
		return address
	}
}

// RandomAddress returns a random address from a fresh, randomly seeded
// source.
func RandomAddress() tosca.Address {
	return NewAddressAllocator(nil, nil).Next()
}
