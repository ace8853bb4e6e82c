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
	"math"

	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/holiman/uint256"
)

// Taken from 'core/vm/gas_table.go' 'memoryGasCost' in geth; larger sizes
// would overflow the quadratic cost term.
const maxMemoryExpansionSize = 0x1FFFFFFFE0

// memory is the byte-addressed, word-aligned scratch space of a frame.
type memory struct {
	store       []byte
	currentCost tosca.Gas
}

func sizeInWords(size uint64) uint64 {
	if size > math.MaxUint64-31 {
		return math.MaxUint64/32 + 1
	}
	return (size + 31) / 32
}

func memoryCost(size uint64) tosca.Gas {
	words := sizeInWords(size)
	return tosca.Gas(words*words/512 + 3*words)
}

func (m *memory) length() uint64 {
	return uint64(len(m.store))
}

// expand grows the memory to cover [offset, offset+size) and charges the
// expansion fee. A zero size never expands the memory.
func (m *memory) expand(offset, size uint64, c *context) error {
	if size == 0 {
		return nil
	}
	needed := offset + size
	if needed < offset {
		return errOverflow
	}
	if m.length() >= needed {
		return nil
	}
	if needed > maxMemoryExpansionSize {
		return errOutOfGas
	}
	cost := memoryCost(needed)
	if err := c.useGas(cost - m.currentCost); err != nil {
		return err
	}
	m.currentCost = cost
	m.store = append(m.store, make([]byte, sizeInWords(needed)*32-m.length())...)
	return nil
}

// getSlice returns the memory region [offset, offset+size), expanding the
// memory if needed. The slice aliases the memory until the next expansion.
func (m *memory) getSlice(offset, size *uint256.Int, c *context) ([]byte, error) {
	if size.IsZero() {
		return nil, nil
	}
	if !offset.IsUint64() || !size.IsUint64() {
		return nil, errOverflow
	}
	start, length := offset.Uint64(), size.Uint64()
	if err := m.expand(start, length, c); err != nil {
		return nil, err
	}
	return m.store[start : start+length], nil
}

func (m *memory) readWord(offset *uint256.Int, target *uint256.Int, c *context) error {
	data, err := m.getSlice(offset, uint256.NewInt(32), c)
	if err != nil {
		return err
	}
	target.SetBytes32(data)
	return nil
}

func (m *memory) setWord(offset *uint256.Int, value *uint256.Int, c *context) error {
	data, err := m.getSlice(offset, uint256.NewInt(32), c)
	if err != nil {
		return err
	}
	value.WriteToSlice(data)
	return nil
}

func (m *memory) setByte(offset *uint256.Int, value byte, c *context) error {
	data, err := m.getSlice(offset, uint256.NewInt(1), c)
	if err != nil {
		return err
	}
	data[0] = value
	return nil
}
