// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package smod

import (
	"context"
	"fmt"

	"github.com/Fantom-foundation/smock/go/artifact"
	"github.com/Fantom-foundation/smock/go/contract"
	"github.com/Fantom-foundation/smock/go/tosca"
)

// StorageReader is implemented by backends able to read the live storage of
// a contract, including all installed overrides.
type StorageReader interface {
	GetStorage(tosca.Address, tosca.Key) tosca.Word
}

// ModifiableContract is a contract handle whose storage can be overridden
// with values described by its storage layout.
type ModifiableContract struct {
	*contract.Contract
	engine *Engine
	layout *artifact.StorageLayout
}

// Modifiable registers the contract for storage overrides.
func (e *Engine) Modifiable(handle *contract.Contract, layout *artifact.StorageLayout) (*ModifiableContract, error) {
	if layout == nil {
		return nil, artifact.ErrNoStorageLayout
	}
	e.Register(handle.Address())
	return &ModifiableContract{Contract: handle, engine: e, layout: layout}, nil
}

func (c *ModifiableContract) Layout() *artifact.StorageLayout {
	return c.layout
}

// Put adds overrides for the values, keeping unrelated overrides. Packed
// members not named by the values keep their live value if the backend is
// a StorageReader, and the value of an earlier override otherwise.
func (c *ModifiableContract) Put(values map[string]any) error {
	slots, err := ResolveSlots(c.layout, values)
	if err != nil {
		return err
	}
	return c.engine.put(c.Address(), c.completed(slots))
}

// Set replaces all overrides by the values.
func (c *ModifiableContract) Set(values map[string]any) error {
	slots, err := ResolveSlots(c.layout, values)
	if err != nil {
		return err
	}
	c.engine.reset(c.Address())
	return c.engine.put(c.Address(), c.completed(slots))
}

// completed fills the bits of partially assigned slots from live storage.
func (c *ModifiableContract) completed(slots []Slot) []Slot {
	reader, ok := c.Backend().(StorageReader)
	if !ok {
		return slots
	}
	for i, slot := range slots {
		if !slot.partial() {
			continue
		}
		slots[i].Value = slot.applyTo(reader.GetStorage(c.Address(), slot.Key))
		slots[i].Mask = tosca.Word{}
	}
	return slots
}

// Check reports whether the live storage holds the values. Only the bits of
// the named values are compared, packed neighbors are ignored. It requires
// a backend implementing StorageReader.
func (c *ModifiableContract) Check(values map[string]any) (bool, error) {
	reader, ok := c.Backend().(StorageReader)
	if !ok {
		return false, fmt.Errorf("%w: backend %T can not read storage", ErrIntegration, c.Backend())
	}
	slots, err := ResolveSlots(c.layout, values)
	if err != nil {
		return false, err
	}
	for _, slot := range slots {
		if !slot.matches(reader.GetStorage(c.Address(), slot.Key)) {
			return false, nil
		}
	}
	return true, nil
}

// Reset drops all overrides.
func (c *ModifiableContract) Reset() {
	c.engine.reset(c.Address())
}

// Overrides lists the overrides currently in effect.
func (c *ModifiableContract) Overrides() []Slot {
	return c.engine.Overrides(c.Address())
}

// Factory deploys contracts as modifiable contracts.
type Factory struct {
	*contract.Factory
	engine *Engine
	layout *artifact.StorageLayout
}

// Smoddit creates a factory for the compiled contract, which has to carry a
// storage layout.
func (e *Engine) Smoddit(compiled *artifact.Artifact, backend contract.Backend) (*Factory, error) {
	layout, err := compiled.Layout()
	if err != nil {
		return nil, err
	}
	factory, err := contract.NewFactoryFromArtifact(compiled, backend)
	if err != nil {
		return nil, err
	}
	return &Factory{Factory: factory, engine: e, layout: layout}, nil
}

// From returns a copy of the factory deploying from the sender.
func (f *Factory) From(sender tosca.Address) *Factory {
	res := *f
	res.Factory = f.Factory.From(sender)
	return &res
}

// Deploy deploys a new instance and registers it for storage overrides.
func (f *Factory) Deploy(ctx context.Context, args ...any) (*ModifiableContract, error) {
	deployed, err := f.Factory.Deploy(ctx, args...)
	if err != nil {
		return nil, err
	}
	return f.engine.Modifiable(deployed, f.layout)
}
