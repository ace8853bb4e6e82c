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
	"fmt"
	"sync"

	"github.com/Fantom-foundation/smock/go/common"
	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Engine serves storage reads of registered contracts from their override
// maps. It is installed once per processor, see Initialize.
type Engine struct {
	mu        sync.Mutex
	overrides map[tosca.Address]map[tosca.Key]tosca.Word
	// written holds the overridden slots stored to by the current run. They
	// are dropped from the overrides when the run is committed.
	written    map[tosca.Address]map[tosca.Key]struct{}
	running    bool
	invalidate bool
	logger     log.Logger
}

type config struct {
	logger     log.Logger
	invalidate bool
}

type Option func(*config)

// WithLogger sets the logger of the engine. The root logger is used by
// default.
func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithWriteInvalidation controls whether a write of executed code to an
// overridden slot drops the override. Enabled by default. Overrides are only
// dropped once the host commits the writing transaction; simulated runs
// keep them.
func WithWriteInvalidation(enabled bool) Option {
	return func(c *config) {
		c.invalidate = enabled
	}
}

type engineKey struct{}

// Initialize returns the override engine of the given processor, installing
// it on first use. Options are only applied on installation.
func Initialize(processor tosca.Processor, options ...Option) (*Engine, error) {
	instrumented, ok := processor.(tosca.Instrumented)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrIntegration, processor)
	}
	instrumentation := instrumented.Instrumentation()
	if instrumentation == nil {
		return nil, fmt.Errorf("%w: %T has no instrumentation", ErrIntegration, processor)
	}
	res := instrumentation.Attach(engineKey{}, func() any {
		engine := newEngine(options...)
		instrumentation.Observe(engine)
		instrumentation.InterceptStorage(engine.interceptStorage)
		instrumentation.OnCommit(engine.commit)
		engine.logger.Debug("Storage interception installed", "invalidation", engine.invalidate)
		return engine
	})
	return res.(*Engine), nil
}

func newEngine(options ...Option) *Engine {
	config := config{logger: log.Root(), invalidate: true}
	for _, option := range options {
		option(&config)
	}
	return &Engine{
		overrides:  map[tosca.Address]map[tosca.Key]tosca.Word{},
		written:    map[tosca.Address]map[tosca.Key]struct{}{},
		invalidate: config.invalidate,
		logger:     config.logger,
	}
}

// Register enables overrides for the address. Registering an address twice
// keeps its current overrides.
func (e *Engine) Register(address tosca.Address) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, found := e.overrides[address]; !found {
		e.overrides[address] = map[tosca.Key]tosca.Word{}
		e.logger.Debug("Contract registered for storage overrides", "address", common.ChecksumAddress(address))
	}
}

// Deregister drops the overrides of the address.
func (e *Engine) Deregister(address tosca.Address) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.overrides, address)
}

func (e *Engine) IsRegistered(address tosca.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, found := e.overrides[address]
	return found
}

// Overrides returns the current overrides of the address ordered by key.
func (e *Engine) Overrides(address tosca.Address) []Slot {
	e.mu.Lock()
	defer e.mu.Unlock()
	overrides := e.overrides[address]
	keys := maps.Keys(overrides)
	slices.SortFunc(keys, func(a, b tosca.Key) int {
		return slices.Compare(a[:], b[:])
	})
	res := make([]Slot, 0, len(keys))
	for _, key := range keys {
		res = append(res, Slot{Label: key.String(), Key: key, Value: overrides[key]})
	}
	return res
}

// put merges the slots into the overrides of a registered address. Bits
// not covered by a slot keep the value of the existing override, or zero.
func (e *Engine) put(address tosca.Address, slots []Slot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	overrides, found := e.overrides[address]
	if !found {
		return fmt.Errorf("contract %s is not registered", common.ChecksumAddress(address))
	}
	for _, slot := range slots {
		value := slot.applyTo(overrides[slot.Key])
		overrides[slot.Key] = value
		e.logger.Trace("Storage override", "address", common.ChecksumAddress(address), "label", slot.Label, "key", slot.Key, "value", value)
	}
	return nil
}

func (e *Engine) reset(address tosca.Address) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if overrides, found := e.overrides[address]; found {
		clear(overrides)
	}
}

// lookup returns the override of the slot unless the current run has
// written to it.
func (e *Engine) lookup(address tosca.Address, key tosca.Key) (tosca.Word, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, written := e.written[address][key]; written && e.running {
		return tosca.Word{}, false
	}
	value, found := e.overrides[address][key]
	return value, found
}

// markWritten records a write of the current run to an overridden slot.
func (e *Engine) markWritten(address tosca.Address, key tosca.Key) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, found := e.overrides[address][key]; !found {
		return false
	}
	if e.written[address] == nil {
		e.written[address] = map[tosca.Key]struct{}{}
	}
	e.written[address][key] = struct{}{}
	return true
}

// commit drops the overrides written by the last run.
func (e *Engine) commit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for address, keys := range e.written {
		for key := range keys {
			if _, found := e.overrides[address][key]; found {
				delete(e.overrides[address], key)
				e.logger.Debug("Storage override invalidated by write", "address", common.ChecksumAddress(address), "key", key)
			}
		}
	}
	clear(e.written)
}

func (e *Engine) BeforeTransaction(tosca.Transaction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.written)
	e.running = true
}

func (e *Engine) BeforeMessage(*tosca.Message) {}

func (e *Engine) AfterMessage(message *tosca.Message, _ *tosca.MessageResult) {
	if message.Depth != 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
}

func (e *Engine) interceptStorage(next tosca.StorageAccessor) tosca.StorageAccessor {
	return &overlay{engine: e, next: next}
}

// overlay answers reads of overridden slots and forwards everything else.
type overlay struct {
	engine *Engine
	next   tosca.StorageAccessor
}

func (o *overlay) GetStorage(address tosca.Address, key tosca.Key) tosca.Word {
	if value, found := o.engine.lookup(address, key); found {
		return value
	}
	return o.next.GetStorage(address, key)
}

func (o *overlay) SetStorage(address tosca.Address, key tosca.Key, value tosca.Word) tosca.StorageStatus {
	status := o.next.SetStorage(address, key, value)
	if o.engine.invalidate && o.engine.markWritten(address, key) {
		o.engine.logger.Trace("Overridden slot written", "address", common.ChecksumAddress(address), "key", key)
	}
	return status
}
