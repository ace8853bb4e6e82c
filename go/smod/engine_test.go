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
	"errors"
	"testing"

	"github.com/Fantom-foundation/smock/go/artifact"
	"github.com/Fantom-foundation/smock/go/chain"
	"github.com/Fantom-foundation/smock/go/common"
	"github.com/Fantom-foundation/smock/go/contract"
	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"go.uber.org/mock/gomock"
)

// counterCode returns slot 0 when called without input and stores the
// first input word in slot 0 otherwise.
var counterCode = tosca.Code{
	0x36, 0x60, 0x0f, 0x57, // JUMPI(15, CALLDATASIZE)
	0x60, 0x00, 0x54, 0x60, 0x00, 0x52, // MSTORE(0, SLOAD(0))
	0x60, 0x20, 0x60, 0x00, 0xf3, // RETURN(0, 32)
	0x5b, 0x60, 0x00, 0x35, 0x60, 0x00, 0x55, 0x00, // JUMPDEST SSTORE(0, CALLDATALOAD(0)) STOP
}

func deployCode(runtime tosca.Code) tosca.Code {
	size := byte(len(runtime))
	init := tosca.Code{
		0x60, size, 0x60, 0x0c, 0x60, 0x00, 0x39, // CODECOPY(0, 12, size)
		0x60, size, 0x60, 0x00, 0xf3, // RETURN(0, size)
	}
	return append(init, runtime...)
}

func counterLayout() *artifact.StorageLayout {
	return &artifact.StorageLayout{
		Storage: []artifact.Variable{
			{Label: "count", Slot: "0", Type: "t_uint256"},
			{Label: "other", Slot: "1", Type: "t_uint256"},
		},
		Types: map[string]artifact.Type{
			"t_uint256": {Encoding: "inplace", Label: "uint256", NumberOfBytes: "32"},
		},
	}
}

// packedLayout declares uint8 low and uint16 mid sharing slot 0.
func packedLayout() *artifact.StorageLayout {
	return &artifact.StorageLayout{
		Storage: []artifact.Variable{
			{Label: "low", Slot: "0", Type: "t_uint8"},
			{Label: "mid", Slot: "0", Offset: 1, Type: "t_uint16"},
		},
		Types: map[string]artifact.Type{
			"t_uint8":  {Encoding: "inplace", Label: "uint8", NumberOfBytes: "1"},
			"t_uint16": {Encoding: "inplace", Label: "uint16", NumberOfBytes: "2"},
		},
	}
}

type counter struct {
	*ModifiableContract
	backend *chain.Chain
}

func newCounter(t *testing.T, options ...Option) counter {
	t.Helper()
	return newCounterWithLayout(t, counterLayout(), options...)
}

func newCounterWithLayout(t *testing.T, layout *artifact.StorageLayout, options ...Option) counter {
	t.Helper()
	backend := chain.New()
	engine, err := Initialize(backend.Processor(), options...)
	if err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}
	address := tosca.Address{0xc0}
	backend.SetCode(address, counterCode)
	backend.SetStorage(address, tosca.Key{}, toWord(1))
	modifiable, err := engine.Modifiable(contract.Bind(address, abi.ABI{}, backend), layout)
	if err != nil {
		t.Fatalf("failed to register contract: %v", err)
	}
	return counter{modifiable, backend}
}

func (c counter) read(t *testing.T) tosca.Word {
	t.Helper()
	output, err := c.CallRaw(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	return tosca.Word(output)
}

func (c counter) write(t *testing.T, value int64) {
	t.Helper()
	input := toWord(value)
	if _, err := c.TransactRaw(context.Background(), input[:]); err != nil {
		t.Fatalf("failed to write counter: %v", err)
	}
}

func TestEngine_OverridesTakePrecedenceOverStorage(t *testing.T) {
	c := newCounter(t)
	if err := c.Put(map[string]any{"count": 7}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := toWord(7), c.read(t); want != got {
		t.Errorf("unexpected value read by code, wanted %v, got %v", want, got)
	}
	if want, got := toWord(7), c.backend.GetStorage(c.Address(), tosca.Key{}); want != got {
		t.Errorf("unexpected live storage, wanted %v, got %v", want, got)
	}
	if want, got := toWord(1), c.backend.GetRawStorage(c.Address(), tosca.Key{}); want != got {
		t.Errorf("override leaked into the state, wanted %v, got %v", want, got)
	}
}

func TestEngine_WritesInvalidateOverrides(t *testing.T) {
	c := newCounter(t)
	if err := c.Put(map[string]any{"count": 7, "other": 8}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.write(t, 9)
	if want, got := toWord(9), c.read(t); want != got {
		t.Errorf("stale override returned, wanted %v, got %v", want, got)
	}
	if want, got := 1, len(c.Overrides()); want != got {
		t.Errorf("unexpected number of remaining overrides, wanted %d, got %d", want, got)
	}
}

func TestEngine_SimulatedWritesKeepOverrides(t *testing.T) {
	c := newCounter(t)
	if err := c.Put(map[string]any{"count": 7}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	input := toWord(9)
	if _, err := c.CallRaw(context.Background(), input[:]); err != nil {
		t.Fatalf("failed to simulate write: %v", err)
	}
	if want, got := toWord(7), c.read(t); want != got {
		t.Errorf("override dropped by simulated write, wanted %v, got %v", want, got)
	}
	if want, got := 1, len(c.Overrides()); want != got {
		t.Errorf("unexpected number of overrides, wanted %d, got %d", want, got)
	}

	c.write(t, 9)
	if want, got := toWord(9), c.read(t); want != got {
		t.Errorf("committed write did not invalidate override, wanted %v, got %v", want, got)
	}
}

func TestEngine_OverridesSurviveWritesWithoutInvalidation(t *testing.T) {
	c := newCounter(t, WithWriteInvalidation(false))
	if err := c.Put(map[string]any{"count": 7}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.write(t, 9)
	if want, got := toWord(7), c.read(t); want != got {
		t.Errorf("override not retained, wanted %v, got %v", want, got)
	}
	if want, got := toWord(9), c.backend.GetRawStorage(c.Address(), tosca.Key{}); want != got {
		t.Errorf("write not applied to the state, wanted %v, got %v", want, got)
	}
}

func TestModifiableContract_SetReplacesAndPutMerges(t *testing.T) {
	c := newCounter(t)
	if err := c.Put(map[string]any{"count": 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Put(map[string]any{"other": 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := 2, len(c.Overrides()); want != got {
		t.Fatalf("put did not merge, wanted %d overrides, got %d", want, got)
	}
	if err := c.Set(map[string]any{"other": 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := toWord(1), c.read(t); want != got {
		t.Errorf("set kept old override, wanted %v, got %v", want, got)
	}
	if want, got := 1, len(c.Overrides()); want != got {
		t.Errorf("unexpected number of overrides, wanted %d, got %d", want, got)
	}
	c.Reset()
	if want, got := 0, len(c.Overrides()); want != got {
		t.Errorf("reset kept %d overrides", got)
	}
}

func TestModifiableContract_CheckComparesLiveStorage(t *testing.T) {
	c := newCounter(t)
	if err := c.Put(map[string]any{"other": 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tests := map[string]struct {
		values map[string]any
		want   bool
	}{
		"stored value":          {values: map[string]any{"count": 1}, want: true},
		"overridden value":      {values: map[string]any{"other": 5}, want: true},
		"both":                  {values: map[string]any{"count": 1, "other": 5}, want: true},
		"wrong stored value":    {values: map[string]any{"count": 2}, want: false},
		"one of two mismatches": {values: map[string]any{"count": 1, "other": 6}, want: false},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := c.Check(test.values)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want := test.want; want != got {
				t.Errorf("unexpected check result, wanted %t, got %t", want, got)
			}
		})
	}
}

func TestModifiableContract_PackedMembersAreCheckedAndPutIndividually(t *testing.T) {
	c := newCounterWithLayout(t, packedLayout())
	c.backend.SetStorage(c.Address(), tosca.Key{}, toWord(0x0201))

	check := func(values map[string]any, want bool) {
		t.Helper()
		got, err := c.Check(values)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want != got {
			t.Errorf("unexpected check result of %v, wanted %t, got %t", values, want, got)
		}
	}
	check(map[string]any{"low": 1}, true)
	check(map[string]any{"mid": 2}, true)
	check(map[string]any{"low": 2}, false)

	if err := c.Put(map[string]any{"low": 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := toWord(0x0205), c.read(t); want != got {
		t.Errorf("neighbor lost by put, wanted %v, got %v", want, got)
	}
	if err := c.Put(map[string]any{"mid": 6}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := toWord(0x0605), c.read(t); want != got {
		t.Errorf("earlier put lost, wanted %v, got %v", want, got)
	}
	check(map[string]any{"low": 5}, true)
	check(map[string]any{"low": 5, "mid": 6}, true)
}

func TestEngine_PutMergesPartialSlotsIntoOverrides(t *testing.T) {
	engine := newEngine()
	address := tosca.Address{1}
	engine.Register(address)
	for _, values := range []map[string]any{{"low": 5}, {"mid": 6}} {
		slots, err := ResolveSlots(packedLayout(), values)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := engine.put(address, slots); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	overrides := engine.Overrides(address)
	if want, got := 1, len(overrides); want != got {
		t.Fatalf("unexpected number of overrides, wanted %d, got %d", want, got)
	}
	if want, got := toWord(0x0605), overrides[0].Value; want != got {
		t.Errorf("unexpected merged override, wanted %v, got %v", want, got)
	}
}

func TestModifiableContract_ConfigurationErrorsAreReported(t *testing.T) {
	c := newCounter(t)
	if err := c.Put(map[string]any{"missing": 1}); !errors.Is(err, ErrUnknownVariable) {
		t.Errorf("unexpected error of put, wanted %v, got %v", ErrUnknownVariable, err)
	}
	if err := c.Set(map[string]any{"count": "zero"}); !errors.Is(err, ErrUnsupportedEncoding) {
		t.Errorf("unexpected error of set, wanted %v, got %v", ErrUnsupportedEncoding, err)
	}
	if _, err := c.Check(map[string]any{"missing": 1}); !errors.Is(err, ErrUnknownVariable) {
		t.Errorf("unexpected error of check, wanted %v, got %v", ErrUnknownVariable, err)
	}
}

func TestModifiableContract_CheckRequiresStorageReader(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := newEngine()
	modifiable, err := engine.Modifiable(contract.Bind(tosca.Address{1}, abi.ABI{}, contract.NewMockBackend(ctrl)), counterLayout())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := modifiable.Check(map[string]any{"count": 1}); !errors.Is(err, ErrIntegration) {
		t.Errorf("unexpected error, wanted %v, got %v", ErrIntegration, err)
	}
}

func TestEngine_InitializeIsIdempotent(t *testing.T) {
	backend := chain.New()
	first, err := Initialize(backend.Processor())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Initialize(backend.Processor(), WithWriteInvalidation(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("repeated initialization created a new engine")
	}
	if !second.invalidate {
		t.Errorf("options of repeated initialization were applied")
	}
}

func TestEngine_InitializeRequiresInstrumentation(t *testing.T) {
	ctrl := gomock.NewController(t)
	if _, err := Initialize(tosca.NewMockProcessor(ctrl)); !errors.Is(err, ErrIntegration) {
		t.Errorf("unexpected error, wanted %v, got %v", ErrIntegration, err)
	}
}

func TestEngine_PutRequiresRegistration(t *testing.T) {
	engine := newEngine()
	if err := engine.put(tosca.Address{1}, []Slot{{Key: tosca.Key{1}}}); err == nil {
		t.Errorf("expected an error")
	}
	engine.Register(tosca.Address{1})
	if err := engine.put(tosca.Address{1}, []Slot{{Key: tosca.Key{1}}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	engine.Register(tosca.Address{1})
	if want, got := 1, len(engine.Overrides(tosca.Address{1})); want != got {
		t.Errorf("registering again dropped overrides")
	}
	engine.Deregister(tosca.Address{1})
	if engine.IsRegistered(tosca.Address{1}) {
		t.Errorf("address still registered")
	}
}

func TestSmoddit_DeploysModifiableContracts(t *testing.T) {
	backend := chain.New()
	engine, err := Initialize(backend.Processor())
	if err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}
	compiled := &artifact.Artifact{
		ContractName:  "Counter",
		Bytecode:      common.ToHex(deployCode(counterCode)),
		StorageLayout: counterLayout(),
	}
	factory, err := engine.Smoddit(compiled, backend)
	if err != nil {
		t.Fatalf("failed to create factory: %v", err)
	}
	deployed, err := factory.From(tosca.Address{0xee}).Deploy(context.Background())
	if err != nil {
		t.Fatalf("failed to deploy: %v", err)
	}
	if !engine.IsRegistered(deployed.Address()) {
		t.Fatalf("deployed contract not registered")
	}
	if err := deployed.Put(map[string]any{"count": 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := counter{deployed, backend}
	if want, got := toWord(3), c.read(t); want != got {
		t.Errorf("unexpected value, wanted %v, got %v", want, got)
	}
}

func TestSmoddit_RequiresStorageLayout(t *testing.T) {
	engine := newEngine()
	compiled := &artifact.Artifact{ContractName: "Counter", Bytecode: common.ToHex(deployCode(counterCode))}
	if _, err := engine.Smoddit(compiled, nil); !errors.Is(err, artifact.ErrNoStorageLayout) {
		t.Errorf("unexpected error, wanted %v, got %v", artifact.ErrNoStorageLayout, err)
	}
}
