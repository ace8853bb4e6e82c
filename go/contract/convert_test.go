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
	"math/big"
	"reflect"
	"testing"

	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/accounts/abi"
	geth "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func mustType(t *testing.T, name string, components ...abi.ArgumentMarshaling) abi.Type {
	t.Helper()
	res, err := abi.NewType(name, "", components)
	if err != nil {
		t.Fatalf("invalid type %s: %v", name, err)
	}
	return res
}

func TestConvertValue_AcceptsLooseValues(t *testing.T) {
	address := geth.HexToAddress("0x00000000000000000000000000000000000000aa")
	tests := map[string]struct {
		typ   string
		input any
		want  any
	}{
		"uint256 from int":        {"uint256", 1234, big.NewInt(1234)},
		"uint256 from string":     {"uint256", "1234", big.NewInt(1234)},
		"uint256 from hex":        {"uint256", "0x10", big.NewInt(16)},
		"uint256 from float":      {"uint256", float64(7), big.NewInt(7)},
		"uint256 from uint256":    {"uint256", uint256.NewInt(9), big.NewInt(9)},
		"uint256 from value":      {"uint256", tosca.NewValue(3), big.NewInt(3)},
		"uint8 from int":          {"uint8", 200, uint8(200)},
		"int64 from negative":     {"int64", -5, int64(-5)},
		"int256 from negative":    {"int256", "-5", big.NewInt(-5)},
		"bool from bool":          {"bool", true, true},
		"bool from string":        {"bool", "false", false},
		"bool from int":           {"bool", 1, true},
		"string":                  {"string", "hello", "hello"},
		"address from string":     {"address", "0x00000000000000000000000000000000000000aa", address},
		"address from tosca":      {"address", tosca.Address(address), address},
		"bytes from hex":          {"bytes", "0x0102", []byte{1, 2}},
		"bytes4 from hex":         {"bytes4", "0x0102", [4]byte{1, 2}},
		"bytes32 from word":       {"bytes32", tosca.Word{31: 1}, [32]byte{31: 1}},
		"uint256[] from ints":     {"uint256[]", []int{1, 2}, []*big.Int{big.NewInt(1), big.NewInt(2)}},
		"uint8[2] from any slice": {"uint8[2]", []any{1, "2"}, [2]uint8{1, 2}},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ConvertValue(mustType(t, test.typ), test.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want := test.want; !reflect.DeepEqual(want, got) {
				t.Errorf("unexpected result, wanted %v (%T), got %v (%T)", want, want, got, got)
			}
		})
	}
}

func TestConvertValue_RejectsInvalidValues(t *testing.T) {
	tests := map[string]struct {
		typ   string
		input any
	}{
		"negative uint":       {"uint256", -1},
		"uint8 overflow":      {"uint8", 256},
		"int8 overflow":       {"int8", 128},
		"non-integral float":  {"uint256", 1.5},
		"text as integer":     {"uint256", "abc"},
		"bool from 2":         {"bool", 2},
		"bad address":         {"address", "0x1234"},
		"bytes from plain":    {"bytes", "hello"},
		"bytes2 too long":     {"bytes2", "0x010203"},
		"array length":        {"uint8[2]", []int{1}},
		"scalar as list":      {"uint256[]", 5},
		"nil value":           {"uint256", nil},
		"string from integer": {"string", 5},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ConvertValue(mustType(t, test.typ), test.input); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestConvertValue_TuplesFromMapsSlicesAndStructs(t *testing.T) {
	typ := mustType(t, "tuple",
		abi.ArgumentMarshaling{Name: "amount", Type: "uint256"},
		abi.ArgumentMarshaling{Name: "flag", Type: "bool"},
	)
	type pair struct {
		Amount *big.Int
		Flag   bool
	}
	inputs := map[string]any{
		"map":    map[string]any{"amount": 5, "flag": true},
		"slice":  []any{"5", true},
		"struct": pair{Amount: big.NewInt(5), Flag: true},
		"ptr":    &pair{Amount: big.NewInt(5), Flag: true},
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := ConvertValue(typ, input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			packed, err := abi.Arguments{{Type: typ}}.Pack(got)
			if err != nil {
				t.Fatalf("converted tuple cannot be packed: %v", err)
			}
			if want, got := 64, len(packed); want != got {
				t.Errorf("unexpected encoding length, wanted %d, got %d", want, got)
			}
		})
	}

	if _, err := ConvertValue(typ, map[string]any{"amount": 5}); err == nil {
		t.Errorf("expected error for missing component")
	}
}

func TestConvert_ChecksArgumentCount(t *testing.T) {
	arguments := abi.Arguments{{Name: "a", Type: mustType(t, "uint256")}}
	if _, err := Convert(arguments); err == nil {
		t.Errorf("expected error for missing argument")
	}
	res, err := Convert(arguments, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := big.NewInt(1), res[0]; !reflect.DeepEqual(want, got) {
		t.Errorf("unexpected result, wanted %v, got %v", want, got)
	}
}
