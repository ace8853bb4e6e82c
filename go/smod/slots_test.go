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
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/Fantom-foundation/smock/go/artifact"
	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// testLayout describes
//
//	uint256 total;                                              // slot 0
//	uint128 low; uint64 mid; bool flag;                         // slot 1
//	mapping(address => uint256) balances;                       // slot 2
//	mapping(address => mapping(address => uint256)) allowance;  // slot 3
//	Info info;                                                  // slot 4, 5
//	mapping(uint256 => Info) infos;                             // slot 6
//	uint256[3] fixed;                                           // slot 7 - 9
//	uint256[] list;                                             // slot 10
//	string name;                                                // slot 11
//	mapping(string => uint256) byName;                          // slot 12
//	int8 small;                                                 // slot 13
//	mapping(bytes4 => bool) interfaces;                         // slot 14
//	uint8[4] octets;                                            // slot 15
//
// with struct Info { uint256 x; uint8 y; address owner; }.
func testLayout() *artifact.StorageLayout {
	return &artifact.StorageLayout{
		Storage: []artifact.Variable{
			{Label: "total", Slot: "0", Type: "t_uint256"},
			{Label: "low", Slot: "1", Type: "t_uint128"},
			{Label: "mid", Slot: "1", Offset: 16, Type: "t_uint64"},
			{Label: "flag", Slot: "1", Offset: 24, Type: "t_bool"},
			{Label: "balances", Slot: "2", Type: "t_mapping(t_address,t_uint256)"},
			{Label: "allowance", Slot: "3", Type: "t_mapping(t_address,t_mapping(t_address,t_uint256))"},
			{Label: "info", Slot: "4", Type: "t_struct(Info)"},
			{Label: "infos", Slot: "6", Type: "t_mapping(t_uint256,t_struct(Info))"},
			{Label: "fixed", Slot: "7", Type: "t_array(t_uint256)3_storage"},
			{Label: "list", Slot: "10", Type: "t_array(t_uint256)dyn_storage"},
			{Label: "name", Slot: "11", Type: "t_string_storage"},
			{Label: "byName", Slot: "12", Type: "t_mapping(t_string_memory_ptr,t_uint256)"},
			{Label: "small", Slot: "13", Type: "t_int8"},
			{Label: "interfaces", Slot: "14", Type: "t_mapping(t_bytes4,t_bool)"},
			{Label: "octets", Slot: "15", Type: "t_array(t_uint8)4_storage"},
		},
		Types: map[string]artifact.Type{
			"t_uint256": {Encoding: "inplace", Label: "uint256", NumberOfBytes: "32"},
			"t_uint128": {Encoding: "inplace", Label: "uint128", NumberOfBytes: "16"},
			"t_uint64":  {Encoding: "inplace", Label: "uint64", NumberOfBytes: "8"},
			"t_uint8":   {Encoding: "inplace", Label: "uint8", NumberOfBytes: "1"},
			"t_int8":    {Encoding: "inplace", Label: "int8", NumberOfBytes: "1"},
			"t_bool":    {Encoding: "inplace", Label: "bool", NumberOfBytes: "1"},
			"t_address": {Encoding: "inplace", Label: "address", NumberOfBytes: "20"},
			"t_bytes4":  {Encoding: "inplace", Label: "bytes4", NumberOfBytes: "4"},
			"t_mapping(t_address,t_uint256)": {
				Encoding: "mapping", Label: "mapping(address => uint256)", NumberOfBytes: "32",
				Key: "t_address", Value: "t_uint256",
			},
			"t_mapping(t_address,t_mapping(t_address,t_uint256))": {
				Encoding: "mapping", Label: "mapping(address => mapping(address => uint256))", NumberOfBytes: "32",
				Key: "t_address", Value: "t_mapping(t_address,t_uint256)",
			},
			"t_struct(Info)": {
				Encoding: "inplace", Label: "struct Info", NumberOfBytes: "64",
				Members: []artifact.Variable{
					{Label: "x", Slot: "0", Type: "t_uint256"},
					{Label: "y", Slot: "1", Type: "t_uint8"},
					{Label: "owner", Slot: "1", Offset: 1, Type: "t_address"},
				},
			},
			"t_mapping(t_uint256,t_struct(Info))": {
				Encoding: "mapping", Label: "mapping(uint256 => struct Info)", NumberOfBytes: "32",
				Key: "t_uint256", Value: "t_struct(Info)",
			},
			"t_array(t_uint256)3_storage": {
				Encoding: "inplace", Label: "uint256[3]", NumberOfBytes: "96", Base: "t_uint256",
			},
			"t_array(t_uint256)dyn_storage": {
				Encoding: "dynamic_array", Label: "uint256[]", NumberOfBytes: "32", Base: "t_uint256",
			},
			"t_array(t_uint8)4_storage": {
				Encoding: "inplace", Label: "uint8[4]", NumberOfBytes: "32", Base: "t_uint8",
			},
			"t_string_storage":    {Encoding: "bytes", Label: "string", NumberOfBytes: "32"},
			"t_string_memory_ptr": {Encoding: "bytes", Label: "string", NumberOfBytes: "32"},
			"t_mapping(t_string_memory_ptr,t_uint256)": {
				Encoding: "mapping", Label: "mapping(string => uint256)", NumberOfBytes: "32",
				Key: "t_string_memory_ptr", Value: "t_uint256",
			},
			"t_mapping(t_bytes4,t_bool)": {
				Encoding: "mapping", Label: "mapping(bytes4 => bool)", NumberOfBytes: "32",
				Key: "t_bytes4", Value: "t_bool",
			},
		},
	}
}

const (
	alice = "0x00000000000000000000000000000000000a11ce"
	bob   = "0x0000000000000000000000000000000000000b0b"
)

func pad(value []byte) []byte {
	return common.LeftPadBytes(value, 32)
}

func slotKey(slot int64) []byte {
	return pad(big.NewInt(slot).Bytes())
}

func toKey(data []byte) tosca.Key {
	return tosca.Key(common.BytesToHash(data))
}

func toWord(value int64) tosca.Word {
	return tosca.Word(common.BigToHash(big.NewInt(value)))
}

func offsetKey(base []byte, delta int64) tosca.Key {
	res := new(big.Int).Add(new(big.Int).SetBytes(base), big.NewInt(delta))
	return toKey(res.Bytes())
}

func TestResolveSlots_DerivesSlotOfEachVariableKind(t *testing.T) {
	addressOf := func(text string) []byte {
		return common.HexToAddress(text).Bytes()
	}
	infoSlot := crypto.Keccak256(slotKey(7), slotKey(6))
	listBase := crypto.Keccak256(slotKey(10))

	tests := map[string]struct {
		values map[string]any
		key    tosca.Key
		value  tosca.Word
	}{
		"scalar": {
			values: map[string]any{"total": 42},
			key:    toKey(slotKey(0)),
			value:  toWord(42),
		},
		"mapping": {
			values: map[string]any{"balances": map[string]any{alice: 5}},
			key:    toKey(crypto.Keccak256(pad(addressOf(alice)), slotKey(2))),
			value:  toWord(5),
		},
		"nested mapping": {
			values: map[string]any{"allowance": map[string]any{alice: map[string]any{bob: 7}}},
			key: toKey(crypto.Keccak256(
				pad(addressOf(bob)),
				crypto.Keccak256(pad(addressOf(alice)), slotKey(3)),
			)),
			value: toWord(7),
		},
		"struct member": {
			values: map[string]any{"info": map[string]any{"x": 3}},
			key:    toKey(slotKey(4)),
			value:  toWord(3),
		},
		"member of struct in mapping": {
			values: map[string]any{"infos": map[string]any{"7": map[string]any{"y": 9}}},
			key:    offsetKey(infoSlot, 1),
			value:  toWord(9),
		},
		"fixed array element": {
			values: map[string]any{"fixed": map[string]any{"2": 11}},
			key:    toKey(slotKey(9)),
			value:  toWord(11),
		},
		"dynamic array element": {
			values: map[string]any{"list": map[string]any{"0": 12}},
			key:    toKey(listBase),
			value:  toWord(12),
		},
		"string keyed mapping": {
			values: map[string]any{"byName": map[string]any{"carol": 13}},
			key:    toKey(crypto.Keccak256([]byte("carol"), slotKey(12))),
			value:  toWord(13),
		},
		"bytes4 keyed mapping": {
			values: map[string]any{"interfaces": map[string]any{"0x01ffc9a7": true}},
			key:    toKey(crypto.Keccak256(common.RightPadBytes([]byte{0x01, 0xff, 0xc9, 0xa7}, 32), slotKey(14))),
			value:  toWord(1),
		},
		"short string": {
			values: map[string]any{"name": "hello"},
			key:    toKey(slotKey(11)),
			value:  tosca.Word(common.BytesToHash(append(common.RightPadBytes([]byte("hello"), 31), 10))),
		},
		"short hex is left padded": {
			values: map[string]any{"total": "0x1234"},
			key:    toKey(slotKey(0)),
			value:  toWord(0x1234),
		},
		"decimal string": {
			values: map[string]any{"total": "1000000000000000000000"},
			key:    toKey(slotKey(0)),
			value:  tosca.Word(common.BigToHash(new(big.Int).Exp(big.NewInt(10), big.NewInt(21), nil))),
		},
		"negative integer": {
			values: map[string]any{"small": -1},
			key:    toKey(slotKey(13)),
			value:  toWord(0xff),
		},
		"uint256 value": {
			values: map[string]any{"total": uint256.NewInt(77)},
			key:    toKey(slotKey(0)),
			value:  toWord(77),
		},
		"large float from JSON": {
			values: map[string]any{"total": 1e20},
			key:    toKey(slotKey(0)),
			value:  tosca.Word(common.BigToHash(new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil))),
		},
		"dynamic array length": {
			values: map[string]any{"list": 3},
			key:    toKey(slotKey(10)),
			value:  toWord(3),
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			slots, err := ResolveSlots(testLayout(), test.values)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want, got := 1, len(slots); want != got {
				t.Fatalf("unexpected number of slots, wanted %d, got %d", want, got)
			}
			if want, got := test.key, slots[0].Key; want != got {
				t.Errorf("unexpected key, wanted %v, got %v", want, got)
			}
			if want, got := test.value, slots[0].Value; want != got {
				t.Errorf("unexpected value, wanted %v, got %v", want, got)
			}
		})
	}
}

func TestResolveSlots_MergesPackedMembers(t *testing.T) {
	slots, err := ResolveSlots(testLayout(), map[string]any{
		"low":  1,
		"mid":  2,
		"flag": true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := 1, len(slots); want != got {
		t.Fatalf("unexpected number of slots, wanted %d, got %d", want, got)
	}
	want := new(big.Int).Lsh(big.NewInt(1), 24*8)
	want.Or(want, new(big.Int).Lsh(big.NewInt(2), 16*8))
	want.Or(want, big.NewInt(1))
	if want, got := tosca.Word(common.BigToHash(want)), slots[0].Value; want != got {
		t.Errorf("unexpected packed value, wanted %v, got %v", want, got)
	}
}

func TestResolveSlots_MaskCoversAssignedMembersOnly(t *testing.T) {
	slots, err := ResolveSlots(testLayout(), map[string]any{"mid": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := 1, len(slots); want != got {
		t.Fatalf("unexpected number of slots, wanted %d, got %d", want, got)
	}
	mask := new(big.Int).Lsh(big.NewInt(1), 64)
	mask.Sub(mask, big.NewInt(1))
	mask.Lsh(mask, 16*8)
	if want, got := tosca.Word(common.BigToHash(mask)), slots[0].Mask; want != got {
		t.Errorf("unexpected mask, wanted %v, got %v", want, got)
	}

	live := toWord(0xff)
	live[15] = 0x02 // mid = 2
	if !slots[0].matches(live) {
		t.Errorf("neighbor bits should be ignored by matches")
	}
	if want, got := live, slots[0].applyTo(toWord(0xff)); want != got {
		t.Errorf("unexpected merged word, wanted %v, got %v", want, got)
	}

	slots, err = ResolveSlots(testLayout(), map[string]any{"total": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slots[0].partial() {
		t.Errorf("full slot reported as partial")
	}
}

func TestResolveSlots_ListsAssignDynamicArrayLength(t *testing.T) {
	base := crypto.Keccak256(slotKey(10))
	tests := map[string]struct {
		values map[string]any
		want   []Slot
	}{
		"elements and length": {
			values: map[string]any{"list": []any{12, 13}},
			want: []Slot{
				{Label: "list", Key: toKey(slotKey(10)), Value: toWord(2)},
				{Label: "list.0", Key: toKey(base), Value: toWord(12)},
				{Label: "list.1", Key: offsetKey(base, 1), Value: toWord(13)},
			},
		},
		"empty list": {
			values: map[string]any{"list": []any{}},
			want: []Slot{
				{Label: "list", Key: toKey(slotKey(10)), Value: toWord(0)},
			},
		},
		"typed slice": {
			values: map[string]any{"list": []int{7}},
			want: []Slot{
				{Label: "list", Key: toKey(slotKey(10)), Value: toWord(1)},
				{Label: "list.0", Key: toKey(base), Value: toWord(7)},
			},
		},
		"static arrays have no length": {
			values: map[string]any{"fixed": []any{1}},
			want: []Slot{
				{Label: "fixed.0", Key: toKey(slotKey(7)), Value: toWord(1)},
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			slots, err := ResolveSlots(testLayout(), test.values)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want, got := len(test.want), len(slots); want != got {
				t.Fatalf("unexpected number of slots, wanted %d, got %d: %v", want, got, slots)
			}
			for i, want := range test.want {
				got := slots[i]
				if want.Label != got.Label || want.Key != got.Key || want.Value != got.Value {
					t.Errorf("unexpected slot %d, wanted %v, got %v", i, want, got)
				}
			}
		})
	}
}

func TestResolveSlots_PacksSmallArrayElements(t *testing.T) {
	slots, err := ResolveSlots(testLayout(), map[string]any{
		"octets": []any{0x11, 0x22},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := 1, len(slots); want != got {
		t.Fatalf("unexpected number of slots, wanted %d, got %d", want, got)
	}
	if want, got := toWord(0x2211), slots[0].Value; want != got {
		t.Errorf("unexpected packed value, wanted %v, got %v", want, got)
	}
}

func TestResolveSlots_MembersOfOneStructUseConsecutiveSlots(t *testing.T) {
	owner := common.HexToAddress(alice)
	slots, err := ResolveSlots(testLayout(), map[string]any{
		"info": map[string]any{"x": 1, "y": 2, "owner": alice},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := 2, len(slots); want != got {
		t.Fatalf("unexpected number of slots, wanted %d, got %d", want, got)
	}
	packed := new(big.Int).Lsh(new(big.Int).SetBytes(owner.Bytes()), 8)
	packed.Or(packed, big.NewInt(2))
	// Leaves are visited in the order owner, x, y.
	if want, got := toKey(slotKey(5)), slots[0].Key; want != got {
		t.Errorf("unexpected key of owner, wanted %v, got %v", want, got)
	}
	if want, got := tosca.Word(common.BigToHash(packed)), slots[0].Value; want != got {
		t.Errorf("unexpected value of second slot, wanted %v, got %v", want, got)
	}
	if want, got := toKey(slotKey(4)), slots[1].Key; want != got {
		t.Errorf("unexpected key of x, wanted %v, got %v", want, got)
	}
}

func TestResolveSlots_IsDeterministic(t *testing.T) {
	values := map[string]any{
		"total":     1,
		"balances":  map[string]any{alice: 2, bob: 3},
		"allowance": map[string]any{alice: map[string]any{bob: 4}},
		"infos":     map[string]any{"1": map[string]any{"x": 5, "owner": bob}},
	}
	first, err := ResolveSlots(testLayout(), values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		next, err := ResolveSlots(testLayout(), values)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want, got := len(first), len(next); want != got {
			t.Fatalf("unexpected number of slots, wanted %d, got %d", want, got)
		}
		for j := range first {
			if first[j] != next[j] {
				t.Errorf("resolution %d differs at %d: %v vs %v", i, j, first[j], next[j])
			}
		}
	}
}

func TestResolveSlots_ReportsInvalidAssignments(t *testing.T) {
	tests := map[string]struct {
		values map[string]any
		want   error
	}{
		"unknown variable": {
			values: map[string]any{"missing": 1},
			want:   ErrUnknownVariable,
		},
		"unknown struct member": {
			values: map[string]any{"info": map[string]any{"z": 1}},
			want:   ErrUnknownMember,
		},
		"member of scalar": {
			values: map[string]any{"total": map[string]any{"x": 1}},
			want:   ErrUnknownMember,
		},
		"array index out of range": {
			values: map[string]any{"fixed": map[string]any{"3": 1}},
			want:   ErrUnknownMember,
		},
		"non numeric array index": {
			values: map[string]any{"list": map[string]any{"first": 1}},
			want:   ErrUnknownMember,
		},
		"struct as leaf": {
			values: map[string]any{"info": 1},
			want:   ErrUnsupportedEncoding,
		},
		"value exceeding type": {
			values: map[string]any{"mid": new(big.Int).Lsh(big.NewInt(1), 64)},
			want:   ErrUnsupportedEncoding,
		},
		"long string": {
			values: map[string]any{"name": "this string is too long to be stored in place"},
			want:   ErrUnsupportedEncoding,
		},
		"text for number": {
			values: map[string]any{"total": "many"},
			want:   ErrUnsupportedEncoding,
		},
		"fractional number": {
			values: map[string]any{"total": 1.5},
			want:   ErrUnsupportedEncoding,
		},
		"infinite number": {
			values: map[string]any{"total": math.Inf(1)},
			want:   ErrUnsupportedEncoding,
		},
		"member of list element": {
			values: map[string]any{"list": map[string]any{"0": map[string]any{"x": 1}}},
			want:   ErrUnknownMember,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ResolveSlots(testLayout(), test.values); !errors.Is(err, test.want) {
				t.Errorf("unexpected error, wanted %v, got %v", test.want, err)
			}
		})
	}
}

func TestResolveSlots_InvalidMappingKeysAreReported(t *testing.T) {
	values := map[string]any{"balances": map[string]any{"not an address": 1}}
	if _, err := ResolveSlots(testLayout(), values); err == nil {
		t.Errorf("expected an error")
	}
}

func TestResolveSlots_RequiresLayout(t *testing.T) {
	if _, err := ResolveSlots(nil, map[string]any{"total": 1}); !errors.Is(err, artifact.ErrNoStorageLayout) {
		t.Errorf("unexpected error, wanted %v, got %v", artifact.ErrNoStorageLayout, err)
	}
}
