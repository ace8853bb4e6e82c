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
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/Fantom-foundation/smock/go/artifact"
	"github.com/Fantom-foundation/smock/go/common"
	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Slot is a single storage assignment derived from a value tree.
type Slot struct {
	Label string // dotted path of the value in the tree
	Key   tosca.Key
	Value tosca.Word
	// Mask selects the bits of Value assigned by the tree. Packed members
	// missing from the tree are not covered. A zero mask covers the word.
	Mask tosca.Word
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %v %v", s.Label, s.Key, s.Value)
}

func (s Slot) mask() *uint256.Int {
	if s.Mask == (tosca.Word{}) {
		return new(uint256.Int).SetAllOne()
	}
	return new(uint256.Int).SetBytes32(s.Mask[:])
}

// partial reports whether the slot leaves bits of the word unassigned.
func (s Slot) partial() bool {
	return !new(uint256.Int).Not(s.mask()).IsZero()
}

// applyTo returns base with the bits covered by the slot replaced by its
// value.
func (s Slot) applyTo(base tosca.Word) tosca.Word {
	mask := s.mask()
	res := new(uint256.Int).SetBytes32(base[:])
	res.And(res, new(uint256.Int).Not(mask))
	value := new(uint256.Int).SetBytes32(s.Value[:])
	return res.Or(res, value.And(value, mask)).Bytes32()
}

// matches reports whether word holds the value in the bits covered by the
// slot.
func (s Slot) matches(word tosca.Word) bool {
	return s.applyTo(word) == word
}

// ResolveSlots computes the storage slots written by assigning the given
// value tree to the state variables of the layout. Nested maps address
// struct members and mapping keys, slices address array elements. Assigning
// a slice to a dynamic array also sets its length, as does assigning a
// plain number. Values of members packed into the same slot are merged;
// members not covered by the tree are zero in the resulting slot and left
// out of its mask.
//
// The result is ordered by the first occurrence of each slot in the
// lexicographically sorted leaf paths of the tree.
func ResolveSlots(layout *artifact.StorageLayout, values map[string]any) ([]Slot, error) {
	if layout == nil {
		return nil, artifact.ErrNoStorageLayout
	}
	leaves := flatten(nil, values, nil)

	var res []Slot
	index := map[tosca.Key]int{}
	for _, leaf := range leaves {
		label := strings.Join(leaf.path, ".")
		loc, err := locate(layout, leaf.path)
		if err != nil {
			return nil, err
		}
		if length, ok := leaf.value.(arrayLength); ok {
			// Only dynamic arrays store their length.
			if loc.typ.Encoding != artifact.EncodingDynamicArray {
				continue
			}
			leaf.value = uint64(length)
		}
		value, size, err := encodeValue(loc.typ, leaf.value)
		if err != nil {
			return nil, fmt.Errorf("cannot encode %s: %w", label, err)
		}

		key := tosca.Key(loc.slot.Bytes32())
		pos, found := index[key]
		if !found {
			pos = len(res)
			index[key] = pos
			res = append(res, Slot{Label: label, Key: key})
		}
		word := new(uint256.Int).SetBytes32(res[pos].Value[:])
		res[pos].Value = tosca.Word(merge(word, value, loc.offset, size).Bytes32())
		mask := new(uint256.Int).SetBytes32(res[pos].Mask[:])
		res[pos].Mask = tosca.Word(merge(mask, ones(size), loc.offset, size).Bytes32())
	}
	return res, nil
}

type leaf struct {
	path  []string
	value any
}

// arrayLength is the leaf recorded for the length of a list in the tree.
type arrayLength int

// flatten turns the tree into leaves, visiting map keys in sorted order.
func flatten(path []string, value any, res []leaf) []leaf {
	child := func(segment string) []string {
		return append(slices.Clip(path), segment)
	}
	switch v := value.(type) {
	case map[string]any:
		keys := maps.Keys(v)
		slices.Sort(keys)
		for _, key := range keys {
			res = flatten(child(key), v[key], res)
		}
		return res
	case []any:
		if len(path) > 0 {
			res = append(res, leaf{path: path, value: arrayLength(len(v))})
		}
		for i, element := range v {
			res = flatten(child(strconv.Itoa(i)), element, res)
		}
		return res
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		keys := make([]string, 0, rv.Len())
		for _, key := range rv.MapKeys() {
			keys = append(keys, key.String())
		}
		slices.Sort(keys)
		for _, key := range keys {
			element := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
			res = flatten(child(key), element.Interface(), res)
		}
		return res
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		if len(path) > 0 {
			res = append(res, leaf{path: path, value: arrayLength(rv.Len())})
		}
		for i := 0; i < rv.Len(); i++ {
			res = flatten(child(strconv.Itoa(i)), rv.Index(i).Interface(), res)
		}
		return res
	}
	return append(res, leaf{path: path, value: value})
}

// location is the position of a value within storage.
type location struct {
	slot   *uint256.Int
	offset int // byte offset within the slot, counted from the low order end
	typ    artifact.Type
}

// locate follows the path through the declared types, deriving the slot of
// mapping values and array elements the way the EVM compiler does.
func locate(layout *artifact.StorageLayout, path []string) (location, error) {
	variable, found := layout.Variable(path[0])
	if !found {
		return location{}, fmt.Errorf("%w: %s", ErrUnknownVariable, path[0])
	}
	slot, err := variable.SlotNumber()
	if err != nil {
		return location{}, err
	}
	typ, err := lookupType(layout, variable.Type)
	if err != nil {
		return location{}, err
	}
	loc := location{slot: slot, offset: variable.Offset, typ: typ}

	for i, segment := range path[1:] {
		label := strings.Join(path[:i+2], ".")
		switch {
		case loc.typ.Encoding == artifact.EncodingMapping:
			keyType, err := lookupType(layout, loc.typ.Key)
			if err != nil {
				return location{}, err
			}
			key, err := encodeKey(keyType, segment)
			if err != nil {
				return location{}, fmt.Errorf("invalid key of %s: %w", label, err)
			}
			valueType, err := lookupType(layout, loc.typ.Value)
			if err != nil {
				return location{}, err
			}
			loc = location{slot: mappingSlot(key, loc.slot), typ: valueType}

		case loc.typ.Encoding == artifact.EncodingDynamicArray:
			index, err := strconv.ParseUint(segment, 10, 64)
			if err != nil {
				return location{}, fmt.Errorf("%w: %s is not an array index", ErrUnknownMember, label)
			}
			slotBytes := loc.slot.Bytes32()
			base := new(uint256.Int).SetBytes(keccak(slotBytes[:]))
			if loc, err = element(layout, loc.typ, base, index); err != nil {
				return location{}, err
			}

		case loc.typ.Encoding == artifact.EncodingInplace && len(loc.typ.Members) > 0:
			member, found := loc.typ.Member(segment)
			if !found {
				return location{}, fmt.Errorf("%w: %s", ErrUnknownMember, label)
			}
			memberSlot, err := member.SlotNumber()
			if err != nil {
				return location{}, err
			}
			memberType, err := lookupType(layout, member.Type)
			if err != nil {
				return location{}, err
			}
			loc = location{
				slot:   new(uint256.Int).Add(loc.slot, memberSlot),
				offset: member.Offset,
				typ:    memberType,
			}

		case loc.typ.Encoding == artifact.EncodingInplace && loc.typ.Base != "":
			index, err := strconv.ParseUint(segment, 10, 64)
			if err != nil {
				return location{}, fmt.Errorf("%w: %s is not an array index", ErrUnknownMember, label)
			}
			if length, ok := staticLength(loc.typ); ok && index >= length {
				return location{}, fmt.Errorf("%w: %s exceeds array length %d", ErrUnknownMember, label, length)
			}
			if loc, err = element(layout, loc.typ, loc.slot, index); err != nil {
				return location{}, err
			}

		default:
			return location{}, fmt.Errorf("%w: %s of type %s", ErrUnknownMember, label, loc.typ.Label)
		}
	}
	return loc, nil
}

func lookupType(layout *artifact.StorageLayout, id string) (artifact.Type, error) {
	res, found := layout.Type(id)
	if !found {
		return artifact.Type{}, fmt.Errorf("%w: undeclared type %s", ErrUnsupportedEncoding, id)
	}
	return res, nil
}

// element locates an array element. Elements smaller than a slot are packed,
// larger elements occupy consecutive slots.
func element(layout *artifact.StorageLayout, array artifact.Type, base *uint256.Int, index uint64) (location, error) {
	typ, err := lookupType(layout, array.Base)
	if err != nil {
		return location{}, err
	}
	size, err := typ.Size()
	if err != nil {
		return location{}, err
	}
	if size <= 0 {
		return location{}, fmt.Errorf("%w: element type %s", ErrUnsupportedEncoding, typ.Label)
	}
	if size >= 32 {
		slots := uint64(size+31) / 32
		offset := new(uint256.Int).Mul(uint256.NewInt(index), uint256.NewInt(slots))
		return location{slot: offset.Add(offset, base), typ: typ}, nil
	}
	perSlot := uint64(32 / size)
	slot := new(uint256.Int).Add(base, uint256.NewInt(index/perSlot))
	return location{slot: slot, offset: int(index%perSlot) * size, typ: typ}, nil
}

// staticLength parses the length of a fixed size array from its label.
func staticLength(typ artifact.Type) (uint64, bool) {
	label := typ.Label
	open := strings.LastIndexByte(label, '[')
	if open < 0 || !strings.HasSuffix(label, "]") {
		return 0, false
	}
	res, err := strconv.ParseUint(label[open+1:len(label)-1], 10, 64)
	return res, err == nil
}

// mappingSlot derives the slot of the value stored under key in the
// mapping at slot.
func mappingSlot(key []byte, slot *uint256.Int) *uint256.Int {
	slotBytes := slot.Bytes32()
	return new(uint256.Int).SetBytes(keccak(key, slotBytes[:]))
}

func keccak(data ...[]byte) []byte {
	hasher := sha3.NewLegacyKeccak256()
	for _, cur := range data {
		hasher.Write(cur)
	}
	return hasher.Sum(nil)
}

// encodeKey encodes a mapping key the way the compiler hashes it: value
// types padded to 32 bytes, strings and byte arrays unpadded.
func encodeKey(typ artifact.Type, key string) ([]byte, error) {
	label := typ.Label
	switch {
	case label == "string":
		return []byte(key), nil
	case label == "bytes":
		return common.FromHex(key)
	case label == "address" || strings.HasPrefix(label, "contract "):
		address, err := common.ParseAddress(key)
		if err != nil {
			return nil, err
		}
		word := common.PadLeft32(address[:])
		return word[:], nil
	case isFixedBytes(label):
		// bytesN keys are left aligned.
		data, err := common.FromHex(key)
		if err != nil {
			return nil, err
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("%w: key %s exceeds 32 bytes", ErrUnsupportedEncoding, key)
		}
		word := common.PadRight32(data)
		return word[:], nil
	}
	value, err := encodeScalar(key)
	if err != nil {
		return nil, err
	}
	word := value.Bytes32()
	return word[:], nil
}

func isFixedBytes(label string) bool {
	if !strings.HasPrefix(label, "bytes") || len(label) == len("bytes") {
		return false
	}
	_, err := strconv.Atoi(label[len("bytes"):])
	return err == nil
}

func isSigned(label string) bool {
	return strings.HasPrefix(label, "int")
}

// encodeValue encodes a leaf value for the given type. It returns the value
// and the number of bytes it occupies in its slot.
func encodeValue(typ artifact.Type, value any) (*uint256.Int, int, error) {
	switch {
	case typ.Encoding == artifact.EncodingBytes:
		res, err := encodeShortBytes(typ, value)
		return res, 32, err
	case typ.Encoding == artifact.EncodingDynamicArray:
		// A number assigned to the array itself is its length.
		res, err := encodeScalar(value)
		return res, 32, err
	case typ.Encoding != artifact.EncodingInplace || len(typ.Members) > 0 || typ.Base != "":
		return nil, 0, fmt.Errorf("%w: %s is not a single value", ErrUnsupportedEncoding, typ.Label)
	}

	size, err := typ.Size()
	if err != nil {
		return nil, 0, err
	}
	if size <= 0 || size > 32 {
		return nil, 0, fmt.Errorf("%w: size %d of %s", ErrUnsupportedEncoding, size, typ.Label)
	}
	res, err := encodeScalar(value)
	if err != nil {
		return nil, 0, err
	}
	if size < 32 {
		mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(size*8))
		mask.Sub(mask, uint256.NewInt(1))
		if isSigned(typ.Label) {
			res.And(res, mask)
		} else if res.Gt(mask) {
			return nil, 0, fmt.Errorf("%w: value exceeds %d bytes of %s", ErrUnsupportedEncoding, size, typ.Label)
		}
	}
	return res, size, nil
}

// encodeScalar converts a leaf value into a 256 bit integer. Hex strings are
// left padded, other strings are parsed as decimal integers and negative
// numbers are stored in two's complement.
func encodeScalar(value any) (*uint256.Int, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return uint256.NewInt(1), nil
		}
		return uint256.NewInt(0), nil
	case string:
		if common.Has0x(v) {
			data, err := common.FromHex(v)
			if err != nil {
				return nil, err
			}
			if len(data) > 32 {
				return nil, fmt.Errorf("%w: %s exceeds 32 bytes", ErrUnsupportedEncoding, v)
			}
			return new(uint256.Int).SetBytes(data), nil
		}
		if b, err := strconv.ParseBool(v); err == nil {
			return encodeScalar(b)
		}
		res, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, fmt.Errorf("%w: %q is neither hex nor a number", ErrUnsupportedEncoding, v)
		}
		return fromBig(res)
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("%w: nil integer", ErrUnsupportedEncoding)
		}
		return fromBig(v)
	case *uint256.Int:
		if v == nil {
			return nil, fmt.Errorf("%w: nil integer", ErrUnsupportedEncoding)
		}
		return new(uint256.Int).Set(v), nil
	case []byte:
		if len(v) > 32 {
			return nil, fmt.Errorf("%w: %d bytes exceed a slot", ErrUnsupportedEncoding, len(v))
		}
		return new(uint256.Int).SetBytes(v), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		// json.Number and other named strings.
		return encodeScalar(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fromBig(big.NewInt(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uint256.NewInt(rv.Uint()), nil
	case reflect.Float64, reflect.Float32:
		// Numbers decoded from JSON.
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: number %v", ErrUnsupportedEncoding, f)
		}
		n := big.NewFloat(f)
		if !n.IsInt() {
			return nil, fmt.Errorf("%w: fractional number %v", ErrUnsupportedEncoding, f)
		}
		res, _ := n.Int(nil)
		return fromBig(res)
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 && rv.Len() <= 32 {
			data := make([]byte, rv.Len())
			for i := range data {
				data[i] = byte(rv.Index(i).Uint())
			}
			return new(uint256.Int).SetBytes(data), nil
		}
	}
	return nil, fmt.Errorf("%w: value of type %T", ErrUnsupportedEncoding, value)
}

func fromBig(value *big.Int) (*uint256.Int, error) {
	if value.Sign() >= 0 {
		res, overflow := uint256.FromBig(value)
		if overflow {
			return nil, fmt.Errorf("%w: %v exceeds 256 bits", ErrUnsupportedEncoding, value)
		}
		return res, nil
	}
	res, overflow := uint256.FromBig(new(big.Int).Neg(value))
	if overflow || res.BitLen() > 255 && !res.Eq(minInt256) {
		return nil, fmt.Errorf("%w: %v exceeds 256 bits", ErrUnsupportedEncoding, value)
	}
	return res.Neg(res), nil
}

var minInt256 = new(uint256.Int).Lsh(uint256.NewInt(1), 255)

// encodeShortBytes encodes strings and byte arrays of less than 32 bytes,
// which are stored in place together with their doubled length.
func encodeShortBytes(typ artifact.Type, value any) (*uint256.Int, error) {
	var data []byte
	switch v := value.(type) {
	case string:
		if typ.Label == "string" {
			data = []byte(v)
		} else {
			decoded, err := common.FromHex(v)
			if err != nil {
				return nil, err
			}
			data = decoded
		}
	case []byte:
		data = v
	default:
		return nil, fmt.Errorf("%w: value of type %T for %s", ErrUnsupportedEncoding, value, typ.Label)
	}
	if len(data) > 31 {
		return nil, fmt.Errorf("%w: %s of %d bytes is not stored in place", ErrUnsupportedEncoding, typ.Label, len(data))
	}
	word := common.PadRight32(data)
	word[31] = byte(2 * len(data))
	return new(uint256.Int).SetBytes32(word[:]), nil
}

// ones returns a value with the low size bytes set.
func ones(size int) *uint256.Int {
	if size >= 32 {
		return new(uint256.Int).SetAllOne()
	}
	res := new(uint256.Int).Lsh(uint256.NewInt(1), uint(size*8))
	return res.Sub(res, uint256.NewInt(1))
}

// merge places value of the given size at the byte offset of word.
func merge(word, value *uint256.Int, offset, size int) *uint256.Int {
	if size >= 32 {
		return value
	}
	shift := uint(offset * 8)
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(size*8))
	mask.Sub(mask, uint256.NewInt(1))
	mask.Lsh(mask, shift)
	word.And(word, new(uint256.Int).Not(mask))
	return word.Or(word, new(uint256.Int).Lsh(value, shift))
}
