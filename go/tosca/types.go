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

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Fixed size byte types print and serialize as 0x prefixed hex.

func (a Address) String() string               { return toHex(a[:]) }
func (a Address) MarshalText() ([]byte, error) { return []byte(toHex(a[:])), nil }
func (a *Address) UnmarshalText(data []byte) error {
	return fromHex(a[:], data)
}

func (k Key) String() string               { return toHex(k[:]) }
func (k Key) MarshalText() ([]byte, error) { return []byte(toHex(k[:])), nil }
func (k *Key) UnmarshalText(data []byte) error {
	return fromHex(k[:], data)
}

func (w Word) String() string               { return toHex(w[:]) }
func (w Word) MarshalText() ([]byte, error) { return []byte(toHex(w[:])), nil }
func (w *Word) UnmarshalText(data []byte) error {
	return fromHex(w[:], data)
}

func (h Hash) String() string { return toHex(h[:]) }

func (v Value) MarshalText() ([]byte, error) { return []byte(toHex(v[:])), nil }
func (v *Value) UnmarshalText(data []byte) error {
	return fromHex(v[:], data)
}

// String prints the amount in decimal.
func (v Value) String() string { return v.ToUint256().String() }

func (v Value) ToBig() *big.Int { return new(big.Int).SetBytes(v[:]) }

func (v Value) ToUint256() *uint256.Int { return new(uint256.Int).SetBytes(v[:]) }

func (v Value) Cmp(o Value) int { return bytes.Compare(v[:], o[:]) }

// Scale multiplies v by s, wrapping at 2^256.
func (v Value) Scale(s uint64) Value {
	return new(uint256.Int).Mul(v.ToUint256(), uint256.NewInt(s)).Bytes32()
}

// NewValue builds a Value from up to four 64 bit limbs, most significant
// first. Missing leading limbs are zero.
func NewValue(limbs ...uint64) Value {
	if len(limbs) > 4 {
		panic(fmt.Sprintf("NewValue takes at most 4 limbs, got %d", len(limbs)))
	}
	var res Value
	start := 32 - 8*len(limbs)
	for i, limb := range limbs {
		binary.BigEndian.PutUint64(res[start+8*i:], limb)
	}
	return res
}

// Add returns a + b, wrapping at 2^256.
func Add(a, b Value) Value {
	return new(uint256.Int).Add(a.ToUint256(), b.ToUint256()).Bytes32()
}

// Sub returns a - b, wrapping at 2^256.
func Sub(a, b Value) Value {
	return new(uint256.Int).Sub(a.ToUint256(), b.ToUint256()).Bytes32()
}

var callKindNames = map[CallKind]string{
	Call:         "call",
	StaticCall:   "static_call",
	DelegateCall: "delegate_call",
	CallCode:     "call_code",
	Create:       "create",
	Create2:      "create2",
}

func (k CallKind) String() string {
	if name, found := callKindNames[k]; found {
		return name
	}
	return "unknown"
}

// IsCreate reports whether k deploys a new contract.
func (k CallKind) IsCreate() bool {
	return k == Create || k == Create2
}

func (k CallKind) MarshalJSON() ([]byte, error) {
	name, found := callKindNames[k]
	if !found {
		return nil, fmt.Errorf("invalid call kind: %d", int(k))
	}
	return json.Marshal(name)
}

func (k *CallKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	name = strings.ToLower(name)
	for kind, candidate := range callKindNames {
		if candidate == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown call kind: %s", name)
}

func toHex(data []byte) string {
	return "0x" + hex.EncodeToString(data)
}

func fromHex(dst []byte, text []byte) error {
	digits, found := strings.CutPrefix(string(text), "0x")
	if !found {
		return fmt.Errorf("missing 0x prefix: %q", text)
	}
	data, err := hex.DecodeString(digits)
	if err != nil {
		return err
	}
	if want, got := len(dst), len(data); want != got {
		return fmt.Errorf("invalid length, want %d bytes, got %d", want, got)
	}
	copy(dst, data)
	return nil
}
