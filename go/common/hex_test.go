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
	"bytes"
	"testing"

	"github.com/Fantom-foundation/smock/go/tosca"
)

func TestHex_FromHexAcceptsPrefixedAndPlainInput(t *testing.T) {
	tests := map[string]struct {
		input string
		want  []byte
	}{
		"empty":        {"", []byte{}},
		"only prefix":  {"0x", []byte{}},
		"prefixed":     {"0x0102", []byte{1, 2}},
		"plain":        {"0102", []byte{1, 2}},
		"upper prefix": {"0XAB", []byte{0xab}},
		"odd length":   {"0x123", []byte{0x01, 0x23}},
		"mixed case":   {"0xAbCd", []byte{0xab, 0xcd}},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := FromHex(test.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(test.want, got) {
				t.Errorf("unexpected result, wanted %x, got %x", test.want, got)
			}
		})
	}
}

func TestHex_FromHexRejectsInvalidDigits(t *testing.T) {
	if _, err := FromHex("0xzz"); err == nil {
		t.Errorf("expected error for invalid digits")
	}
}

func TestHex_ToHexRoundTripsThroughFromHex(t *testing.T) {
	data := []byte{0, 1, 0xfe, 0xff}
	text := ToHex(data)
	if want, got := "0x0001feff", text; want != got {
		t.Errorf("unexpected encoding, wanted %s, got %s", want, got)
	}
	if want, got := "0x", ToHex(nil); want != got {
		t.Errorf("unexpected encoding of empty data, wanted %s, got %s", want, got)
	}
}

func TestHex_PrefixHelpers(t *testing.T) {
	if want, got := "0xab", Add0x("ab"); want != got {
		t.Errorf("wanted %s, got %s", want, got)
	}
	if want, got := "0xab", Add0x("0xab"); want != got {
		t.Errorf("wanted %s, got %s", want, got)
	}
	if want, got := "ab", Remove0x("0xab"); want != got {
		t.Errorf("wanted %s, got %s", want, got)
	}
	if !IsHex("0x12aF") || IsHex("12") || IsHex("0x1g") {
		t.Errorf("unexpected IsHex classification")
	}
}

func TestHex_PaddingToWords(t *testing.T) {
	left := PadLeft32([]byte{1, 2})
	if left[30] != 1 || left[31] != 2 || left[0] != 0 {
		t.Errorf("unexpected left padding: %x", left)
	}
	right := PadRight32([]byte{1, 2})
	if right[0] != 1 || right[1] != 2 || right[31] != 0 {
		t.Errorf("unexpected right padding: %x", right)
	}
	long := make([]byte, 40)
	long[39] = 7
	long[0] = 9
	if got := PadLeft32(long); got[31] != 7 {
		t.Errorf("left padding should keep trailing bytes, got %x", got)
	}
	if got := PadRight32(long); got[0] != 9 {
		t.Errorf("right padding should keep leading bytes, got %x", got)
	}
}

func TestHex_HexToWord(t *testing.T) {
	got, err := HexToWord("0x2a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := tosca.Word{31: 0x2a}
	if want != got {
		t.Errorf("wanted %x, got %x", want, got)
	}
	if _, err := HexToWord("0x" + string(bytes.Repeat([]byte("11"), 33))); err == nil {
		t.Errorf("expected error for oversized value")
	}
}

func TestHex_AddressChecksumAndParsing(t *testing.T) {
	const checksummed = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	address, err := ParseAddress(checksummed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := checksummed, ChecksumAddress(address); want != got {
		t.Errorf("wanted %s, got %s", want, got)
	}
	if _, err := ParseAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"); err != nil {
		t.Errorf("lower case address should parse, got %v", err)
	}
	if _, err := ParseAddress("0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"); err == nil {
		t.Errorf("expected checksum error")
	}
	if _, err := ParseAddress("0x1234"); err == nil {
		t.Errorf("expected error for short address")
	}
}
