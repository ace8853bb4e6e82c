// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package common provides the hex/byte codec and synthetic address
// allocation shared by the mocking and storage override packages.
package common

import (
	"fmt"
	"strings"

	"github.com/Fantom-foundation/smock/go/tosca"
	geth "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ToHex encodes data as a 0x-prefixed lower case hex string. Empty input
// yields "0x".
func ToHex(data []byte) string {
	return hexutil.Encode(data)
}

// FromHex decodes a hex string with or without 0x prefix. Odd length input
// is interpreted with an implicit leading zero nibble.
func FromHex(text string) ([]byte, error) {
	text = Remove0x(text)
	if len(text)%2 == 1 {
		text = "0" + text
	}
	res, err := hexutil.Decode("0x" + text)
	if err == hexutil.ErrEmptyString || (err == nil && len(res) == 0) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid hex string %q: %w", text, err)
	}
	return res, nil
}

// IsHex reports whether text is a 0x-prefixed hex string.
func IsHex(text string) bool {
	if !Has0x(text) {
		return false
	}
	for _, c := range text[2:] {
		if !isHexDigit(c) {
			return false
		}
	}
	return true
}

func isHexDigit(c rune) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func Has0x(text string) bool {
	return strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X")
}

func Add0x(text string) string {
	if Has0x(text) {
		return text
	}
	return "0x" + text
}

func Remove0x(text string) string {
	if Has0x(text) {
		return text[2:]
	}
	return text
}

// PadLeft32 left-pads data with zeros to a 32-byte word. Longer input is
// truncated to its last 32 bytes.
func PadLeft32(data []byte) tosca.Word {
	return tosca.Word(geth.LeftPadBytes(tail(data, 32), 32))
}

// PadRight32 right-pads data with zeros to a 32-byte word. Longer input is
// truncated to its first 32 bytes.
func PadRight32(data []byte) tosca.Word {
	return tosca.Word(geth.RightPadBytes(head(data, 32), 32))
}

// HexToWord decodes a hex string into a word, left-padding short values.
func HexToWord(text string) (tosca.Word, error) {
	data, err := FromHex(text)
	if err != nil {
		return tosca.Word{}, err
	}
	if len(data) > 32 {
		return tosca.Word{}, fmt.Errorf("hex value %s exceeds 32 bytes", text)
	}
	return PadLeft32(data), nil
}

func head(data []byte, n int) []byte {
	if len(data) > n {
		return data[:n]
	}
	return data
}

func tail(data []byte, n int) []byte {
	if len(data) > n {
		return data[len(data)-n:]
	}
	return data
}

// ChecksumAddress renders an address in EIP-55 mixed-case form.
func ChecksumAddress(address tosca.Address) string {
	return geth.Address(address).Hex()
}

// ParseAddress parses a hex address. Mixed-case input has to carry a valid
// EIP-55 checksum.
func ParseAddress(text string) (tosca.Address, error) {
	if !geth.IsHexAddress(text) {
		return tosca.Address{}, fmt.Errorf("invalid address %q", text)
	}
	address := geth.HexToAddress(text)
	digits := Remove0x(text)
	if digits != strings.ToLower(digits) && digits != strings.ToUpper(digits) {
		if address.Hex() != Add0x(digits) {
			return tosca.Address{}, fmt.Errorf("invalid address checksum %q", text)
		}
	}
	return tosca.Address(address), nil
}
