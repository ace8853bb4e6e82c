// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package artifact reads compiled contract artifacts in the hardhat format,
// including the solc storage layout used for storage overrides.
package artifact

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Fantom-foundation/smock/go/common"
	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/holiman/uint256"
)

const (
	ErrNotFound         = tosca.ConstError("artifact not found")
	ErrNoStorageLayout  = tosca.ConstError("artifact has no storage layout")
	ErrAmbiguousName    = tosca.ConstError("artifact name is ambiguous")
	ErrUnlinkedBytecode = tosca.ConstError("bytecode contains unresolved library links")
)

// Artifact is a compiled contract as written by hardhat. The storage layout
// is only present if the compiler was asked to produce it.
type Artifact struct {
	Format           string          `json:"_format"`
	ContractName     string          `json:"contractName"`
	SourceName       string          `json:"sourceName"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
	StorageLayout    *StorageLayout  `json:"storageLayout,omitempty"`
}

// Parse decodes a single artifact file.
func Parse(data []byte) (*Artifact, error) {
	res := &Artifact{}
	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("invalid artifact: %w", err)
	}
	if res.ContractName == "" {
		return nil, fmt.Errorf("invalid artifact: missing contract name")
	}
	return res, nil
}

// FullyQualifiedName returns the name in <source>:<contract> form.
func (a *Artifact) FullyQualifiedName() string {
	if a.SourceName == "" {
		return a.ContractName
	}
	return a.SourceName + ":" + a.ContractName
}

// ParseABI parses the ABI description of the artifact.
func (a *Artifact) ParseABI() (abi.ABI, error) {
	if len(a.ABI) == 0 {
		return abi.ABI{}, nil
	}
	res, err := abi.JSON(strings.NewReader(string(a.ABI)))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("invalid ABI of %s: %w", a.ContractName, err)
	}
	return res, nil
}

// CreationCode returns the init code of the contract.
func (a *Artifact) CreationCode() (tosca.Code, error) {
	return decodeCode(a.ContractName, a.Bytecode)
}

// RuntimeCode returns the code deployed by the init code.
func (a *Artifact) RuntimeCode() (tosca.Code, error) {
	return decodeCode(a.ContractName, a.DeployedBytecode)
}

func decodeCode(name, text string) (tosca.Code, error) {
	if strings.Contains(text, "__") {
		return nil, fmt.Errorf("%s: %w", name, ErrUnlinkedBytecode)
	}
	res, err := common.FromHex(text)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode of %s: %w", name, err)
	}
	return tosca.Code(res), nil
}

// Layout returns the storage layout or ErrNoStorageLayout.
func (a *Artifact) Layout() (*StorageLayout, error) {
	if a.StorageLayout == nil {
		return nil, fmt.Errorf("%s: %w", a.ContractName, ErrNoStorageLayout)
	}
	return a.StorageLayout, nil
}

// StorageLayout is the storage layout description produced by solc.
type StorageLayout struct {
	Storage []Variable      `json:"storage"`
	Types   map[string]Type `json:"types"`
}

// Variable is a state variable or a struct member. Slot is relative to the
// enclosing struct for members.
type Variable struct {
	AstID    int    `json:"astId"`
	Contract string `json:"contract"`
	Label    string `json:"label"`
	Offset   int    `json:"offset"`
	Slot     string `json:"slot"`
	Type     string `json:"type"`
}

// Encodings used by solc storage layouts.
const (
	EncodingInplace      = "inplace"
	EncodingMapping      = "mapping"
	EncodingDynamicArray = "dynamic_array"
	EncodingBytes        = "bytes"
)

// Type describes a storage type. Key and Value are set for mappings, Base
// for arrays and Members for structs.
type Type struct {
	Encoding      string     `json:"encoding"`
	Label         string     `json:"label"`
	NumberOfBytes string     `json:"numberOfBytes"`
	Key           string     `json:"key,omitempty"`
	Value         string     `json:"value,omitempty"`
	Base          string     `json:"base,omitempty"`
	Members       []Variable `json:"members,omitempty"`
}

// Variable looks up a top level state variable by label.
func (l *StorageLayout) Variable(label string) (Variable, bool) {
	for _, variable := range l.Storage {
		if variable.Label == label {
			return variable, true
		}
	}
	return Variable{}, false
}

// Type looks up a type by its identifier.
func (l *StorageLayout) Type(id string) (Type, bool) {
	res, found := l.Types[id]
	return res, found
}

// SlotNumber parses the decimal slot of the variable.
func (v Variable) SlotNumber() (*uint256.Int, error) {
	res, err := uint256.FromDecimal(v.Slot)
	if err != nil {
		return nil, fmt.Errorf("invalid slot %q of %s: %w", v.Slot, v.Label, err)
	}
	return res, nil
}

// Size returns the number of bytes a value of the type occupies in its slot.
func (t Type) Size() (int, error) {
	res, err := strconv.Atoi(t.NumberOfBytes)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q of %s: %w", t.NumberOfBytes, t.Label, err)
	}
	return res, nil
}

// Member looks up a struct member by label.
func (t Type) Member(label string) (Variable, bool) {
	for _, member := range t.Members {
		if member.Label == label {
			return member, true
		}
	}
	return Variable{}, false
}
