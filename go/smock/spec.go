// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package smock

import (
	"fmt"
	"strings"

	"github.com/Fantom-foundation/smock/go/artifact"
	"github.com/Fantom-foundation/smock/go/contract"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Spec describes the interface of a contract to be mocked. Specs are
// created by FromJSON, FromABI, FromArtifact, FromContract and FromFactory.
type Spec interface {
	isSpec()
}

type jsonSpec string

type abiSpec struct{ abi abi.ABI }

type artifactSpec struct{ artifact *artifact.Artifact }

type contractSpec struct{ contract *contract.Contract }

type factorySpec struct{ factory *contract.Factory }

func (jsonSpec) isSpec()     {}
func (abiSpec) isSpec()      {}
func (artifactSpec) isSpec() {}
func (contractSpec) isSpec() {}
func (factorySpec) isSpec()  {}

// FromJSON mocks the contract described by the ABI JSON text.
func FromJSON(text string) Spec {
	return jsonSpec(text)
}

// FromABI mocks the contract described by a parsed ABI.
func FromABI(contractAbi abi.ABI) Spec {
	return abiSpec{contractAbi}
}

// FromArtifact mocks the contract of a compiled artifact.
func FromArtifact(compiled *artifact.Artifact) Spec {
	return artifactSpec{compiled}
}

// FromContract mocks the interface of a bound contract. The mock uses the
// contract's backend unless another one is given.
func FromContract(handle *contract.Contract) Spec {
	return contractSpec{handle}
}

// FromFactory mocks the interface of the contracts created by a factory.
// The mock uses the factory's backend unless another one is given.
func FromFactory(factory *contract.Factory) Spec {
	return factorySpec{factory}
}

// normalize returns the ABI described by the spec and the backend it
// carries, if any.
func normalize(spec Spec) (abi.ABI, contract.Backend, error) {
	switch s := spec.(type) {
	case jsonSpec:
		res, err := abi.JSON(strings.NewReader(string(s)))
		if err != nil {
			return abi.ABI{}, nil, fmt.Errorf("invalid ABI: %w", err)
		}
		return res, nil, nil
	case abiSpec:
		return s.abi, nil, nil
	case artifactSpec:
		if s.artifact == nil {
			return abi.ABI{}, nil, fmt.Errorf("nil artifact")
		}
		res, err := s.artifact.ParseABI()
		return res, nil, err
	case contractSpec:
		if s.contract == nil {
			return abi.ABI{}, nil, fmt.Errorf("nil contract")
		}
		return s.contract.ABI(), s.contract.Backend(), nil
	case factorySpec:
		if s.factory == nil {
			return abi.ABI{}, nil, fmt.Errorf("nil factory")
		}
		return s.factory.ABI(), s.factory.Backend(), nil
	}
	return abi.ABI{}, nil, fmt.Errorf("unsupported spec %T", spec)
}
