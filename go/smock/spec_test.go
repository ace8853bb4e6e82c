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
	"encoding/json"
	"testing"

	"github.com/Fantom-foundation/smock/go/artifact"
	"github.com/Fantom-foundation/smock/go/contract"
	"github.com/Fantom-foundation/smock/go/tosca"
	"go.uber.org/mock/gomock"
)

func TestNormalize_AcceptsAllSpecKinds(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := contract.NewMockBackend(ctrl)
	contractAbi := parseTestABI(t)

	tests := map[string]struct {
		spec        Spec
		wantBackend bool
	}{
		"json": {
			spec: FromJSON(testABI),
		},
		"abi": {
			spec: FromABI(contractAbi),
		},
		"artifact": {
			spec: FromArtifact(&artifact.Artifact{ContractName: "Test", ABI: json.RawMessage(testABI)}),
		},
		"contract": {
			spec:        FromContract(contract.Bind(tosca.Address{1}, contractAbi, backend)),
			wantBackend: true,
		},
		"factory": {
			spec:        FromFactory(contract.NewFactory("Test", contractAbi, nil, backend)),
			wantBackend: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, gotBackend, err := normalize(test.spec)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want, got := len(contractAbi.Methods), len(got.Methods); want != got {
				t.Errorf("unexpected number of methods, wanted %d, got %d", want, got)
			}
			if want, got := test.wantBackend, gotBackend != nil; want != got {
				t.Errorf("unexpected backend presence, wanted %t, got %t", want, got)
			}
		})
	}
}

func TestNormalize_RejectsInvalidSpecs(t *testing.T) {
	tests := map[string]Spec{
		"malformed json": FromJSON(`[{"type":`),
		"nil artifact":   FromArtifact(nil),
		"nil contract":   FromContract(nil),
		"nil factory":    FromFactory(nil),
	}
	for name, spec := range tests {
		t.Run(name, func(t *testing.T) {
			if _, _, err := normalize(spec); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestSmockit_UsesBackendOfSpec(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := contract.NewMockBackend(ctrl)
	handle := contract.Bind(tosca.Address{1}, parseTestABI(t), backend)

	engine := newEngine()
	mock, err := engine.Smockit(FromContract(handle))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.Backend() != backend {
		t.Errorf("mock does not use backend of spec")
	}
	if mock.Address() == handle.Address() {
		t.Errorf("mock placed at the address of the mocked contract")
	}
	if !engine.IsRegistered(mock.Address()) {
		t.Errorf("mock not registered")
	}
}
