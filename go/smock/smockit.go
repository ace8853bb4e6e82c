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

	"github.com/Fantom-foundation/smock/go/contract"
	"github.com/Fantom-foundation/smock/go/tosca"
)

type mockConfig struct {
	address *tosca.Address
	backend contract.Backend
}

// MockOption configures a single mock.
type MockOption func(*mockConfig)

// WithAddress places the mock at a fixed address. An existing mock at that
// address is replaced.
func WithAddress(address tosca.Address) MockOption {
	return func(c *mockConfig) {
		c.address = &address
	}
}

// WithBackend sets the backend used to call the mock through its contract
// handle.
func WithBackend(backend contract.Backend) MockOption {
	return func(c *mockConfig) {
		c.backend = backend
	}
}

// accountChecker is implemented by backends that know the existing
// accounts, like the in-memory chain.
type accountChecker interface {
	AccountExists(tosca.Address) bool
}

// Smockit creates a mock of the contract described by the spec and
// registers it. Without a fixed address the mock is placed at a random
// address that is neither mocked nor an existing account of the backend.
func (e *Engine) Smockit(spec Spec, options ...MockOption) (*MockContract, error) {
	contractAbi, backend, err := normalize(spec)
	if err != nil {
		return nil, fmt.Errorf("cannot create mock: %w", err)
	}
	config := mockConfig{backend: backend}
	for _, option := range options {
		option(&config)
	}

	var address tosca.Address
	if config.address != nil {
		address = *config.address
	} else {
		var inUse func(tosca.Address) bool
		if checker, ok := config.backend.(accountChecker); ok {
			inUse = checker.AccountExists
		}
		address = e.newAddress(inUse)
	}

	mock := newMockContract(contract.Bind(address, contractAbi, config.backend))
	e.Register(mock)
	return mock, nil
}
