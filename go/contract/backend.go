// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package contract provides handles for calling and deploying contracts
// through a transaction backend, converting loosely typed Go values to
// their ABI representation on the way.
package contract

import (
	"context"

	"github.com/Fantom-foundation/smock/go/tosca"
)

//go:generate mockgen -source backend.go -destination backend_mock.go -package contract

// Backend executes transactions. SendTransaction commits the effects while
// Call discards them.
type Backend interface {
	SendTransaction(context.Context, tosca.Transaction) (tosca.Receipt, error)
	Call(context.Context, tosca.Transaction) (tosca.Receipt, error)
}

// DefaultSender is the account used when no sender is specified.
var DefaultSender = tosca.Address{
	0xf3, 0x9f, 0xd6, 0xe5, 0x1a, 0xad, 0x88, 0xf6, 0xf4, 0xce,
	0x6a, 0xb8, 0x82, 0x72, 0x79, 0xcf, 0xff, 0xb9, 0x22, 0x66,
}
