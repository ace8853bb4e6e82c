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

import "github.com/Fantom-foundation/smock/go/tosca"

const (
	// ErrUnknownVariable is returned for paths not starting with a declared
	// state variable.
	ErrUnknownVariable = tosca.ConstError("unknown storage variable")
	// ErrUnknownMember is returned for path segments that do not name a
	// struct member, array element or mapping key of the addressed value.
	ErrUnknownMember = tosca.ConstError("unknown member")
	// ErrUnsupportedEncoding is returned for values that can not be stored
	// in a single slot of the addressed type.
	ErrUnsupportedEncoding = tosca.ConstError("unsupported encoding")
	// ErrIntegration is returned for processors offering no interception
	// points.
	ErrIntegration = tosca.ConstError("processor does not support storage interception")
)
