// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package evm

import "github.com/Fantom-foundation/smock/go/tosca"

const (
	errUnsupportedRevision    = tosca.ConstError("unsupported revision")
	errInvalidOpCode          = tosca.ConstError("invalid op code")
	errInvalidJump            = tosca.ConstError("invalid jump destination")
	errOutOfGas               = tosca.ConstError("out of gas")
	errOverflow               = tosca.ConstError("integer overflow")
	errReturnDataOutOfBounds  = tosca.ConstError("return data out of bounds")
	errStackOverflow          = tosca.ConstError("stack overflow")
	errStackUnderflow         = tosca.ConstError("stack underflow")
	errStaticContextViolation = tosca.ConstError("write in static context")
	errInitCodeTooLarge       = tosca.ConstError("init code larger than allowed")
)
