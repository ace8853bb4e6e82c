// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package tosca defines the host-side abstractions of an EVM implementation
// as they are consumed by the interception layers of this module: value
// types, interpreters, transaction contexts, processors, and the lifecycle
// and interception surface an instrumented processor exposes.
package tosca

// ConstError is an error type that can be used to define immutable
// error constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

// ErrExecutionReverted is the classification an ErrorManager returns for
// exceptions that should surface to the transaction sender as an ordinary
// revert.
const ErrExecutionReverted = ConstError("execution reverted")
