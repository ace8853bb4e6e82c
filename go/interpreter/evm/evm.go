// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package evm provides a compact bytecode interpreter for the tosca
// Interpreter interface. It executes raw EVM bytecode directly and routes
// every nested call and contract creation through the RunContext, so that
// an instrumented processor observes each call frame.
//
// Gas accounting follows the post-Istanbul fee schedule with two
// simplifications: account and storage accesses are always charged as warm
// accesses, and transient storage is not supported.
package evm

import (
	"github.com/Fantom-foundation/smock/go/tosca"
)

// Defines the newest supported revision for this interpreter implementation
const newestSupportedRevision = tosca.R13_Cancun

// Interpreter executes contract code. It is stateless and may be shared
// between processors.
type Interpreter struct{}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func (i *Interpreter) Run(params tosca.Parameters) (tosca.Result, error) {
	if params.Revision > newestSupportedRevision {
		return tosca.Result{}, errUnsupportedRevision
	}
	return run(params)
}
