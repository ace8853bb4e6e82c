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

import "github.com/Fantom-foundation/smock/go/tosca"

const (
	// ErrMockRevert marks a call frame answered by a mock configured to
	// revert. It is translated into tosca.ErrExecutionReverted when it
	// reaches the top of a transaction.
	ErrMockRevert = tosca.ConstError("smocked revert")

	// ErrIntegration is reported if a processor offers no instrumentation.
	ErrIntegration = tosca.ConstError("processor does not support call interception")

	// ErrEncoding is reported if a configured value does not fit the ABI of
	// the mocked function.
	ErrEncoding = tosca.ConstError("could not encode mock return value")
)
