// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package contract

import (
	"fmt"

	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const ErrTransactionReverted = tosca.ConstError("transaction reverted")

// RevertError is returned for transactions and calls that did not succeed.
// It matches ErrTransactionReverted.
type RevertError struct {
	// Reason is the decoded Error(string) or Panic(uint256) reason, if any.
	Reason string
	// Data is the raw revert payload.
	Data []byte
}

// NewRevertError decodes the reason contained in a revert payload.
func NewRevertError(data []byte) *RevertError {
	res := &RevertError{Data: data}
	if reason, err := abi.UnpackRevert(data); err == nil {
		res.Reason = reason
	}
	return res
}

func (e *RevertError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v: %s", ErrTransactionReverted, e.Reason)
	}
	if len(e.Data) > 0 {
		return fmt.Sprintf("%v with data %s", ErrTransactionReverted, hexutil.Encode(e.Data))
	}
	return ErrTransactionReverted.Error()
}

func (e *RevertError) Unwrap() error {
	return ErrTransactionReverted
}
