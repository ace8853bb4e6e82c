// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package floria

import (
	"bytes"

	"github.com/Fantom-foundation/smock/go/tosca"
)

// instrumentedContext routes code probes and storage accesses of a
// transaction through the interceptors of an Instrumentation. All other
// operations go to the wrapped context directly.
type instrumentedContext struct {
	tosca.TransactionContext
	code    tosca.CodeReader
	storage tosca.StorageAccessor
}

func newInstrumentedContext(context tosca.TransactionContext, instrumentation *tosca.Instrumentation) *instrumentedContext {
	return &instrumentedContext{
		TransactionContext: context,
		code:               instrumentation.Code(context.GetCode),
		storage:            instrumentation.Storage(context),
	}
}

func (c *instrumentedContext) GetCode(address tosca.Address) tosca.Code {
	return c.code(address)
}

func (c *instrumentedContext) GetCodeSize(address tosca.Address) int {
	return len(c.code(address))
}

func (c *instrumentedContext) GetCodeHash(address tosca.Address) tosca.Hash {
	code := c.code(address)
	if bytes.Equal(code, c.TransactionContext.GetCode(address)) {
		return c.TransactionContext.GetCodeHash(address)
	}
	return hashCode(code)
}

func (c *instrumentedContext) GetStorage(address tosca.Address, key tosca.Key) tosca.Word {
	return c.storage.GetStorage(address, key)
}

func (c *instrumentedContext) SetStorage(address tosca.Address, key tosca.Key, value tosca.Word) tosca.StorageStatus {
	return c.storage.SetStorage(address, key, value)
}

var _ tosca.TransactionContext = (*instrumentedContext)(nil)
