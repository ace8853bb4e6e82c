// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package chain

import (
	"testing"

	"github.com/Fantom-foundation/smock/go/tosca"
)

func TestTransactionContext_RestoreSnapshotUndoesChanges(t *testing.T) {
	addr := tosca.Address{1}
	state := WorldState{addr: {Nonce: 1, Storage: Storage{{1}: {2}}}}
	context := newTransactionContext(state)

	snapshot := context.CreateSnapshot()
	context.SetNonce(addr, 2)
	context.SetStorage(addr, tosca.Key{1}, tosca.Word{3})
	context.SetCode(tosca.Address{2}, tosca.Code{0x00})
	context.EmitLog(tosca.Log{Address: addr})

	if want, got := uint64(2), context.GetNonce(addr); want != got {
		t.Errorf("unexpected nonce, wanted %d, got %d", want, got)
	}
	context.RestoreSnapshot(snapshot)

	if want, got := uint64(1), context.GetNonce(addr); want != got {
		t.Errorf("unexpected nonce after restore, wanted %d, got %d", want, got)
	}
	if want, got := (tosca.Word{2}), context.GetStorage(addr, tosca.Key{1}); want != got {
		t.Errorf("unexpected storage after restore, wanted %v, got %v", want, got)
	}
	if context.AccountExists(tosca.Address{2}) {
		t.Errorf("created account survived restore")
	}
	if len(context.GetLogs()) != 0 {
		t.Errorf("logs survived restore")
	}
	if !context.commit().Equal(state) {
		t.Errorf("restored state differs from original")
	}
}

func TestTransactionContext_DoesNotModifyCommittedState(t *testing.T) {
	addr := tosca.Address{1}
	state := WorldState{addr: {Storage: Storage{{1}: {2}}}}
	context := newTransactionContext(state)
	context.SetStorage(addr, tosca.Key{1}, tosca.Word{5})
	if want, got := (tosca.Word{2}), state[addr].Storage[tosca.Key{1}]; want != got {
		t.Errorf("committed state was modified, wanted %v, got %v", want, got)
	}
}

func TestTransactionContext_StorageStatusUsesTransactionStart(t *testing.T) {
	addr := tosca.Address{1}
	context := newTransactionContext(WorldState{})
	if want, got := tosca.StorageAdded, context.SetStorage(addr, tosca.Key{}, tosca.Word{1}); want != got {
		t.Errorf("unexpected status, wanted %v, got %v", want, got)
	}
	if want, got := tosca.StorageAddedDeleted, context.SetStorage(addr, tosca.Key{}, tosca.Word{}); want != got {
		t.Errorf("unexpected status, wanted %v, got %v", want, got)
	}
}

func TestTransactionContext_SelfDestructTransfersBalanceAndRemovesAccount(t *testing.T) {
	addr, beneficiary := tosca.Address{1}, tosca.Address{2}
	context := newTransactionContext(WorldState{addr: {Balance: tosca.NewValue(10), Code: tosca.Code{0}}})
	if !context.SelfDestruct(addr, beneficiary) {
		t.Errorf("first self destruct should report true")
	}
	if context.SelfDestruct(addr, beneficiary) {
		t.Errorf("second self destruct should report false")
	}
	if want, got := tosca.NewValue(10), context.GetBalance(beneficiary); want != got {
		t.Errorf("unexpected beneficiary balance, wanted %v, got %v", want, got)
	}
	state := context.commit()
	if _, found := state[addr]; found {
		t.Errorf("destructed account survived commit")
	}
}
