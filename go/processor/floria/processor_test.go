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
	"errors"
	"slices"
	"testing"

	"github.com/Fantom-foundation/smock/go/tosca"
	"go.uber.org/mock/gomock"
)

func TestProcessorRegistry_InitProcessor(t *testing.T) {
	processorFactories := tosca.GetAllRegisteredProcessorFactories()
	if len(processorFactories) == 0 {
		t.Errorf("No processor factories found")
	}

	processor := tosca.GetProcessorFactory("floria")
	if processor == nil {
		t.Errorf("Floria processor factory not found")
	}
}

func TestProcessor_ConsumeNonce(t *testing.T) {
	tests := map[string]struct {
		account uint64
		nonce   uint64
		wantErr bool
	}{
		"matching":  {account: 9, nonce: 9},
		"too low":   {account: 9, nonce: 8, wantErr: true},
		"too high":  {account: 5, nonce: 10, wantErr: true},
		"first one": {account: 0, nonce: 0},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			context := tosca.NewMockTransactionContext(ctrl)
			context.EXPECT().GetNonce(tosca.Address{1}).Return(test.account)
			if !test.wantErr {
				context.EXPECT().SetNonce(tosca.Address{1}, test.account+1)
			}

			err := consumeNonce(tosca.Transaction{Sender: tosca.Address{1}, Nonce: test.nonce}, context)
			if want, got := test.wantErr, err != nil; want != got {
				t.Errorf("unexpected error result, wanted failure %t, got %v", want, err)
			}
		})
	}
}

func TestProcessor_PrepayGasChargesFullGasLimit(t *testing.T) {
	tests := map[string]struct {
		balance uint64
		wantErr bool
	}{
		"exact":        {balance: 200},
		"plenty":       {balance: 1000},
		"insufficient": {balance: 199, wantErr: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			transaction := tosca.Transaction{
				Sender:   tosca.Address{1},
				GasLimit: 100,
				GasPrice: tosca.NewValue(2),
			}
			ctrl := gomock.NewController(t)
			context := tosca.NewMockTransactionContext(ctrl)
			context.EXPECT().GetBalance(transaction.Sender).Return(tosca.NewValue(test.balance))
			if !test.wantErr {
				context.EXPECT().SetBalance(transaction.Sender, tosca.NewValue(test.balance-200))
			}

			err := prepayGas(transaction, context)
			if want, got := test.wantErr, err != nil; want != got {
				t.Errorf("unexpected error result, wanted failure %t, got %v", want, err)
			}
		})
	}
}

func TestProcessor_IntrinsicGasDependsOnKindAndInput(t *testing.T) {
	recipient := tosca.Address{2}
	tests := map[string]struct {
		transaction tosca.Transaction
		want        tosca.Gas
	}{
		"plain call":       {tosca.Transaction{Recipient: &recipient}, TxGas},
		"create":           {tosca.Transaction{}, TxGasContractCreation},
		"zero bytes":       {tosca.Transaction{Recipient: &recipient, Input: []byte{0, 0}}, TxGas + 2*TxDataZeroGasEIP2028},
		"non-zero bytes":   {tosca.Transaction{Recipient: &recipient, Input: []byte{1, 0, 3}}, TxGas + 2*TxDataNonZeroGasEIP2028 + TxDataZeroGasEIP2028},
		"create with init": {tosca.Transaction{Input: []byte{0x60}}, TxGasContractCreation + TxDataNonZeroGasEIP2028},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if got := intrinsicGas(test.transaction); test.want != got {
				t.Errorf("unexpected intrinsic gas, wanted %d, got %d", test.want, got)
			}
		})
	}
}

func TestProcessor_GasUsedRefundsPartOfUnusedGas(t *testing.T) {
	transaction := tosca.Transaction{Sender: tosca.Address{1}, GasLimit: 1000}
	if want, got := tosca.Gas(1000-400+40), gasUsed(transaction, 400); want != got {
		t.Errorf("unexpected gas used, wanted %d, got %d", want, got)
	}
	transaction.Sender = tosca.Address{}
	if want, got := tosca.Gas(600), gasUsed(transaction, 400); want != got {
		t.Errorf("unexpected gas used for internal transaction, wanted %d, got %d", want, got)
	}
}

func TestProcessor_ImplementsInstrumented(t *testing.T) {
	var processor tosca.Processor = NewProcessor(nil)
	if _, ok := processor.(tosca.Instrumented); !ok {
		t.Errorf("floria processor does not offer an instrumentation")
	}
}

func TestProcessor_RunEmitsTransactionStartOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	target := tosca.Address{0xA}
	context := newTestContext(ctrl, map[tosca.Address]tosca.Code{target: {0x01}})
	context.EXPECT().CreateSnapshot().AnyTimes()

	interpreter := interpreterFunc(func(params tosca.Parameters) (tosca.Result, error) {
		return tosca.Result{Success: true, Output: []byte("out"), GasLeft: params.Gas}, nil
	})

	processor := NewProcessor(interpreter)
	recorder := &recorder{}
	processor.Instrumentation().Observe(recorder)

	receipt, err := processor.Run(tosca.BlockParameters{}, tosca.Transaction{
		Sender:    tosca.Address{1},
		Recipient: &target,
		GasLimit:  100_000,
	}, context)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !receipt.Success || string(receipt.Output) != "out" {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if want, got := []string{"tx", "before 0a@0", "after 0a@0"}, recorder.events; !slices.Equal(want, got) {
		t.Errorf("unexpected events, wanted %v, got %v", want, got)
	}
}

func TestProcessor_CreateReceiptCarriesContractAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := newTestContext(ctrl, nil)
	context.EXPECT().CreateSnapshot().AnyTimes()

	interpreter := interpreterFunc(func(params tosca.Parameters) (tosca.Result, error) {
		return tosca.Result{Success: true, Output: []byte{0x00}, GasLeft: params.Gas}, nil
	})

	receipt, err := NewProcessor(interpreter).Run(tosca.BlockParameters{}, tosca.Transaction{
		Sender:   tosca.Address{1},
		Input:    []byte{0x01},
		GasLimit: 100_000,
	}, context)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !receipt.Success || receipt.ContractAddress == nil {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
}

func TestProcessor_OutermostExceptionIsClassifiedByErrorManager(t *testing.T) {
	injected := tosca.ConstError("injected")
	other := errors.New("other")

	tests := map[string]struct {
		manager func(next tosca.ErrorManager) tosca.ErrorManager
		wantErr error
	}{
		"unmanaged exception aborts": {
			wantErr: injected,
		},
		"translated to revert": {
			manager: func(next tosca.ErrorManager) tosca.ErrorManager {
				return func(exception error) error {
					if exception == injected {
						return tosca.ErrExecutionReverted
					}
					return next(exception)
				}
			},
		},
		"translated to other error": {
			manager: func(next tosca.ErrorManager) tosca.ErrorManager {
				return func(exception error) error {
					return other
				}
			},
			wantErr: other,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			target := tosca.Address{0xB}
			context := newTestContext(ctrl, map[tosca.Address]tosca.Code{target: {0x01}})
			context.EXPECT().CreateSnapshot().AnyTimes()
			context.EXPECT().RestoreSnapshot(gomock.Any()).AnyTimes()

			interpreter := interpreterFunc(func(params tosca.Parameters) (tosca.Result, error) {
				return tosca.Result{Success: true, GasLeft: params.Gas}, nil
			})
			processor := NewProcessor(interpreter)
			processor.Instrumentation().Observe(&recorder{after: func(_ *tosca.Message, result *tosca.MessageResult) {
				result.Output = tosca.Data("data")
				result.Exception = injected
			}})
			if test.manager != nil {
				processor.Instrumentation().ManageErrors(test.manager)
			}

			receipt, err := processor.Run(tosca.BlockParameters{}, tosca.Transaction{
				Sender:    tosca.Address{1},
				Recipient: &target,
				GasLimit:  100_000,
			}, context)
			if !errors.Is(err, test.wantErr) || (test.wantErr == nil && err != nil) {
				t.Fatalf("unexpected error, wanted %v, got %v", test.wantErr, err)
			}
			if receipt.Success {
				t.Errorf("receipt must not be successful")
			}
			if test.wantErr == nil && string(receipt.Output) != "data" {
				t.Errorf("revert data not preserved, got %q", receipt.Output)
			}
		})
	}
}
