// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tosca

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"
)

func TestInstrumentation_ObserversAreNotifiedInRegistrationOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := NewMockLifecycleObserver(ctrl)
	second := NewMockLifecycleObserver(ctrl)

	instrumentation := &Instrumentation{}
	instrumentation.Observe(first)
	instrumentation.Observe(second)

	message := &Message{Kind: Call}
	result := &MessageResult{}
	gomock.InOrder(
		first.EXPECT().BeforeTransaction(gomock.Any()),
		second.EXPECT().BeforeTransaction(gomock.Any()),
		first.EXPECT().BeforeMessage(message),
		second.EXPECT().BeforeMessage(message),
		first.EXPECT().AfterMessage(message, result),
		second.EXPECT().AfterMessage(message, result),
	)

	instrumentation.BeforeTransaction(Transaction{})
	instrumentation.BeforeMessage(message)
	instrumentation.AfterMessage(message, result)
}

func TestInstrumentation_LastInstalledCodeInterceptorRunsFirst(t *testing.T) {
	instrumentation := &Instrumentation{}
	var order []string
	instrumentation.InterceptCode(func(next CodeReader) CodeReader {
		return func(addr Address) Code {
			order = append(order, "first")
			return next(addr)
		}
	})
	instrumentation.InterceptCode(func(next CodeReader) CodeReader {
		return func(addr Address) Code {
			order = append(order, "second")
			return next(addr)
		}
	})

	code := instrumentation.Code(func(Address) Code {
		order = append(order, "base")
		return Code{0x01}
	})(Address{1})

	if want, got := 1, len(code); want != got {
		t.Fatalf("unexpected code length, want %d, got %d", want, got)
	}
	if want, got := "second,first,base", strings.Join(order, ","); want != got {
		t.Errorf("unexpected interceptor order, want %v, got %v", want, got)
	}
}

func TestInstrumentation_StorageInterceptorWrapsBase(t *testing.T) {
	ctrl := gomock.NewController(t)
	base := NewMockStorageAccessor(ctrl)
	base.EXPECT().GetStorage(Address{1}, Key{2}).Return(Word{3})

	instrumentation := &Instrumentation{}
	instrumentation.InterceptStorage(func(next StorageAccessor) StorageAccessor {
		return constantOverride{next, Key{9}, Word{9}}
	})

	storage := instrumentation.Storage(base)
	if want, got := (Word{9}), storage.GetStorage(Address{1}, Key{9}); want != got {
		t.Errorf("unexpected override value, want %v, got %v", want, got)
	}
	if want, got := (Word{3}), storage.GetStorage(Address{1}, Key{2}); want != got {
		t.Errorf("unexpected delegated value, want %v, got %v", want, got)
	}
}

func TestInstrumentation_DefaultErrorManagerIsIdentity(t *testing.T) {
	issue := errors.New("issue")
	instrumentation := &Instrumentation{}
	if got := instrumentation.ErrorManager()(issue); got != issue {
		t.Errorf("unexpected classification, want %v, got %v", issue, got)
	}
}

func TestInstrumentation_ErrorManagersCanTranslateExceptions(t *testing.T) {
	const marker = ConstError("marker")
	instrumentation := &Instrumentation{}
	instrumentation.ManageErrors(func(next ErrorManager) ErrorManager {
		return func(exception error) error {
			if errors.Is(exception, marker) {
				return ErrExecutionReverted
			}
			return next(exception)
		}
	})

	manager := instrumentation.ErrorManager()
	if want, got := error(ErrExecutionReverted), manager(marker); want != got {
		t.Errorf("unexpected classification, want %v, got %v", want, got)
	}
	other := errors.New("other")
	if want, got := other, manager(other); want != got {
		t.Errorf("unexpected classification, want %v, got %v", want, got)
	}
}

type constantOverride struct {
	StorageAccessor
	key   Key
	value Word
}

func (c constantOverride) GetStorage(addr Address, key Key) Word {
	if key == c.key {
		return c.value
	}
	return c.StorageAccessor.GetStorage(addr, key)
}

func TestInstrumentation_AttachCreatesValueOnce(t *testing.T) {
	type key struct{}
	instrumentation := &Instrumentation{}
	created := 0
	create := func() any {
		created++
		return created
	}
	if want, got := 1, instrumentation.Attach(key{}, create); want != got {
		t.Errorf("unexpected attachment, wanted %v, got %v", want, got)
	}
	if want, got := 1, instrumentation.Attach(key{}, create); want != got {
		t.Errorf("unexpected attachment, wanted %v, got %v", want, got)
	}
	if want, got := 1, created; want != got {
		t.Errorf("unexpected number of creations, wanted %d, got %d", want, got)
	}
}

func TestInstrumentation_CommitRunsCallbacksInRegistrationOrder(t *testing.T) {
	instrumentation := &Instrumentation{}
	var order []string
	instrumentation.OnCommit(func() { order = append(order, "first") })
	instrumentation.OnCommit(func() { order = append(order, "second") })

	instrumentation.Commit()
	instrumentation.Commit()

	if want, got := "first,second,first,second", strings.Join(order, ","); want != got {
		t.Errorf("unexpected callbacks, want %v, got %v", want, got)
	}
}
