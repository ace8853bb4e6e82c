// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package tosca is a generated GoMock package.
package tosca

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"
)

// MockLifecycleObserver is a mock of LifecycleObserver interface.
type MockLifecycleObserver struct {
	ctrl     *gomock.Controller
	recorder *MockLifecycleObserverMockRecorder
}

// MockLifecycleObserverMockRecorder is the mock recorder for MockLifecycleObserver.
type MockLifecycleObserverMockRecorder struct {
	mock *MockLifecycleObserver
}

// NewMockLifecycleObserver creates a new mock instance.
func NewMockLifecycleObserver(ctrl *gomock.Controller) *MockLifecycleObserver {
	mock := &MockLifecycleObserver{ctrl: ctrl}
	mock.recorder = &MockLifecycleObserverMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockLifecycleObserver) EXPECT() *MockLifecycleObserverMockRecorder {
	return m.recorder
}

// AfterMessage mocks base method.
func (m *MockLifecycleObserver) AfterMessage(arg0 *Message, arg1 *MessageResult) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "AfterMessage", arg0, arg1)
}

// AfterMessage indicates an expected call of AfterMessage.
func (mr *MockLifecycleObserverMockRecorder) AfterMessage(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AfterMessage", reflect.TypeOf((*MockLifecycleObserver)(nil).AfterMessage), arg0, arg1)
}

// BeforeMessage mocks base method.
func (m *MockLifecycleObserver) BeforeMessage(arg0 *Message) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "BeforeMessage", arg0)
}

// BeforeMessage indicates an expected call of BeforeMessage.
func (mr *MockLifecycleObserverMockRecorder) BeforeMessage(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "BeforeMessage", reflect.TypeOf((*MockLifecycleObserver)(nil).BeforeMessage), arg0)
}

// BeforeTransaction mocks base method.
func (m *MockLifecycleObserver) BeforeTransaction(arg0 Transaction) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "BeforeTransaction", arg0)
}

// BeforeTransaction indicates an expected call of BeforeTransaction.
func (mr *MockLifecycleObserverMockRecorder) BeforeTransaction(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "BeforeTransaction", reflect.TypeOf((*MockLifecycleObserver)(nil).BeforeTransaction), arg0)
}

// MockStorageAccessor is a mock of StorageAccessor interface.
type MockStorageAccessor struct {
	ctrl     *gomock.Controller
	recorder *MockStorageAccessorMockRecorder
}

// MockStorageAccessorMockRecorder is the mock recorder for MockStorageAccessor.
type MockStorageAccessorMockRecorder struct {
	mock *MockStorageAccessor
}

// NewMockStorageAccessor creates a new mock instance.
func NewMockStorageAccessor(ctrl *gomock.Controller) *MockStorageAccessor {
	mock := &MockStorageAccessor{ctrl: ctrl}
	mock.recorder = &MockStorageAccessorMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockStorageAccessor) EXPECT() *MockStorageAccessorMockRecorder {
	return m.recorder
}

// GetStorage mocks base method.
func (m *MockStorageAccessor) GetStorage(arg0 Address, arg1 Key) Word {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetStorage", arg0, arg1)
	ret0, _ := ret[0].(Word)
	return ret0
}

// GetStorage indicates an expected call of GetStorage.
func (mr *MockStorageAccessorMockRecorder) GetStorage(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetStorage", reflect.TypeOf((*MockStorageAccessor)(nil).GetStorage), arg0, arg1)
}

// SetStorage mocks base method.
func (m *MockStorageAccessor) SetStorage(arg0 Address, arg1 Key, arg2 Word) StorageStatus {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SetStorage", arg0, arg1, arg2)
	ret0, _ := ret[0].(StorageStatus)
	return ret0
}

// SetStorage indicates an expected call of SetStorage.
func (mr *MockStorageAccessorMockRecorder) SetStorage(arg0, arg1, arg2 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetStorage", reflect.TypeOf((*MockStorageAccessor)(nil).SetStorage), arg0, arg1, arg2)
}

// MockInstrumented is a mock of Instrumented interface.
type MockInstrumented struct {
	ctrl     *gomock.Controller
	recorder *MockInstrumentedMockRecorder
}

// MockInstrumentedMockRecorder is the mock recorder for MockInstrumented.
type MockInstrumentedMockRecorder struct {
	mock *MockInstrumented
}

// NewMockInstrumented creates a new mock instance.
func NewMockInstrumented(ctrl *gomock.Controller) *MockInstrumented {
	mock := &MockInstrumented{ctrl: ctrl}
	mock.recorder = &MockInstrumentedMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockInstrumented) EXPECT() *MockInstrumentedMockRecorder {
	return m.recorder
}

// Instrumentation mocks base method.
func (m *MockInstrumented) Instrumentation() *Instrumentation {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Instrumentation")
	ret0, _ := ret[0].(*Instrumentation)
	return ret0
}

// Instrumentation indicates an expected call of Instrumentation.
func (mr *MockInstrumentedMockRecorder) Instrumentation() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Instrumentation", reflect.TypeOf((*MockInstrumented)(nil).Instrumentation))
}
