package mocks

import (
	context "context"

	mock "github.com/stretchr/testify/mock"
)

// MismatchRecorder is a mock type for the MismatchRecorder type
type MismatchRecorder struct {
	mock.Mock
}

// SaveMismatch provides a mock function with given fields: ctx, payloadA, payloadB
func (_m *MismatchRecorder) SaveMismatch(ctx context.Context, payloadA []byte, payloadB []byte) (string, error) {
	ret := _m.Called(ctx, payloadA, payloadB)

	if len(ret) == 0 {
		panic("no return value specified for SaveMismatch")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, []byte, []byte) (string, error)); ok {
		return rf(ctx, payloadA, payloadB)
	}
	r0 = ret.String(0)
	r1 = ret.Error(1)

	return r0, r1
}

// NewMismatchRecorder creates a new instance of MismatchRecorder. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMismatchRecorder(t interface {
	mock.TestingT
	Cleanup(func())
}) *MismatchRecorder {
	mock := &MismatchRecorder{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
