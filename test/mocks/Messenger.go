package mocks

import (
	context "context"

	models "github.com/rigwild/raspberry-instock-check/internal/models"
	mock "github.com/stretchr/testify/mock"
)

// Messenger is a mock type for the Messenger type
type Messenger struct {
	mock.Mock
}

// Send provides a mock function with given fields: ctx, text
func (_m *Messenger) Send(ctx context.Context, text string) (models.MessageHandle, error) {
	ret := _m.Called(ctx, text)

	if len(ret) == 0 {
		panic("no return value specified for Send")
	}

	var r0 models.MessageHandle
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (models.MessageHandle, error)); ok {
		return rf(ctx, text)
	}
	r0 = ret.Get(0).(models.MessageHandle)
	r1 = ret.Error(1)

	return r0, r1
}

// Edit provides a mock function with given fields: ctx, handle, text
func (_m *Messenger) Edit(ctx context.Context, handle models.MessageHandle, text string) error {
	ret := _m.Called(ctx, handle, text)

	if len(ret) == 0 {
		panic("no return value specified for Edit")
	}

	if rf, ok := ret.Get(0).(func(context.Context, models.MessageHandle, string) error); ok {
		return rf(ctx, handle, text)
	}
	return ret.Error(0)
}

// NewMessenger creates a new instance of Messenger. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMessenger(t interface {
	mock.TestingT
	Cleanup(func())
}) *Messenger {
	mock := &Messenger{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
