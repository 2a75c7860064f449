package mocks

import (
	context "context"

	mock "github.com/stretchr/testify/mock"
)

// OperatorNotifier is a mock type for the OperatorNotifier type
type OperatorNotifier struct {
	mock.Mock
}

// Notify provides a mock function with given fields: ctx, text
func (_m *OperatorNotifier) Notify(ctx context.Context, text string) error {
	ret := _m.Called(ctx, text)

	if len(ret) == 0 {
		panic("no return value specified for Notify")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		return rf(ctx, text)
	}
	return ret.Error(0)
}

// NewOperatorNotifier creates a new instance of OperatorNotifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewOperatorNotifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *OperatorNotifier {
	mock := &OperatorNotifier{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
