package mocks

import (
	context "context"

	models "github.com/rigwild/raspberry-instock-check/internal/models"
	mock "github.com/stretchr/testify/mock"
)

// PayloadValidator is a mock type for the PayloadValidator type
type PayloadValidator struct {
	mock.Mock
}

// Validate provides a mock function with given fields: ctx
func (_m *PayloadValidator) Validate(ctx context.Context) (*models.Payload, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Validate")
	}

	var r0 *models.Payload
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) (*models.Payload, error)); ok {
		return rf(ctx)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Payload)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewPayloadValidator creates a new instance of PayloadValidator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewPayloadValidator(t interface {
	mock.TestingT
	Cleanup(func())
}) *PayloadValidator {
	mock := &PayloadValidator{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
