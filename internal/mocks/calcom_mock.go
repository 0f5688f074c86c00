package mocks

import (
	"context"

	"github.com/omriShneor/calbot/internal/calcom"
	"github.com/stretchr/testify/mock"
)

// MockCalcomProvider is a mock implementation of the Cal.com calls the
// booking service makes
type MockCalcomProvider struct {
	mock.Mock
}

func (m *MockCalcomProvider) IsSlotAvailable(ctx context.Context, startTime, endTime string) (bool, error) {
	args := m.Called(ctx, startTime, endTime)
	return args.Bool(0), args.Error(1)
}

func (m *MockCalcomProvider) CreateBooking(ctx context.Context, input calcom.CreateBookingInput) (*calcom.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*calcom.Booking), args.Error(1)
}

func (m *MockCalcomProvider) ListBookingReferences(ctx context.Context) ([]calcom.BookingReference, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]calcom.BookingReference), args.Error(1)
}

func (m *MockCalcomProvider) GetBooking(ctx context.Context, id int) (*calcom.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*calcom.Booking), args.Error(1)
}
