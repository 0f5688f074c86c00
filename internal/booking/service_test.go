package booking

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omriShneor/calbot/internal/calcom"
	"github.com/omriShneor/calbot/internal/mocks"
	"github.com/omriShneor/calbot/internal/timeutil"
)

func newTestService(t *testing.T, provider Provider, strict bool) *Service {
	t.Helper()
	svc, err := NewService(provider, Config{EventTypeID: 42, StrictCreate: strict}, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func sampleRequest() BookingRequest {
	return BookingRequest{
		Name:  "Ann Lee",
		Email: "ann@example.com",
		Date:  "2024-03-01",
		Time:  "11 AM",
		Title: "Intro call",
	}
}

func TestNewService(t *testing.T) {
	_, err := NewService(nil, Config{}, nil)
	require.Error(t, err)

	svc, err := NewService(&mocks.MockCalcomProvider{}, Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, timeutil.DefaultTimezone, svc.normalizer.Location().String())
}

func TestResolve_FixedZoneAndHourWindow(t *testing.T) {
	svc := newTestService(t, &mocks.MockCalcomProvider{}, true)

	tests := []struct {
		name      string
		date      string
		time      string
		wantStart string
		wantEnd   string
	}{
		{"winter", "2024-01-15", "9 AM", "2024-01-15T14:00:00.000Z", "2024-01-15T15:00:00.000Z"},
		{"summer", "2024-07-15", "9:30 AM", "2024-07-15T13:30:00.000Z", "2024-07-15T14:30:00.000Z"},
		{"late evening", "2024-03-01", "11:00 PM", "2024-03-02T04:00:00.000Z", "2024-03-02T05:00:00.000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interval, err := svc.Resolve(BookingRequest{Date: tt.date, Time: tt.time})

			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, interval.StartWire())
			assert.Equal(t, tt.wantEnd, interval.EndWire())
			assert.Equal(t, time.Hour, interval.End.Sub(interval.Start))
		})
	}
}

func TestCreateBooking_Available(t *testing.T) {
	provider := &mocks.MockCalcomProvider{}
	provider.On("IsSlotAvailable", mock.Anything, "2024-03-01T16:00:00.000Z", "2024-03-01T17:00:00.000Z").Return(true, nil)
	provider.On("CreateBooking", mock.Anything, mock.AnythingOfType("calcom.CreateBookingInput")).
		Return(&calcom.Booking{ID: 9}, nil)

	svc := newTestService(t, provider, true)
	outcome, err := svc.CreateBooking(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome.Kind)
	assert.True(t, outcome.Created())
	assert.Equal(t, MessageCreated, outcome.Message)
	assert.Equal(t, "2024-03-01T16:00:00.000Z", outcome.Interval.StartWire())
	assert.Equal(t, "2024-03-01T17:00:00.000Z", outcome.Interval.EndWire())
	require.NotNil(t, outcome.Booking)
	assert.Equal(t, 9, outcome.Booking.ID)

	input := provider.Calls[1].Arguments.Get(1).(calcom.CreateBookingInput)
	assert.Equal(t, calcom.CreateBookingInput{
		EventTypeID: 42,
		Start:       "2024-03-01T16:00:00.000Z",
		End:         "2024-03-01T17:00:00.000Z",
		Responses: calcom.Responses{
			Name:     "Ann Lee",
			Email:    "ann@example.com",
			Notes:    "Sample notes",
			Location: calcom.Location{Value: "Google Meet"},
		},
		TimeZone:    "America/New_York",
		Language:    "en",
		Title:       "Intro call",
		Description: "",
		Status:      "PENDING",
		Metadata:    map[string]any{},
	}, input)

	provider.AssertExpectations(t)
}

func TestCreateBooking_Description(t *testing.T) {
	provider := &mocks.MockCalcomProvider{}
	provider.On("IsSlotAvailable", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	provider.On("CreateBooking", mock.Anything, mock.MatchedBy(func(in calcom.CreateBookingInput) bool {
		return in.Description == "Quarterly review"
	})).Return(&calcom.Booking{ID: 1}, nil)

	req := sampleRequest()
	desc := "Quarterly review"
	req.Description = &desc

	outcome, err := newTestService(t, provider, true).CreateBooking(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, outcome.Created())
	provider.AssertExpectations(t)
}

func TestCreateBooking_NoSlot(t *testing.T) {
	provider := &mocks.MockCalcomProvider{}
	provider.On("IsSlotAvailable", mock.Anything, "2024-03-01T16:00:00.000Z", "2024-03-01T17:00:00.000Z").Return(false, nil)

	outcome, err := newTestService(t, provider, true).CreateBooking(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoSlotAvailable, outcome.Kind)
	assert.Equal(t, MessageNoSlot, outcome.Message)
	assert.Nil(t, outcome.Booking)
	provider.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBooking_TimeFormatError(t *testing.T) {
	provider := &mocks.MockCalcomProvider{}
	req := sampleRequest()
	req.Time = "25:00"

	outcome, err := newTestService(t, provider, true).CreateBooking(context.Background(), req)

	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, timeutil.ErrTimeFormat)
	provider.AssertNotCalled(t, "IsSlotAvailable", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBooking_AvailabilityError(t *testing.T) {
	provider := &mocks.MockCalcomProvider{}
	providerErr := &calcom.ProviderError{Op: "slots", StatusCode: http.StatusBadGateway}
	provider.On("IsSlotAvailable", mock.Anything, mock.Anything, mock.Anything).Return(false, providerErr)

	outcome, err := newTestService(t, provider, true).CreateBooking(context.Background(), sampleRequest())

	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, calcom.ErrProviderUnavailable)
	provider.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBooking_CreateError(t *testing.T) {
	providerErr := &calcom.ProviderError{Op: "create_booking", StatusCode: http.StatusBadRequest, Body: `{"message":"taken"}`}

	t.Run("strict propagates", func(t *testing.T) {
		provider := &mocks.MockCalcomProvider{}
		provider.On("IsSlotAvailable", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
		provider.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, providerErr)

		outcome, err := newTestService(t, provider, true).CreateBooking(context.Background(), sampleRequest())

		require.Error(t, err)
		assert.Nil(t, outcome)
		assert.ErrorIs(t, err, calcom.ErrProviderUnavailable)
	})

	t.Run("lenient reports created", func(t *testing.T) {
		provider := &mocks.MockCalcomProvider{}
		provider.On("IsSlotAvailable", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
		provider.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, providerErr)

		outcome, err := newTestService(t, provider, false).CreateBooking(context.Background(), sampleRequest())

		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, outcome.Kind)
		assert.Equal(t, MessageCreated, outcome.Message)
		assert.Nil(t, outcome.Booking)
		assert.Equal(t, providerErr, outcome.CreateErr)
	})
}

func TestFindBookings(t *testing.T) {
	provider := &mocks.MockCalcomProvider{}
	provider.On("ListBookingReferences", mock.Anything).Return([]calcom.BookingReference{
		{BookingID: 1}, {BookingID: 2}, {BookingID: 3},
	}, nil)
	provider.On("GetBooking", mock.Anything, 1).Return(&calcom.Booking{ID: 1, Attendees: []calcom.Attendee{{Email: "other@example.com"}}}, nil)
	provider.On("GetBooking", mock.Anything, 2).Return(&calcom.Booking{ID: 2, Attendees: []calcom.Attendee{{Email: "x@example.com"}, {Email: "ann@example.com"}}}, nil)
	provider.On("GetBooking", mock.Anything, 3).Return(&calcom.Booking{ID: 3, Attendees: []calcom.Attendee{{Email: "ANN@example.com"}}}, nil)

	svc := newTestService(t, provider, true)

	first, err := svc.FindBookings(context.Background(), "ann@example.com")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 2, first[0].ID)

	second, err := svc.FindBookings(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFindBookings_PreservesOrder(t *testing.T) {
	provider := &mocks.MockCalcomProvider{}
	provider.On("ListBookingReferences", mock.Anything).Return([]calcom.BookingReference{
		{BookingID: 30}, {BookingID: 0}, {BookingID: 10}, {BookingID: 30}, {BookingID: 20},
	}, nil)
	for _, id := range []int{30, 10, 20} {
		provider.On("GetBooking", mock.Anything, id).
			Return(&calcom.Booking{ID: id, Attendees: []calcom.Attendee{{Email: "ann@example.com"}}}, nil).Once()
	}

	bookings, err := newTestService(t, provider, true).FindBookings(context.Background(), "ann@example.com")

	require.NoError(t, err)
	ids := make([]int, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []int{30, 10, 20}, ids)
	provider.AssertNotCalled(t, "GetBooking", mock.Anything, 0)
	provider.AssertExpectations(t)
}

func TestFindBookings_SkipsFailedLookups(t *testing.T) {
	provider := &mocks.MockCalcomProvider{}
	provider.On("ListBookingReferences", mock.Anything).Return([]calcom.BookingReference{{BookingID: 1}, {BookingID: 2}}, nil)
	provider.On("GetBooking", mock.Anything, 1).Return(nil, &calcom.ProviderError{Op: "get_booking", StatusCode: http.StatusNotFound})
	provider.On("GetBooking", mock.Anything, 2).Return(&calcom.Booking{ID: 2, Attendees: []calcom.Attendee{{Email: "ann@example.com"}}}, nil)

	bookings, err := newTestService(t, provider, true).FindBookings(context.Background(), "ann@example.com")

	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, 2, bookings[0].ID)
}

func TestFindBookings_NoMatches(t *testing.T) {
	provider := &mocks.MockCalcomProvider{}
	provider.On("ListBookingReferences", mock.Anything).Return([]calcom.BookingReference{}, nil)

	bookings, err := newTestService(t, provider, true).FindBookings(context.Background(), "ann@example.com")

	require.NoError(t, err)
	assert.NotNil(t, bookings)
	assert.Empty(t, bookings)
}

func TestFindBookings_ReferenceListError(t *testing.T) {
	provider := &mocks.MockCalcomProvider{}
	provider.On("ListBookingReferences", mock.Anything).Return(nil, &calcom.ProviderError{Op: "booking_references", StatusCode: http.StatusUnauthorized})

	bookings, err := newTestService(t, provider, true).FindBookings(context.Background(), "ann@example.com")

	require.Error(t, err)
	assert.Nil(t, bookings)
	assert.ErrorIs(t, err, calcom.ErrProviderUnavailable)
}

func TestFindBookings_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &mocks.MockCalcomProvider{}
	provider.On("ListBookingReferences", mock.Anything).Return([]calcom.BookingReference{{BookingID: 1}, {BookingID: 2}}, nil)
	provider.On("GetBooking", mock.Anything, 1).Run(func(mock.Arguments) { cancel() }).Return(nil, errors.New("request canceled"))

	_, err := newTestService(t, provider, true).FindBookings(ctx, "ann@example.com")

	require.ErrorIs(t, err, context.Canceled)
	provider.AssertNotCalled(t, "GetBooking", mock.Anything, 2)
}

func TestBookingRequestValidate(t *testing.T) {
	require.NoError(t, sampleRequest().Validate())

	req := sampleRequest()
	req.Email = ""
	req.Title = "  "
	err := req.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "email, title")
}
