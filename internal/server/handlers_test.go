package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/calbot/internal/agent/assistant"
	"github.com/omriShneor/calbot/internal/agent/tools"
	"github.com/omriShneor/calbot/internal/booking"
	"github.com/omriShneor/calbot/internal/calcom"
	"github.com/omriShneor/calbot/internal/database"
	"github.com/omriShneor/calbot/internal/mocks"
	"github.com/omriShneor/calbot/internal/notify"
	"github.com/omriShneor/calbot/internal/timeutil"
)

type mockInterpreter struct {
	mock.Mock
}

func (m *mockInterpreter) Interpret(ctx context.Context, message string) (*assistant.Intent, error) {
	args := m.Called(ctx, message)
	if intent := args.Get(0); intent != nil {
		return intent.(*assistant.Intent), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockBookings struct {
	mock.Mock
}

func (m *mockBookings) CreateBooking(ctx context.Context, req booking.BookingRequest) (*booking.Outcome, error) {
	args := m.Called(ctx, req)
	if outcome := args.Get(0); outcome != nil {
		return outcome.(*booking.Outcome), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookings) FindBookings(ctx context.Context, email string) ([]calcom.Booking, error) {
	args := m.Called(ctx, email)
	if bookings := args.Get(0); bookings != nil {
		return bookings.([]calcom.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

type testDeps struct {
	server    *Server
	db        *database.DB
	assistant *mockInterpreter
	bookings  *mockBookings
	notifier  *mocks.MockNotifier
}

// createTestServer creates a server backed by an in-memory database and mocks
func createTestServer(t *testing.T, rateLimit int) *testDeps {
	t.Helper()
	deps := &testDeps{
		db:        database.NewTestDB(t),
		assistant: &mockInterpreter{},
		bookings:  &mockBookings{},
		notifier:  &mocks.MockNotifier{},
	}

	s, err := New(ServerConfig{
		DB:                 deps.db,
		Assistant:          deps.assistant,
		Bookings:           deps.bookings,
		NotifyService:      notify.NewService(deps.notifier, nil),
		Location:           timeutil.MustNormalizer("").Location(),
		RateLimitPerMinute: rateLimit,
	})
	require.NoError(t, err)
	deps.server = s
	return deps
}

func (d *testDeps) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	d.server.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func createdOutcome() *booking.Outcome {
	return &booking.Outcome{
		Kind:    booking.OutcomeCreated,
		Message: booking.MessageCreated,
		Interval: timeutil.Interval{
			Start: time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC),
		},
		Booking: &calcom.Booking{ID: 9, Title: "Intro"},
	}
}

func TestNew(t *testing.T) {
	_, err := New(ServerConfig{})
	require.Error(t, err)

	_, err = New(ServerConfig{DB: database.NewTestDB(t)})
	require.Error(t, err)

	_, err = New(ServerConfig{DB: database.NewTestDB(t), Assistant: &mockInterpreter{}})
	require.Error(t, err)

	// No write deadline on responses.
	d := createTestServer(t, 0)
	assert.Zero(t, d.server.httpSrv.WriteTimeout)
	assert.False(t, d.server.trustProxy)
}

func TestHandleHealthCheck(t *testing.T) {
	d := createTestServer(t, 0)

	w := d.do(t, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, true, response["email"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestHandleChat_Validation(t *testing.T) {
	d := createTestServer(t, 0)

	tests := []struct {
		name string
		body interface{}
		want string
	}{
		{"missing email", map[string]string{"message": "hi"}, errEmailAndMessageRequired},
		{"missing message", map[string]string{"email": "ann@example.com"}, errEmailAndMessageRequired},
		{"blank values", map[string]string{"email": " ", "message": " "}, errEmailAndMessageRequired},
		{"invalid json", "{", errInvalidBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := d.do(t, "POST", "/api/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, decodeBody(t, w)["error"])
		})
	}
	d.assistant.AssertNotCalled(t, "Interpret", mock.Anything, mock.Anything)
}

func TestRequestBodyTooLarge(t *testing.T) {
	d := createTestServer(t, 0)
	oversized := fmt.Sprintf(`{"email":"ann@example.com","message":%q}`, strings.Repeat("a", maxBodyBytes))

	for _, path := range []string{"/api/chat", "/api/bookings"} {
		t.Run(path, func(t *testing.T) {
			w := d.do(t, "POST", path, oversized)
			assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
			assert.Equal(t, errBodyTooLarge, decodeBody(t, w)["error"])
		})
	}
	d.assistant.AssertNotCalled(t, "Interpret", mock.Anything, mock.Anything)
	d.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestHandleChat_CreateBooking(t *testing.T) {
	d := createTestServer(t, 0)
	description := "Agenda"
	d.assistant.On("Interpret", mock.Anything, "book an intro").Return(&assistant.Intent{
		Kind:   assistant.IntentCreateBooking,
		Source: "openai",
		Booking: &tools.BookingArgs{
			Name: "Ann Lee", Date: "2024-03-01", Time: "11 AM", Title: "Intro", Description: &description,
		},
	}, nil)
	d.bookings.On("CreateBooking", mock.Anything, booking.BookingRequest{
		Name: "Ann Lee", Email: "ann@example.com", Date: "2024-03-01", Time: "11 AM", Title: "Intro", Description: &description,
	}).Return(createdOutcome(), nil)
	d.notifier.On("Send", mock.Anything, mock.MatchedBy(func(c *notify.Confirmation) bool {
		return c.BookingID == 9 && c.Name == "Ann Lee" && c.Description == "Agenda" && c.Location.String() == "America/New_York"
	}), "ann@example.com").Return(nil)

	w := d.do(t, "POST", "/api/chat", chatRequest{Email: "ann@example.com", Message: "book an intro"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reply":{"message":"Booking successfully created"}}`, w.Body.String())
	d.notifier.AssertExpectations(t)

	trace, err := d.db.GetChatTraceByRequestID(w.Header().Get(RequestIDHeader))
	require.NoError(t, err)
	assert.Equal(t, "create_booking", trace.Intent)
	assert.Equal(t, "created", trace.Outcome)
	assert.Equal(t, "openai", trace.LLMSource)
	assert.Equal(t, "2024-03-01T16:00:00.000Z", trace.StartUTC)
	require.NotNil(t, trace.BookingID)
	assert.Equal(t, int64(9), *trace.BookingID)
}

func TestHandleChat_NoSlot(t *testing.T) {
	d := createTestServer(t, 0)
	d.assistant.On("Interpret", mock.Anything, mock.Anything).Return(&assistant.Intent{
		Kind:    assistant.IntentCreateBooking,
		Booking: &tools.BookingArgs{Name: "Ann", Date: "2024-03-01", Time: "11", Title: "Intro"},
	}, nil)
	d.bookings.On("CreateBooking", mock.Anything, mock.Anything).Return(&booking.Outcome{
		Kind:    booking.OutcomeNoSlotAvailable,
		Message: booking.MessageNoSlot,
	}, nil)

	w := d.do(t, "POST", "/api/chat", chatRequest{Email: "ann@example.com", Message: "book"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reply":{"message":"No available slot for the requested time."}}`, w.Body.String())
	d.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleChat_LenientCreateDoesNotNotify(t *testing.T) {
	d := createTestServer(t, 0)
	d.assistant.On("Interpret", mock.Anything, mock.Anything).Return(&assistant.Intent{
		Kind:    assistant.IntentCreateBooking,
		Booking: &tools.BookingArgs{Name: "Ann", Date: "2024-03-01", Time: "11", Title: "Intro"},
	}, nil)
	outcome := createdOutcome()
	outcome.Booking = nil
	outcome.CreateErr = errors.New("provider rejected")
	d.bookings.On("CreateBooking", mock.Anything, mock.Anything).Return(outcome, nil)

	w := d.do(t, "POST", "/api/chat", chatRequest{Email: "ann@example.com", Message: "book"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reply":{"message":"Booking successfully created"}}`, w.Body.String())
	d.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)

	trace, err := d.db.GetChatTraceByRequestID(w.Header().Get(RequestIDHeader))
	require.NoError(t, err)
	assert.Equal(t, "provider rejected", trace.Error)
	assert.Nil(t, trace.BookingID)
}

func TestHandleChat_FindBookings(t *testing.T) {
	d := createTestServer(t, 0)
	d.assistant.On("Interpret", mock.Anything, mock.Anything).Return(&assistant.Intent{Kind: assistant.IntentFindBookings}, nil)
	d.bookings.On("FindBookings", mock.Anything, "ann@example.com").Return([]calcom.Booking{
		{ID: 2, Title: "Intro", StartTime: "2024-03-01T16:00:00.000Z", EndTime: "2024-03-01T17:00:00.000Z",
			Attendees: []calcom.Attendee{{Email: "ann@example.com", Name: "Ann"}}},
	}, nil)

	w := d.do(t, "POST", "/api/chat", chatRequest{Email: "ann@example.com", Message: "my bookings"})

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Reply []calcom.Booking `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Reply, 1)
	assert.Equal(t, 2, response.Reply[0].ID)
}

func TestHandleChat_FindBookingsEmpty(t *testing.T) {
	d := createTestServer(t, 0)
	d.assistant.On("Interpret", mock.Anything, mock.Anything).Return(&assistant.Intent{Kind: assistant.IntentFindBookings}, nil)
	d.bookings.On("FindBookings", mock.Anything, mock.Anything).Return([]calcom.Booking{}, nil)

	w := d.do(t, "POST", "/api/chat", chatRequest{Email: "ann@example.com", Message: "my bookings"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reply":[]}`, w.Body.String())
}

func TestHandleChat_TextReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"model text", "Which day works?", "Which day works?"},
		{"empty text", "", replyFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := createTestServer(t, 0)
			d.assistant.On("Interpret", mock.Anything, mock.Anything).Return(&assistant.Intent{Kind: assistant.IntentNone, Reply: tt.reply}, nil)

			w := d.do(t, "POST", "/api/chat", chatRequest{Email: "ann@example.com", Message: "hello"})

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, decodeBody(t, w)["reply"])
		})
	}
}

func TestHandleChat_Errors(t *testing.T) {
	bookingIntent := &assistant.Intent{
		Kind:    assistant.IntentCreateBooking,
		Booking: &tools.BookingArgs{Name: "Ann", Date: "2024-03-01", Time: "noonish", Title: "Intro"},
	}

	t.Run("invalid arguments", func(t *testing.T) {
		d := createTestServer(t, 0)
		d.assistant.On("Interpret", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("create_booking: %w", assistant.ErrInvalidArguments))

		w := d.do(t, "POST", "/api/chat", chatRequest{Email: "ann@example.com", Message: "book"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"reply":"Could not parse arguments."}`, w.Body.String())
		d.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
	})

	t.Run("assistant failure", func(t *testing.T) {
		d := createTestServer(t, 0)
		d.assistant.On("Interpret", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

		w := d.do(t, "POST", "/api/chat", chatRequest{Email: "ann@example.com", Message: "book"})

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, errAssistant, decodeBody(t, w)["error"])
	})

	t.Run("time format", func(t *testing.T) {
		d := createTestServer(t, 0)
		d.assistant.On("Interpret", mock.Anything, mock.Anything).Return(bookingIntent, nil)
		d.bookings.On("CreateBooking", mock.Anything, mock.Anything).
			Return(nil, &timeutil.TimeFormatError{Text: "noonish", Err: errors.New("bad")})

		w := d.do(t, "POST", "/api/chat", chatRequest{Email: "ann@example.com", Message: "book"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody(t, w)["error"], `"noonish"`)
	})

	t.Run("provider unavailable", func(t *testing.T) {
		d := createTestServer(t, 0)
		d.assistant.On("Interpret", mock.Anything, mock.Anything).Return(bookingIntent, nil)
		d.bookings.On("CreateBooking", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("failed to check availability: %w", &calcom.ProviderError{Op: "get_slots", StatusCode: 500}))

		w := d.do(t, "POST", "/api/chat", chatRequest{Email: "ann@example.com", Message: "book"})

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, errProviderUnavailable, decodeBody(t, w)["error"])

		trace, err := d.db.GetChatTraceByRequestID(w.Header().Get(RequestIDHeader))
		require.NoError(t, err)
		assert.Equal(t, outcomeFailed, trace.Outcome)
		assert.NotEmpty(t, trace.Error)
	})
}

func TestHandleCreateBooking(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		d := createTestServer(t, 0)
		req := booking.BookingRequest{Name: "Ann", Email: "ann@example.com", Date: "2024-03-01", Time: "11:00 AM", Title: "Intro"}
		d.bookings.On("CreateBooking", mock.Anything, req).Return(createdOutcome(), nil)
		d.notifier.On("Send", mock.Anything, mock.Anything, "ann@example.com").Return(nil)

		w := d.do(t, "POST", "/api/bookings", req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Booking successfully created"}`, w.Body.String())
		d.notifier.AssertExpectations(t)
	})

	t.Run("missing fields", func(t *testing.T) {
		d := createTestServer(t, 0)

		w := d.do(t, "POST", "/api/bookings", map[string]string{"name": "Ann"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody(t, w)["error"], "missing email, date, time, title")
		d.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
	})
}

func TestHandleFindBookings(t *testing.T) {
	t.Run("requires email", func(t *testing.T) {
		d := createTestServer(t, 0)
		w := d.do(t, "GET", "/api/bookings", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("reference list failure", func(t *testing.T) {
		d := createTestServer(t, 0)
		d.bookings.On("FindBookings", mock.Anything, "ann@example.com").
			Return(nil, &calcom.ProviderError{Op: "list_booking_references", StatusCode: 503})

		w := d.do(t, "GET", "/api/bookings?email=ann@example.com", nil)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("found", func(t *testing.T) {
		d := createTestServer(t, 0)
		d.bookings.On("FindBookings", mock.Anything, "ann@example.com").Return([]calcom.Booking{{ID: 2}}, nil)

		w := d.do(t, "GET", "/api/bookings?email=ann@example.com", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var bookings []calcom.Booking
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bookings))
		assert.Len(t, bookings, 1)
	})
}

func TestHandleListChatTraces(t *testing.T) {
	d := createTestServer(t, 0)
	d.assistant.On("Interpret", mock.Anything, mock.Anything).Return(&assistant.Intent{Kind: assistant.IntentNone, Reply: "hi"}, nil)

	for i := 0; i < 3; i++ {
		w := d.do(t, "POST", "/api/chat", chatRequest{Email: "ann@example.com", Message: fmt.Sprintf("hello %d", i)})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := d.do(t, "GET", "/api/chat/traces?email=ann@example.com&limit=2", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var traces []database.ChatTrace
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &traces))
	require.Len(t, traces, 2)
	assert.Equal(t, "hello 2", traces[0].Message)
	assert.Equal(t, "replied", traces[0].Outcome)

	assert.Equal(t, http.StatusBadRequest, d.do(t, "GET", "/api/chat/traces", nil).Code)
	assert.Equal(t, http.StatusBadRequest, d.do(t, "GET", "/api/chat/traces?email=a&limit=x", nil).Code)
}
