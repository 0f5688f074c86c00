package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omriShneor/calbot/internal/agent/assistant"
	"github.com/omriShneor/calbot/internal/booking"
	"github.com/omriShneor/calbot/internal/calcom/calcomtest"
	"github.com/omriShneor/calbot/internal/database"
	"github.com/omriShneor/calbot/internal/notify"
	"github.com/omriShneor/calbot/internal/server"
	"github.com/omriShneor/calbot/internal/timeutil"
)

const (
	// TestAPIKey is the Cal.com key the fake provider accepts
	TestAPIKey = "cal_test_key"
	// TestEventTypeID is the event type bookings are created for
	TestEventTypeID = 4242
)

// TestServer wraps a server for E2E testing
type TestServer struct {
	Server     *server.Server
	DB         *database.DB
	HTTPServer *httptest.Server
	t          *testing.T

	// Fakes for external services
	CalCom   *calcomtest.Server
	Backend  *MockBackend
	Notifier *MockNotifier

	strictCreate bool
	rateLimit    int
}

// TestServerOption configures a test server
type TestServerOption func(*TestServer)

// WithLenientCreate reports creation failures as success
func WithLenientCreate() TestServerOption {
	return func(ts *TestServer) {
		ts.strictCreate = false
	}
}

// WithRateLimit caps /api requests per client per minute
func WithRateLimit(perMinute int) TestServerOption {
	return func(ts *TestServer) {
		ts.rateLimit = perMinute
	}
}

// WithUnconfiguredBackend makes the assistant fall back to keyword routing
func WithUnconfiguredBackend() TestServerOption {
	return func(ts *TestServer) {
		ts.Backend.SetConfigured(false)
	}
}

// NewTestServer creates a fully configured test server for E2E testing
func NewTestServer(t *testing.T, opts ...TestServerOption) *TestServer {
	t.Helper()

	// Create in-memory database
	db, err := database.New(":memory:", zap.NewNop())
	require.NoError(t, err, "failed to create test database")

	ts := &TestServer{
		DB:           db,
		t:            t,
		CalCom:       calcomtest.New(TestAPIKey),
		Backend:     NewMockBackend(),
		Notifier:     NewMockNotifier(),
		strictCreate: true,
	}

	// Apply options before creating server
	for _, opt := range opts {
		opt(ts)
	}

	normalizer := timeutil.MustNormalizer(timeutil.DefaultTimezone)
	bookings, err := booking.NewService(ts.CalCom.Client(TestEventTypeID), booking.Config{
		EventTypeID:  TestEventTypeID,
		StrictCreate: ts.strictCreate,
	}, nil)
	require.NoError(t, err)

	bookingAssistant, err := assistant.NewAgent(assistant.Config{
		Backend: ts.Backend,
	})
	require.NoError(t, err)

	ts.Server, err = server.New(server.ServerConfig{
		DB:                 db,
		Assistant:          bookingAssistant,
		Bookings:           bookings,
		NotifyService:      notify.NewService(ts.Notifier, nil),
		Location:           normalizer.Location(),
		Port:               0, // Will use httptest server
		RateLimitPerMinute: ts.rateLimit,
	})
	require.NoError(t, err)

	ts.HTTPServer = httptest.NewServer(ts.Server.Handler())

	t.Cleanup(func() {
		ts.HTTPServer.Close()
		ts.CalCom.Close()
		db.Close()
	})

	return ts
}

// BaseURL returns the test server base URL
func (ts *TestServer) BaseURL() string {
	return ts.HTTPServer.URL
}

// Client returns an HTTP client configured for the test server
func (ts *TestServer) Client() *http.Client {
	return ts.HTTPServer.Client()
}
