package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/omriShneor/calbot/internal/agent/assistant"
	"github.com/omriShneor/calbot/internal/booking"
	"github.com/omriShneor/calbot/internal/calcom"
	"github.com/omriShneor/calbot/internal/database"
	"github.com/omriShneor/calbot/internal/notify"
)

// Interpreter turns a chat message into an intent.
type Interpreter interface {
	Interpret(ctx context.Context, message string) (*assistant.Intent, error)
}

// BookingService creates and looks up bookings.
type BookingService interface {
	CreateBooking(ctx context.Context, req booking.BookingRequest) (*booking.Outcome, error)
	FindBookings(ctx context.Context, email string) ([]calcom.Booking, error)
}

type Server struct {
	db            *database.DB
	assistant     Interpreter
	bookings      BookingService
	notifyService *notify.Service
	location      *time.Location
	limiter       *rateLimiter
	trustProxy    bool
	logger        *zap.Logger
	httpSrv       *http.Server
	port          int
}

// ServerConfig holds everything the server depends on
type ServerConfig struct {
	DB            *database.DB
	Assistant     Interpreter
	Bookings      BookingService
	NotifyService *notify.Service
	// Location is the zone booking times are shown in for confirmations.
	Location *time.Location
	Port     int
	// RateLimitPerMinute caps /api requests per client; 0 disables limiting.
	RateLimitPerMinute int
	// TrustProxy keys the rate limiter on X-Forwarded-For instead of the
	// socket address. Enable only behind a proxy that sets the header.
	TrustProxy bool
	Logger     *zap.Logger
}

func New(cfg ServerConfig) (*Server, error) {
	if cfg.DB == nil {
		return nil, errors.New("database is required")
	}
	if cfg.Assistant == nil {
		return nil, errors.New("assistant is required")
	}
	if cfg.Bookings == nil {
		return nil, errors.New("booking service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	notifyService := cfg.NotifyService
	if notifyService == nil {
		notifyService = notify.NewService(nil, logger)
	}

	s := &Server{
		db:            cfg.DB,
		assistant:     cfg.Assistant,
		bookings:      cfg.Bookings,
		notifyService: notifyService,
		location:      location,
		limiter:       newRateLimiter(cfg.RateLimitPerMinute),
		trustProxy:    cfg.TrustProxy,
		logger:        logger.Named("server"),
		port:          cfg.Port,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	// No WriteTimeout: a lookup makes one provider call per booking and is
	// bounded by the provider client's own timeout and the request context.
	s.httpSrv = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.corsMiddleware(s.requestIDMiddleware(s.rateLimitMiddleware(mux))),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s, nil
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", s.handleHealthCheck)

	// Chat API
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/chat/traces", s.handleListChatTraces)

	// Bookings API
	mux.HandleFunc("POST /api/bookings", s.handleCreateBooking)
	mux.HandleFunc("GET /api/bookings", s.handleFindBookings)
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", fmt.Sprintf("http://localhost:%d", s.port)))
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the server's HTTP handler for testing purposes
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}
