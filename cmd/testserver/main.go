// Package main provides a test server for exercising the chat flow end to end.
// It runs with in-memory SQLite and an in-process fake Cal.com, and uses the
// real language model when a key is configured.
//
// Usage:
//
//	OPENAI_API_KEY=sk-... go run ./cmd/testserver
//
// The server exposes additional test control endpoints:
//   - POST /api/test/reset - Drop all fake Cal.com state
//   - POST /api/test/bookings - Seed a booking in the fake Cal.com
//   - GET /api/test/created - List booking payloads the fake received
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/omriShneor/calbot/internal/agent"
	"github.com/omriShneor/calbot/internal/agent/assistant"
	"github.com/omriShneor/calbot/internal/booking"
	"github.com/omriShneor/calbot/internal/calcom"
	"github.com/omriShneor/calbot/internal/calcom/calcomtest"
	"github.com/omriShneor/calbot/internal/config"
	"github.com/omriShneor/calbot/internal/database"
	"github.com/omriShneor/calbot/internal/logging"
	"github.com/omriShneor/calbot/internal/notify"
	"github.com/omriShneor/calbot/internal/server"
	"github.com/omriShneor/calbot/internal/timeutil"
)

const testEventTypeID = 1

func main() {
	cfg := config.LoadFromEnv()

	logger, err := logging.New(cfg.LogLevel, true)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting calbot test server (in-memory SQLite, fake Cal.com)")

	// Create in-memory database
	db, err := database.New(":memory:", logger)
	if err != nil {
		logger.Fatal("failed to create database", zap.Error(err))
	}
	defer db.Close()

	fake := calcomtest.New("")
	defer fake.Close()
	logger.Info("fake Cal.com running", zap.String("url", fake.URL()))

	bookings, err := booking.NewService(fake.Client(testEventTypeID), booking.Config{
		EventTypeID:  testEventTypeID,
		StrictCreate: cfg.StrictCreate,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create booking service", zap.Error(err))
	}

	var backend agent.Backend
	if cfg.LLMProvider == config.ProviderAnthropic {
		backend = agent.NewAPIClient(cfg.AnthropicAPIKey, cfg.ClaudeModel, cfg.LLMTemperature)
	} else {
		backend = agent.NewOpenAIClient(agent.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			BaseURL:     cfg.OpenAIBaseURL,
			Temperature: cfg.LLMTemperature,
		})
	}
	if !backend.IsConfigured() {
		logger.Warn("no language model key set, falling back to keyword routing")
	}

	bookingAssistant, err := assistant.NewAgent(assistant.Config{
		Backend: backend,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("failed to create assistant", zap.Error(err))
	}

	normalizer, err := timeutil.NewNormalizer(timeutil.DefaultTimezone)
	if err != nil {
		logger.Fatal("failed to load timezone", zap.Error(err))
	}

	srv, err := server.New(server.ServerConfig{
		DB:            db,
		Assistant:     bookingAssistant,
		Bookings:      bookings,
		NotifyService: notify.NewService(nil, logger),
		Location:      normalizer.Location(),
		Port:          cfg.HTTPPort,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	// Create test control mux
	testMux := http.NewServeMux()
	mainHandler := srv.Handler()

	testMux.HandleFunc("POST /api/test/reset", func(w http.ResponseWriter, r *http.Request) {
		logger.Info("resetting fake Cal.com")
		fake.Reset()
		respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	})

	testMux.HandleFunc("POST /api/test/bookings", func(w http.ResponseWriter, r *http.Request) {
		var b calcom.Booking
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		fake.AddBooking(b)
		respondJSON(w, http.StatusCreated, map[string]string{"status": "added"})
	})

	testMux.HandleFunc("GET /api/test/created", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, fake.CreatedBookings())
	})

	// Fallback to main handler
	testMux.Handle("/", mainHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      corsMiddleware(testMux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		fmt.Printf("\nTest Server running on http://localhost:%d\n", cfg.HTTPPort)
		fmt.Println("\nTest endpoints:")
		fmt.Println("  POST /api/test/reset    - Drop all fake Cal.com state")
		fmt.Println("  POST /api/test/bookings - Seed a booking")
		fmt.Println("  GET  /api/test/created  - List received booking payloads")
		fmt.Println("\nPress Ctrl+C to stop")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down test server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
