package main

import (
	"context"
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
	"github.com/omriShneor/calbot/internal/config"
	"github.com/omriShneor/calbot/internal/database"
	"github.com/omriShneor/calbot/internal/logging"
	"github.com/omriShneor/calbot/internal/notify"
	"github.com/omriShneor/calbot/internal/server"
	"github.com/omriShneor/calbot/internal/timeutil"
)

func main() {
	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		fatal("validating config", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.DevMode)
	if err != nil {
		fatal("creating logger", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	db, err := database.New(cfg.DBPath, logger)
	if err != nil {
		fatal("creating database", err)
	}
	defer db.Close()

	normalizer, err := timeutil.NewNormalizer(timeutil.DefaultTimezone)
	if err != nil {
		fatal("loading timezone", err)
	}

	calClient := calcom.NewClient(calcom.Config{
		BaseURL:     cfg.CalAPIBase,
		APIKey:      cfg.CalAPIKey,
		EventTypeID: cfg.CalEventTypeID,
		Timeout:     cfg.CalHTTPTimeout,
	})

	bookings, err := booking.NewService(calClient, booking.Config{
		EventTypeID:  cfg.CalEventTypeID,
		StrictCreate: cfg.StrictCreate,
	}, logger)
	if err != nil {
		fatal("creating booking service", err)
	}

	backend := initBackend(cfg)
	if !backend.IsConfigured() {
		logger.Warn("language model key not set, only keyword lookups will work",
			zap.String("provider", cfg.LLMProvider))
	}

	bookingAssistant, err := assistant.NewAgent(assistant.Config{
		Backend: backend,
		Logger:  logger,
	})
	if err != nil {
		fatal("creating assistant", err)
	}

	srv, err := server.New(server.ServerConfig{
		DB:                 db,
		Assistant:          bookingAssistant,
		Bookings:           bookings,
		NotifyService:      initNotifyService(cfg, logger),
		Location:           normalizer.Location(),
		Port:               cfg.HTTPPort,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustProxy:         cfg.TrustProxy,
		Logger:             logger,
	})
	if err != nil {
		fatal("creating server", err)
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	waitForShutdown(srv, logger)
}

func initBackend(cfg *config.Config) agent.Backend {
	if cfg.LLMProvider == config.ProviderAnthropic {
		return agent.NewAPIClient(cfg.AnthropicAPIKey, cfg.ClaudeModel, cfg.LLMTemperature)
	}
	return agent.NewOpenAIClient(agent.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.OpenAIModel,
		BaseURL:     cfg.OpenAIBaseURL,
		Temperature: cfg.LLMTemperature,
	})
}

func initNotifyService(cfg *config.Config, logger *zap.Logger) *notify.Service {
	// NewResendNotifier returns nil without a key; keep the interface nil too.
	var emailNotifier notify.Notifier
	if resendNotifier := notify.NewResendNotifier(cfg.ResendAPIKey, cfg.EmailFrom); resendNotifier != nil {
		emailNotifier = resendNotifier
		logger.Info("email confirmations enabled", zap.String("from", cfg.EmailFrom))
	}
	return notify.NewService(emailNotifier, logger)
}

func fatal(context string, err error) {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", context, err)
	os.Exit(1)
}

func waitForShutdown(srv *server.Server, logger *zap.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
