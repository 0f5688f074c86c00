package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()
}

// LLM providers accepted in CALBOT_LLM_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config is built once at startup and passed to every component.
type Config struct {
	// Cal.com
	CalAPIKey      string
	CalAPIBase     string
	CalEventTypeID int
	CalHTTPTimeout time.Duration

	// Booking
	StrictCreate bool

	// Language model
	LLMProvider     string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	ClaudeModel     string
	LLMTemperature  float64

	// Server
	DBPath             string
	HTTPPort           int
	DevMode            bool
	LogLevel           string
	RateLimitPerMinute int
	TrustProxy         bool

	// Email
	ResendAPIKey string
	EmailFrom    string
}

func LoadFromEnv() *Config {
	cfg := &Config{
		CalAPIKey:      os.Getenv("CAL_API_KEY"),
		CalAPIBase:     getEnvOrDefault("CAL_API_BASE", "https://api.cal.com/v1"),
		CalEventTypeID: getEnvAsIntOrDefault("CAL_EVENT_TYPE_ID", 0),
		CalHTTPTimeout: time.Duration(getEnvAsIntOrDefault("CAL_HTTP_TIMEOUT_SECONDS", 30)) * time.Second,

		StrictCreate: getEnvAsBoolOrDefault("CALBOT_STRICT_CREATE", true),

		LLMProvider:     strings.ToLower(getEnvOrDefault("CALBOT_LLM_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getEnvOrDefault("CALBOT_OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:   os.Getenv("CALBOT_OPENAI_BASE_URL"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		ClaudeModel:     getEnvOrDefault("CALBOT_CLAUDE_MODEL", "claude-sonnet-4-20250514"),
		LLMTemperature:  getEnvAsFloatOrDefault("CALBOT_LLM_TEMPERATURE", 0.1),

		DBPath:             getEnvOrDefault("CALBOT_DB_PATH", "./calbot.db"),
		HTTPPort:           getEnvAsIntOrDefault("CALBOT_HTTP_PORT", 8080),
		DevMode:            getEnvAsBoolOrDefault("CALBOT_DEV_MODE", false),
		LogLevel:           getEnvOrDefault("CALBOT_LOG_LEVEL", "info"),
		RateLimitPerMinute: getEnvAsIntOrDefault("CALBOT_RATE_LIMIT_PER_MINUTE", 30),
		TrustProxy:         getEnvAsBoolOrDefault("CALBOT_TRUST_PROXY", false),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		EmailFrom:    getEnvOrDefault("CALBOT_EMAIL_FROM", "Calbot <bookings@calbot.dev>"),
	}

	return cfg
}

// Validate reports every missing or invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.CalAPIKey == "" {
		errs = append(errs, errors.New("CAL_API_KEY is required"))
	}
	if c.CalEventTypeID <= 0 {
		errs = append(errs, errors.New("CAL_EVENT_TYPE_ID must be a positive integer"))
	}
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("CALBOT_LLM_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderAnthropic, c.LLMProvider))
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("CALBOT_HTTP_PORT %d is out of range", c.HTTPPort))
	}
	return errors.Join(errs...)
}

// LLMAPIKey returns the key of the selected provider.
func (c *Config) LLMAPIKey() string {
	if c.LLMProvider == ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
