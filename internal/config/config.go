// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the approval service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	// BaseURL is the front-end origin used to build approval and
	// verification links embedded in outbound email.
	BaseURL string

	// ResendAPIKey enables delivery through the Resend API. When empty the
	// service logs email previews instead of sending.
	ResendAPIKey string
	MailFrom     string

	// TokenTTL bounds the lifetime of minted approval tokens.
	TokenTTL time.Duration

	// SweepIntervalHours is how often expired tokens are purged.
	SweepIntervalHours int
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("BASE_URL is required")
	}

	port := os.Getenv("APPROVAL_PORT")
	if port == "" {
		port = "8084"
	}

	mailFrom := os.Getenv("MAIL_FROM")
	if mailFrom == "" {
		mailFrom = "TalentFlow <no-reply@talentflow.local>"
	}

	ttlHours, err := intEnv("TOKEN_TTL_HOURS", 168) // 7 days
	if err != nil {
		return nil, err
	}

	sweepHours, err := intEnv("TOKEN_SWEEP_INTERVAL_HOURS", 24)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:               port,
		DatabaseURL:        dbURL,
		RedisURL:           redisURL,
		BaseURL:            baseURL,
		ResendAPIKey:       os.Getenv("RESEND_API_KEY"),
		MailFrom:           mailFrom,
		TokenTTL:           time.Duration(ttlHours) * time.Hour,
		SweepIntervalHours: sweepHours,
	}, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return v, nil
}
