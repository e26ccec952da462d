// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL    string
	ServerPort     string
	AllowedOrigins string

	// WebhookSecret authenticates inbound webhook requests. Empty means the
	// endpoint runs in open/insecure mode, which is logged loudly at startup.
	WebhookSecret string

	BillingBaseURL   string
	BillingAuthToken string
	BillingOrgID     string

	LogLevel  string
	LogFormat string

	SweepInterval   time.Duration
	SweepBatchSize  int
	SweepMaxRetries int
}

// Load reads configuration from env vars. DATABASE_URL is the only required
// value; everything else has a default.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		ServerPort:       envOr("SERVER_PORT", "8080"),
		AllowedOrigins:   os.Getenv("ALLOWED_ORIGINS"),
		WebhookSecret:    os.Getenv("WEBHOOK_SECRET"),
		BillingBaseURL:   envOr("BILLING_API_BASE_URL", "https://books.zoho.com/api/v3"),
		BillingAuthToken: os.Getenv("BILLING_AUTH_TOKEN"),
		BillingOrgID:     os.Getenv("BILLING_ORG_ID"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        envOr("LOG_FORMAT", "json"),
		SweepInterval:    5 * time.Minute,
		SweepBatchSize:   50,
		SweepMaxRetries:  5,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL %q: %w", v, err)
		}
		cfg.SweepInterval = d
	}
	if v := os.Getenv("SWEEP_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_BATCH_SIZE %q: %w", v, err)
		}
		cfg.SweepBatchSize = n
	}
	if v := os.Getenv("SWEEP_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_MAX_RETRIES %q: %w", v, err)
		}
		cfg.SweepMaxRetries = n
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
