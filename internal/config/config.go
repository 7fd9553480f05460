// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/mmynk/receiptsplit/internal/money"
)

// devSessionSecret signs session tokens in development when SESSION_SECRET is unset.
const devSessionSecret = "receiptsplit-dev-secret-do-not-use"

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DBPath             string
	LogLevel           string
	SessionSecret      string
	SessionTTL         time.Duration
	PurgeInterval      time.Duration
	Currency           string
	MetricsNamespace   string
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DBPath:             valueOrDefault(k.String("DB_PATH"), "./data/sessions.db"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		SessionSecret:      strings.TrimSpace(k.String("SESSION_SECRET")),
		Currency:           strings.ToUpper(valueOrDefault(k.String("CURRENCY"), "USD")),
		MetricsNamespace:   valueOrDefault(k.String("METRICS_NAMESPACE"), "receiptsplit"),
		CORSAllowedOrigins: splitAndTrim(valueOrDefault(k.String("CORS_ALLOWED_ORIGINS"), "*")),
	}

	var err error
	if cfg.SessionTTL, err = parseDuration("SESSION_TTL", k.String("SESSION_TTL"), "30m"); err != nil {
		return nil, err
	}
	if cfg.PurgeInterval, err = parseDuration("SESSION_PURGE_INTERVAL", k.String("SESSION_PURGE_INTERVAL"), "5m"); err != nil {
		return nil, err
	}

	if cfg.SessionSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, errors.New("SESSION_SECRET is required outside development")
		}
		cfg.SessionSecret = devSessionSecret
	}
	if cfg.SessionTTL <= 0 {
		return nil, errors.New("SESSION_TTL must be positive")
	}
	if cfg.PurgeInterval <= 0 {
		return nil, errors.New("SESSION_PURGE_INTERVAL must be positive")
	}
	if err := money.CheckCurrency(cfg.Currency); err != nil {
		return nil, fmt.Errorf("CURRENCY: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(key, value, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(valueOrDefault(value, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
