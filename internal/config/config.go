// Package config provides console configuration loading from environment variables and .env files.
// It uses viper for flexible configuration management with sensible defaults.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds all console configuration loaded from environment variables or .env file.
// Configuration priority: environment variables > .env file > defaults.
type Config struct {
	AppEnv         string        // Application environment (dev, staging, prod)
	HTTPAddr       string        // Console HTTP bind address (e.g., ":8080")
	MetricsAddr    string        // Metrics server bind address
	RulesBaseURL   string        // Base URL of the remote rule service
	RulesTimeout   time.Duration // Per-request timeout for rule service calls
	LogLevel       string        // zerolog level name
	LogFormat      string        // "console" or "json"
	RateLimitPerIP int           // Requests per minute per client IP on the console
	SessionIdle    time.Duration // Evaluate sessions unused this long are dropped
}

// Load reads configuration from environment variables and .env file (if present).
// Environment variables take precedence over .env file values.
//
// Load does not check values; call Validate before starting servers.
func Load() (*Config, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigFile(".env") // Optional; silently ignored if file doesn't exist
	_ = viperInstance.ReadInConfig()    // Ignore error - .env is optional
	viperInstance.AutomaticEnv()        // Read from environment variables

	setConfigDefaults(viperInstance)

	return &Config{
		AppEnv:         viperInstance.GetString("APP_ENV"),
		HTTPAddr:       viperInstance.GetString("CONSOLE_HTTP_ADDR"),
		MetricsAddr:    viperInstance.GetString("METRICS_ADDR"),
		RulesBaseURL:   strings.TrimRight(viperInstance.GetString("RULES_BASE_URL"), "/"),
		RulesTimeout:   viperInstance.GetDuration("RULES_TIMEOUT"),
		LogLevel:       viperInstance.GetString("LOG_LEVEL"),
		LogFormat:      viperInstance.GetString("LOG_FORMAT"),
		RateLimitPerIP: viperInstance.GetInt("RATE_LIMIT_PER_IP"),
		SessionIdle:    viperInstance.GetDuration("SESSION_IDLE"),
	}, nil
}

// setConfigDefaults sets default values for all configuration options.
// These defaults match a rule service running locally on its usual port.
func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("CONSOLE_HTTP_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("RULES_BASE_URL", "http://localhost:8086")
	v.SetDefault("RULES_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("RATE_LIMIT_PER_IP", 100)
	v.SetDefault("SESSION_IDLE", "30m")
}

// ValidationError represents a configuration validation error with details about what failed.
type ValidationError struct {
	Field   string // Name of the configuration field
	Message string // Human-readable error message
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed [%s]: %s", e.Field, e.Message)
}

// Validate checks that the configuration can start the console.
//
// Validation Rules:
//  1. CONSOLE_HTTP_ADDR and METRICS_ADDR must be non-empty
//  2. RULES_BASE_URL must be an absolute http(s) URL with a host
//  3. RULES_TIMEOUT must be positive
//  4. LOG_LEVEL must be a zerolog level, LOG_FORMAT console or json
//  5. RATE_LIMIT_PER_IP must be positive
//  6. SESSION_IDLE must be positive
//
// Returns the first failure as a ValidationError.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return ValidationError{Field: "CONSOLE_HTTP_ADDR", Message: "HTTP server address cannot be empty"}
	}
	if c.MetricsAddr == "" {
		return ValidationError{Field: "METRICS_ADDR", Message: "metrics server address cannot be empty"}
	}

	u, err := url.Parse(c.RulesBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ValidationError{
			Field:   "RULES_BASE_URL",
			Message: fmt.Sprintf("must be an http(s) URL with a host, got '%s'", c.RulesBaseURL),
		}
	}

	if c.RulesTimeout <= 0 {
		return ValidationError{Field: "RULES_TIMEOUT", Message: "timeout must be positive"}
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return ValidationError{Field: "LOG_LEVEL", Message: fmt.Sprintf("unknown log level '%s'", c.LogLevel)}
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return ValidationError{Field: "LOG_FORMAT", Message: fmt.Sprintf("must be 'console' or 'json', got '%s'", c.LogFormat)}
	}

	if c.RateLimitPerIP <= 0 {
		return ValidationError{Field: "RATE_LIMIT_PER_IP", Message: "rate limit must be positive"}
	}

	if c.SessionIdle <= 0 {
		return ValidationError{Field: "SESSION_IDLE", Message: "session idle timeout must be positive"}
	}

	return nil
}
