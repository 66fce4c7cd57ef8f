// Package config provides configuration loading for the portal.
//
// Configuration is read from an optional YAML file and overridden by
// PORTAL_* environment variables. See LoadWithFile for precedence rules.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config holds the complete portal configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Auth         AuthConfig         `koanf:"auth"`
	Registration RegistrationConfig `koanf:"registration"`
	Drafts       DraftsConfig       `koanf:"drafts"`
	Session      SessionConfig      `koanf:"session"`
	RateLimit    RateLimitConfig    `koanf:"ratelimit"`
	Events       EventsConfig       `koanf:"events"`
	Logging      LoggingConfig      `koanf:"logging"`
	Telemetry    TelemetryConfig    `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"http_host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// AuthConfig points at the external authentication provider.
type AuthConfig struct {
	BaseURL    string        `koanf:"base_url"`
	APIKey     Secret        `koanf:"api_key"`
	Timeout    time.Duration `koanf:"timeout"`
	MaxRetries int           `koanf:"max_retries"`
	// RatePerSecond and Burst bound outbound calls to the provider.
	RatePerSecond float64 `koanf:"rate_per_second"`
	Burst         int     `koanf:"burst"`
}

// RegistrationConfig tunes the registration and login forms.
type RegistrationConfig struct {
	// RequireAddress enables validation of the community address field,
	// which is collected but unchecked by default.
	RequireAddress bool `koanf:"require_address"`
	// NotificationTTL is how long a notification stays visible.
	NotificationTTL time.Duration `koanf:"notification_ttl"`
}

// DraftsConfig controls the in-memory wizard draft store.
type DraftsConfig struct {
	IdleTTL       time.Duration `koanf:"idle_ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
	MaxDrafts     int           `koanf:"max_drafts"`
}

// SessionConfig controls the cookies written after login or registration.
type SessionConfig struct {
	CookieDomain string        `koanf:"cookie_domain"`
	Secure       bool          `koanf:"secure"`
	MaxAge       time.Duration `koanf:"max_age"`
}

// RateLimitConfig bounds inbound login and registration attempts per client IP.
type RateLimitConfig struct {
	Enabled       bool    `koanf:"enabled"`
	RatePerSecond float64 `koanf:"rate_per_second"`
	Burst         int     `koanf:"burst"`
}

// EventsConfig configures the NATS event publisher.
type EventsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// LoggingConfig is the subset of logging options exposed to operators.
type LoggingConfig struct {
	Level    string `koanf:"level"`
	Format   string `koanf:"format"`
	Sampling bool   `koanf:"sampling"`
}

// TelemetryConfig is the subset of OpenTelemetry options exposed to operators.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	Protocol    string  `koanf:"protocol"`
	Insecure    bool    `koanf:"insecure"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - The auth base URL is missing or not an http(s) URL
//   - Draft or notification lifetimes are not positive
//   - Rate limiting is enabled with a non-positive rate
//   - Events are enabled without a NATS URL
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Auth.BaseURL == "" {
		return errors.New("auth base_url is required")
	}
	u, err := url.Parse(c.Auth.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid auth base_url %q: must be an http(s) URL", c.Auth.BaseURL)
	}
	if c.Auth.Timeout <= 0 {
		return errors.New("auth timeout must be positive")
	}
	if c.Auth.MaxRetries < 0 {
		return fmt.Errorf("auth max_retries must be >= 0, got %d", c.Auth.MaxRetries)
	}

	if c.Registration.NotificationTTL <= 0 {
		return errors.New("registration notification_ttl must be positive")
	}
	if c.Drafts.IdleTTL <= 0 {
		return errors.New("drafts idle_ttl must be positive")
	}
	if c.Drafts.SweepInterval <= 0 {
		return errors.New("drafts sweep_interval must be positive")
	}
	if c.Drafts.MaxDrafts < 1 {
		return fmt.Errorf("drafts max_drafts must be >= 1, got %d", c.Drafts.MaxDrafts)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RatePerSecond <= 0 || c.RateLimit.Burst < 1) {
		return errors.New("ratelimit requires a positive rate_per_second and burst when enabled")
	}

	if c.Events.Enabled && c.Events.URL == "" {
		return errors.New("events url is required when events are enabled")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry endpoint is required when telemetry is enabled")
	}

	return nil
}
