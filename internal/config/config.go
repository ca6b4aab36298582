// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - All functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig; loading failures wrap ErrLoadConfig.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabasePath is the sqlite database file.
	DatabasePath string `koanf:"database_path"`

	// RedisAddr enables the standings cache when non-empty.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// StandingsCacheTTLSeconds bounds the lifetime of cached standings.
	StandingsCacheTTLSeconds int `koanf:"standings_cache_ttl_seconds"`

	// WarmWorkers is the number of background workers refilling the standings
	// cache after mutations. Zero disables warm-up. Only used with RedisAddr.
	WarmWorkers int `koanf:"warm_workers"`

	// WarmQueueCapacity bounds pending warm-up jobs; excess jobs are dropped.
	WarmQueueCapacity int `koanf:"warm_queue_capacity"`

	// APITokens guard mutating endpoints with bearer auth. Empty disables auth.
	APITokens []string `koanf:"api_tokens"`

	// SessionsPageSize is the page size of the session list.
	SessionsPageSize int `koanf:"sessions_page_size"`

	// ShutdownTimeoutSeconds bounds graceful HTTP shutdown.
	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_seconds"`

	// Scoring defaults applied to new groups that leave them unset.
	DefaultTargetPoint   int   `koanf:"default_target_point"`
	DefaultStartPoint    int   `koanf:"default_start_point"`
	DefaultUma           []int `koanf:"default_uma"`
	DefaultChomboEnabled bool  `koanf:"default_chombo_enabled"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "text",
		Addr:                     ":9080",
		DatabasePath:             "jansou.db",
		StandingsCacheTTLSeconds: 300,
		WarmWorkers:              2,
		WarmQueueCapacity:        1024,
		SessionsPageSize:         10,
		ShutdownTimeoutSeconds:   10,
		DefaultTargetPoint:       30000,
		DefaultStartPoint:        30000,
		DefaultUma:               []int{15, 5, -5, -15},
		DefaultChomboEnabled:     true,
	}
}

// Validate checks the invariants the rest of the service relies on.
func (c *Config) Validate(_ context.Context) error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("%w: database_path must not be empty", ErrInvalidConfig)
	}
	if len(c.DefaultUma) != 4 {
		return fmt.Errorf("%w: default_uma must have 4 values, got %d", ErrInvalidConfig, len(c.DefaultUma))
	}
	if c.SessionsPageSize < 1 {
		return fmt.Errorf("%w: sessions_page_size must be at least 1", ErrInvalidConfig)
	}
	if c.WarmWorkers < 0 {
		return fmt.Errorf("%w: warm_workers must not be negative", ErrInvalidConfig)
	}
	if c.WarmWorkers > 0 && c.WarmQueueCapacity < 1 {
		return fmt.Errorf("%w: warm_queue_capacity must be at least 1", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// DefaultUmaArray returns DefaultUma as a fixed array. Call after Validate.
func (c *Config) DefaultUmaArray() [4]int {
	var out [4]int
	copy(out[:], c.DefaultUma)
	return out
}

// StandingsCacheTTL returns the cache TTL as a duration.
func (c *Config) StandingsCacheTTL() time.Duration {
	return time.Duration(c.StandingsCacheTTLSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown bound as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}
