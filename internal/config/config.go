// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and the environment on top.
// - Validation failures wrap ErrInvalidConfig, loader failures wrap ErrLoadConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Store drivers understood by the service.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" json:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" json:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" json:"addr"`

	// StoreDriver picks the repository backend: memory or sqlite.
	StoreDriver string `koanf:"store_driver" json:"store_driver"`
	// SQLiteDSN is the database path or DSN used by the sqlite driver.
	SQLiteDSN string `koanf:"sqlite_dsn" json:"sqlite_dsn"`

	// RedisAddr enables the distributed round lock when non-empty.
	RedisAddr     string `koanf:"redis_addr" json:"redis_addr"`
	RedisPassword string `koanf:"redis_password" json:"redis_password"`
	RedisDB       int    `koanf:"redis_db" json:"redis_db"`
	// LockTTLMS bounds how long a round lock may be held.
	LockTTLMS int `koanf:"lock_ttl_ms" json:"lock_ttl_ms"`

	// WorkerCount sets the number of aggregate rebuild workers.
	WorkerCount int `koanf:"worker_count" json:"worker_count"`
	// QueueSize bounds the rebuild job queue.
	QueueSize int `koanf:"queue_size" json:"queue_size"`
	// DedupeSize bounds the idempotency key cache.
	DedupeSize int `koanf:"dedupe_size" json:"dedupe_size"`

	// ScoreRetryBackoffMS is the pause before retrying a transient score write failure.
	ScoreRetryBackoffMS int `koanf:"score_retry_backoff_ms" json:"score_retry_backoff_ms"`
	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit" json:"max_leaderboard_limit"`
	// ShutdownTimeoutMS bounds graceful HTTP shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms" json:"shutdown_timeout_ms"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		StoreDriver:         StoreMemory,
		SQLiteDSN:           "hackjudge.db",
		LockTTLMS:           30_000,
		WorkerCount:         runtime.NumCPU(),
		QueueSize:           10_000,
		DedupeSize:          50_000,
		ScoreRetryBackoffMS: 50,
		MaxLeaderboardLimit: 500,
		ShutdownTimeoutMS:   30_000,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != StoreMemory && c.StoreDriver != StoreSQLite:
		return fmt.Errorf("%w: store_driver must be %q or %q, got %q", ErrInvalidConfig, StoreMemory, StoreSQLite, c.StoreDriver)
	case c.StoreDriver == StoreSQLite && strings.TrimSpace(c.SQLiteDSN) == "":
		return fmt.Errorf("%w: sqlite_dsn must not be empty for the sqlite driver", ErrInvalidConfig)
	case c.LockTTLMS <= 0:
		return fmt.Errorf("%w: lock_ttl_ms must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be at least 1", ErrInvalidConfig)
	case c.ScoreRetryBackoffMS < 0:
		return fmt.Errorf("%w: score_retry_backoff_ms must not be negative", ErrInvalidConfig)
	}
	return nil
}
