package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port            int           `env:"PORT" envDefault:"5000"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	PostgresURL     string        `env:"POSTGRES_URL"`
	Debug           bool          `env:"DEBUG"`
	LogPretty       bool          `env:"LOG_PRETTY"`
	InitialScore    int           `env:"INITIAL_SCORE" envDefault:"20"`
	PingInterval    time.Duration `env:"PING_INTERVAL" envDefault:"30s"`
	RateLimit       float64       `env:"RATE_LIMIT" envDefault:"10"`
	RateBurst       int           `env:"RATE_BURST" envDefault:"20"`
	OutboxSize      int           `env:"OUTBOX_SIZE" envDefault:"256"`
	JournalQueue    int           `env:"JOURNAL_QUEUE" envDefault:"1024"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.OutboxSize <= 0 {
		return Config{}, fmt.Errorf("OUTBOX_SIZE must be positive, got %d", cfg.OutboxSize)
	}
	if cfg.PingInterval <= 0 {
		return Config{}, fmt.Errorf("PING_INTERVAL must be positive, got %s", cfg.PingInterval)
	}
	if cfg.JournalQueue <= 0 {
		return Config{}, fmt.Errorf("JOURNAL_QUEUE must be positive, got %d", cfg.JournalQueue)
	}
	if cfg.RateLimit <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT must be positive, got %g", cfg.RateLimit)
	}
	if cfg.RateBurst <= 0 {
		return Config{}, fmt.Errorf("RATE_BURST must be positive, got %d", cfg.RateBurst)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// JournalEnabled reports whether roll results should be written to Postgres.
func (c Config) JournalEnabled() bool {
	return c.PostgresURL != ""
}
