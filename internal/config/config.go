// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds every setting of the server, worker and CLI.
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development" validate:"oneof=development production test"`
	Port     string `env:"APP_PORT" envDefault:"8080" validate:"required,numeric"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	// LogFile enables a rotating log file next to stdout.
	LogFile string `env:"LOG_FILE"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"sqlite" validate:"oneof=postgres sqlite"`
	DatabaseURL   string `env:"DATABASE_URL" validate:"required_if=StorageDriver postgres"`
	SQLitePath    string `env:"SQLITE_PATH"`
	AutoMigrate   bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	// LockTimeout bounds the wait for a counter row lock.
	LockTimeout      time.Duration `env:"NUMBERING_LOCK_TIMEOUT" envDefault:"5s" validate:"gt=0"`
	StatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" envDefault:"30s" validate:"gt=0"`

	// JWTSecret enables bearer authentication on the API when set.
	JWTSecret string `env:"JWT_SECRET"`

	OutboxEnabled      bool          `env:"OUTBOX_ENABLED" envDefault:"true"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"5s" validate:"gt=0"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100" validate:"gt=0"`

	// RedisURL, when set, makes the worker deliver events to a Redis stream
	// instead of the log.
	RedisURL     string `env:"REDIS_URL" validate:"omitempty,url"`
	EventsStream string `env:"EVENTS_STREAM" envDefault:"docnum:events" validate:"required"`
}

// IsDevelopment reports whether verbose development logging applies.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// DefaultSQLitePath is the database file used when SQLITE_PATH is unset.
func DefaultSQLitePath() string {
	return filepath.Join(xdg.DataHome, "docnum", "docnum.db")
}

// Load reads the given .env files (or ./.env when none are named and it exists)
// and parses the environment. Variables already set win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			files = []string{".env"}
		}
	}
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.StorageDriver == DriverSQLite && cfg.SQLitePath == "" {
		cfg.SQLitePath = DefaultSQLitePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("config %s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return errors.Join(errs...)
}
