// Package app wires configuration, storage and the numbering engine together
// for the binaries under cmd/.
package app

import (
	"context"
	"fmt"

	"docnum/internal/config"
	domain "docnum/internal/domain/numbering"
	"docnum/internal/infrastructure/storage"
	"docnum/pkg/logger"
)

// Version is overridden at build time with -ldflags "-X docnum/internal/app.Version=...".
var Version = "dev"

// App holds the long-lived components of one process.
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	Backend   *storage.Backend
	Engine    *domain.Engine
	Lifecycle *domain.Lifecycle
}

// NewLogger builds the process logger from cfg and installs it as default.
func NewLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		File:        cfg.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	return log, nil
}

// StorageConfig maps the service settings onto the storage bootstrap.
func StorageConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		Driver:           cfg.StorageDriver,
		DatabaseURL:      cfg.DatabaseURL,
		SQLitePath:       cfg.SQLitePath,
		LockTimeout:      cfg.LockTimeout,
		StatementTimeout: cfg.StatementTimeout,
		AutoMigrate:      cfg.AutoMigrate,
	}
}

// Open connects to storage and builds the engine.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	backend, err := storage.Open(ctx, StorageConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	deps := domain.Deps{
		TxManager:   backend.TxManager,
		Submissions: backend.Submissions,
		Series:      backend.Series,
		Projects:    backend.Projects,
		Counters:    backend.Counters,
		Audit:       backend.Audit,
	}
	if cfg.OutboxEnabled {
		deps.Events = backend.Outbox
	}
	engine := domain.NewEngine(deps)

	return &App{
		Config:    cfg,
		Log:       log,
		Backend:   backend,
		Engine:    engine,
		Lifecycle: domain.NewLifecycle(engine, backend.Submissions, backend.Series),
	}, nil
}

// Close releases storage.
func (a *App) Close() {
	a.Backend.Close()
}
