// Package storage opens the configured backend and wires the shared
// repositories to it.
package storage

import (
	"context"
	"fmt"
	"time"

	"docnum/internal/core/tx"
	"docnum/internal/infrastructure/storage/postgres"
	"docnum/internal/infrastructure/storage/sqlite"
	"docnum/internal/infrastructure/storage/sqlstore"
	"docnum/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config selects and tunes the backend.
type Config struct {
	Driver           string
	DatabaseURL      string
	SQLitePath       string
	LockTimeout      time.Duration
	StatementTimeout time.Duration
	AutoMigrate      bool
}

// Backend bundles the transaction manager and repositories of one database.
type Backend struct {
	Driver    string
	TxManager tx.ReadOnlyManager

	Submissions *sqlstore.SubmissionRepo
	Series      *sqlstore.SeriesRepo
	Projects    *sqlstore.ProjectRepo
	Counters    *sqlstore.CounterRepo
	Audit       *sqlstore.AuditRepo
	Outbox      *sqlstore.OutboxRepo
	Seeder      *sqlstore.Seeder

	migrate  func() error
	ping     func(ctx context.Context) error
	logStats func(ctx context.Context)
	close    func()
}

// Open connects to the backend named by cfg.Driver and, with AutoMigrate,
// brings the schema up to date.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	var (
		b   *Backend
		err error
	)
	switch cfg.Driver {
	case DriverPostgres:
		b, err = openPostgres(ctx, cfg)
	case DriverSQLite, "":
		b, err = openSQLite(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := b.Migrate(); err != nil {
			b.Close()
			return nil, err
		}
	}

	logger.Info(ctx, "storage ready", "driver", b.Driver)
	return b, nil
}

func openPostgres(ctx context.Context, cfg Config) (*Backend, error) {
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return nil, err
	}

	opts := postgres.DefaultTxOptions()
	if cfg.LockTimeout > 0 {
		opts.LockTimeout = cfg.LockTimeout
	}
	if cfg.StatementTimeout > 0 {
		opts.StatementTimeout = cfg.StatementTimeout
	}
	txm := postgres.NewTxManager(pool, opts)

	b := newBackend(DriverPostgres, txm, txm, sqlstore.Postgres)
	b.migrate = func() error { return postgres.Migrate(pool) }
	b.ping = pool.Ping
	b.logStats = func(ctx context.Context) { postgres.LogPoolStats(ctx, pool) }
	b.close = pool.Close
	return b, nil
}

func openSQLite(ctx context.Context, cfg Config) (*Backend, error) {
	db, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.SQLitePath, BusyTimeout: cfg.LockTimeout})
	if err != nil {
		return nil, err
	}
	txm := sqlite.NewTxManager(db)

	b := newBackend(DriverSQLite, txm, txm, sqlstore.SQLite)
	b.migrate = func() error { return sqlite.Migrate(db) }
	b.ping = db.PingContext
	b.logStats = func(ctx context.Context) {
		stat := db.Stats()
		logger.Info(ctx, "database stats",
			"path", db.Path(),
			"open", stat.OpenConnections,
			"in_use", stat.InUse,
			"wait_count", stat.WaitCount,
			"wait_duration", stat.WaitDuration,
		)
	}
	b.close = func() { _ = db.Close() }
	return b, nil
}

func newBackend(driver string, txm tx.ReadOnlyManager, src sqlstore.Source, dialect sqlstore.Dialect) *Backend {
	return &Backend{
		Driver:      driver,
		TxManager:   txm,
		Submissions: sqlstore.NewSubmissionRepo(src, dialect),
		Series:      sqlstore.NewSeriesRepo(src, dialect),
		Projects:    sqlstore.NewProjectRepo(src, dialect),
		Counters:    sqlstore.NewCounterRepo(src, dialect),
		Audit:       sqlstore.NewAuditRepo(src, dialect),
		Outbox:      sqlstore.NewOutboxRepo(src, dialect),
		Seeder:      sqlstore.NewSeeder(txm, src, dialect),
	}
}

// Migrate applies pending schema migrations.
func (b *Backend) Migrate() error {
	return b.migrate()
}

// Ping checks that the database answers.
func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

// LogStats logs connection pool statistics.
func (b *Backend) LogStats(ctx context.Context) {
	b.logStats(ctx)
}

// Close releases every connection.
func (b *Backend) Close() {
	b.close()
}
