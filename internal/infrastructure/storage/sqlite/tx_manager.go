package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docnum/internal/core/tx"
	"docnum/internal/infrastructure/storage/sqlstore"
	"docnum/pkg/logger"
)

var tracer = otel.Tracer("docnum/sqlite")

var (
	_ tx.ReadOnlyManager = (*TxManager)(nil)
	_ sqlstore.Source    = (*TxManager)(nil)
)

// TxManager runs functions in IMMEDIATE transactions carried by the context.
type TxManager struct {
	db *sql.DB
}

func NewTxManager(db *DB) *TxManager {
	return &TxManager{db: db.DB}
}

type txKey struct{}

// RunInTransaction executes fn within a transaction. A transaction already in
// ctx is reused, so nested calls commit or roll back together.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(attribute.String("db.system", "sqlite")))
	defer span.End()

	if m.getTx(ctx) != nil {
		return fn(ctx)
	}

	sqlTx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", classifyError(err))
	}

	txCtx := context.WithValue(ctx, txKey{}, sqlTx)
	if err := fn(txCtx); err != nil {
		// database/sql already rolled back if ctx was canceled.
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", classifyError(err))
	}
	return nil
}

// ReadOnly runs fn without opening a write transaction. Every transaction here
// takes the database write lock, so reads are left in autocommit mode.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *TxManager) getTx(ctx context.Context) *sql.Tx {
	if t, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return t
	}
	return nil
}

// Querier returns the transaction in ctx, or the pool.
func (m *TxManager) Querier(ctx context.Context) sqlstore.Querier {
	if t := m.getTx(ctx); t != nil {
		return querier{c: t}
	}
	return querier{c: m.db}
}
