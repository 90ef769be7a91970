package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/georgysavva/scany/v2/sqlscan"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"docnum/internal/core/apperror"
	"docnum/internal/infrastructure/storage/sqlstore"
)

// conn is satisfied by both *sql.DB and *sql.Tx.
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type querier struct {
	c conn
}

func (q querier) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.c.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifyError(err)
	}
	return res.RowsAffected()
}

func (q querier) Get(ctx context.Context, dst any, query string, args ...any) error {
	err := sqlscan.Get(ctx, q.c, dst, query, args...)
	if sqlscan.NotFound(err) {
		return sqlstore.ErrNoRows
	}
	return classifyError(err)
}

func (q querier) Select(ctx context.Context, dst any, query string, args ...any) error {
	return classifyError(sqlscan.Select(ctx, q.c, dst, query, args...))
}

// classifyError turns lock contention and expired deadlines into LOCK_TIMEOUT.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewLockTimeout(err)
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return apperror.NewLockTimeout(err)
		}
	}
	return err
}
