package postgres

import (
	"context"
	"errors"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"docnum/internal/core/apperror"
	"docnum/internal/infrastructure/storage/sqlstore"
)

// SQLSTATE codes treated as lock timeouts.
const (
	codeLockNotAvailable = "55P03"
	codeQueryCanceled    = "57014"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type querier struct {
	q pgxQuerier
}

func (a querier) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := a.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, classifyError(err)
	}
	return tag.RowsAffected(), nil
}

func (a querier) Get(ctx context.Context, dst any, sql string, args ...any) error {
	err := pgxscan.Get(ctx, a.q, dst, sql, args...)
	if pgxscan.NotFound(err) {
		return sqlstore.ErrNoRows
	}
	return classifyError(err)
}

func (a querier) Select(ctx context.Context, dst any, sql string, args ...any) error {
	return classifyError(pgxscan.Select(ctx, a.q, dst, sql, args...))
}

// classifyError turns lock_timeout, statement_timeout and expired deadlines
// into LOCK_TIMEOUT.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewLockTimeout(err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeLockNotAvailable, codeQueryCanceled:
			return apperror.NewLockTimeout(err)
		}
	}
	return err
}
