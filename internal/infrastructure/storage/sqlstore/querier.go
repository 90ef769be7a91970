// Package sqlstore implements the numbering store contracts once, on top of
// squirrel, for every SQL backend. A backend contributes a Dialect and a
// Source that hands out the transaction bound to the context.
package sqlstore

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
)

// ErrNoRows is returned by Querier.Get when the query matched nothing.
var ErrNoRows = errors.New("sqlstore: no rows in result set")

// Querier is the driver-neutral subset the repositories need.
// Adapters translate driver errors (lock timeouts, missing rows) before returning.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Get(ctx context.Context, dst any, sql string, args ...any) error
	Select(ctx context.Context, dst any, sql string, args ...any) error
}

// Source returns the querier for ctx: the active transaction if there is one,
// the connection pool otherwise.
type Source interface {
	Querier(ctx context.Context) Querier
}

// Dialect captures what differs between backends.
type Dialect struct {
	Name        string
	Placeholder squirrel.PlaceholderFormat

	// ForUpdate is appended to reads that must lock the row. Empty when the
	// transaction itself already holds an exclusive lock.
	ForUpdate string

	// SkipLocked is appended to queue reads shared by several workers.
	SkipLocked string
}

var (
	Postgres = Dialect{
		Name:        "postgres",
		Placeholder: squirrel.Dollar,
		ForUpdate:   "FOR UPDATE",
		SkipLocked:  "FOR UPDATE SKIP LOCKED",
	}

	// SQLite transactions start with BEGIN IMMEDIATE and hold the database
	// write lock, so no row lock clause exists or is needed.
	SQLite = Dialect{
		Name:        "sqlite",
		Placeholder: squirrel.Question,
	}
)

// Builder returns a squirrel builder with the dialect's placeholders.
func (d Dialect) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

// base is embedded by every repository.
type base struct {
	src     Source
	dialect Dialect
}

func (b base) builder() squirrel.StatementBuilderType {
	return b.dialect.Builder()
}

func (b base) get(ctx context.Context, dst any, q squirrel.Sqlizer) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return err
	}
	return b.src.Querier(ctx).Get(ctx, dst, sql, args...)
}

func (b base) selectAll(ctx context.Context, dst any, q squirrel.Sqlizer) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return err
	}
	return b.src.Querier(ctx).Select(ctx, dst, sql, args...)
}

func (b base) exec(ctx context.Context, q squirrel.Sqlizer) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}
	return b.src.Querier(ctx).Exec(ctx, sql, args...)
}

// forUpdate appends the dialect's lock clause when it has one.
func (b base) forUpdate(q squirrel.SelectBuilder) squirrel.SelectBuilder {
	if b.dialect.ForUpdate == "" {
		return q
	}
	return q.Suffix(b.dialect.ForUpdate)
}
