package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"docnum/internal/core/apperror"
	"docnum/internal/core/id"
	"docnum/internal/core/numbering"
)

const (
	TableProjects      = "projects"
	TableDocumentTypes = "document_types"
	TableSeries        = "doc_number_series"
	TableSubmissions   = "submissions"
	TableCounters      = "doc_number_counters"
	TableAudit         = "doc_number_audit"
	TableOutbox        = "sys_outbox"
)

// acquireAttempts bounds the read-or-create loop. The second pass always finds
// the row a concurrent creator committed.
const acquireAttempts = 2

var _ numbering.CounterStore = (*CounterRepo)(nil)

// CounterRepo keeps one row per (series, period key) bucket.
// Values are read and advanced under the row lock; nothing is cached in memory.
type CounterRepo struct {
	base
}

func NewCounterRepo(src Source, dialect Dialect) *CounterRepo {
	return &CounterRepo{base{src: src, dialect: dialect}}
}

// AcquireAndIncrement must run inside a transaction: the row lock it takes is
// what serializes concurrent generators of the same bucket.
func (r *CounterRepo) AcquireAndIncrement(ctx context.Context, seriesID id.ID, periodKey string, start int64) (int64, bool, error) {
	for range acquireAttempts {
		current, found, err := r.lockCurrent(ctx, seriesID, periodKey)
		if err != nil {
			return 0, false, err
		}

		if found {
			next := current + 1
			_, err := r.exec(ctx, r.builder().
				Update(TableCounters).
				Set("current_number", next).
				Set("updated_at", time.Now().UTC()).
				Where(squirrel.Eq{"series_id": seriesID, "period_key": periodKey}))
			if err != nil {
				return 0, false, fmt.Errorf("advance counter %s/%s: %w", seriesID, periodKey, err)
			}
			return next, false, nil
		}

		created, err := r.create(ctx, seriesID, periodKey, start)
		if err != nil {
			return 0, false, err
		}
		if created {
			return start, true, nil
		}
		// Another transaction created the bucket first; its row is locked until
		// that transaction ends, so the next read waits for it.
	}

	return 0, false, apperror.NewLockTimeout(
		fmt.Errorf("counter %s/%s: bucket was not visible after creation conflict", seriesID, periodKey))
}

func (r *CounterRepo) lockCurrent(ctx context.Context, seriesID id.ID, periodKey string) (int64, bool, error) {
	q := r.forUpdate(r.builder().
		Select("current_number").
		From(TableCounters).
		Where(squirrel.Eq{"series_id": seriesID, "period_key": periodKey}))

	var current int64
	err := r.get(ctx, &current, q)
	switch {
	case err == nil:
		return current, true, nil
	case errors.Is(err, ErrNoRows):
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("lock counter %s/%s: %w", seriesID, periodKey, err)
	}
}

func (r *CounterRepo) create(ctx context.Context, seriesID id.ID, periodKey string, start int64) (bool, error) {
	now := time.Now().UTC()
	n, err := r.exec(ctx, r.builder().
		Insert(TableCounters).
		Columns("series_id", "period_key", "current_number", "created_at", "updated_at").
		Values(seriesID, periodKey, start, now, now).
		Suffix("ON CONFLICT (series_id, period_key) DO NOTHING"))
	if err != nil {
		return false, fmt.Errorf("create counter %s/%s: %w", seriesID, periodKey, err)
	}
	return n == 1, nil
}

// Current reads the last issued value without taking a lock.
func (r *CounterRepo) Current(ctx context.Context, seriesID id.ID, periodKey string) (int64, bool, error) {
	var current int64
	err := r.get(ctx, &current, r.builder().
		Select("current_number").
		From(TableCounters).
		Where(squirrel.Eq{"series_id": seriesID, "period_key": periodKey}))
	switch {
	case err == nil:
		return current, true, nil
	case errors.Is(err, ErrNoRows):
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("read counter %s/%s: %w", seriesID, periodKey, err)
	}
}

// List returns every bucket of a series, newest period first.
func (r *CounterRepo) List(ctx context.Context, seriesID id.ID) ([]numbering.Counter, error) {
	var out []numbering.Counter
	err := r.selectAll(ctx, &out, r.builder().
		Select(Columns[numbering.Counter]()...).
		From(TableCounters).
		Where(squirrel.Eq{"series_id": seriesID}).
		OrderBy("period_key DESC"))
	if err != nil {
		return nil, fmt.Errorf("list counters of %s: %w", seriesID, err)
	}
	return out, nil
}
