package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"docnum/internal/core/apperror"
	"docnum/internal/core/id"
	"docnum/internal/core/numbering"
)

var _ numbering.SeriesStore = (*SeriesRepo)(nil)

// SeriesRepo reads series configuration. Series are owned by another service;
// the only column written here is the next_number high-water mark.
type SeriesRepo struct {
	base
	selectCols []string
}

func NewSeriesRepo(src Source, dialect Dialect) *SeriesRepo {
	return &SeriesRepo{
		base:       base{src: src, dialect: dialect},
		selectCols: Columns[numbering.Series](),
	}
}

func (r *SeriesRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(r.selectCols...).From(TableSeries)
}

func (r *SeriesRepo) GetSeries(ctx context.Context, seriesID id.ID) (*numbering.Series, error) {
	return r.getOne(ctx, seriesID, r.baseSelect().Where(squirrel.Eq{"id": seriesID}))
}

func (r *SeriesRepo) GetSeriesForUpdate(ctx context.Context, seriesID id.ID) (*numbering.Series, error) {
	return r.getOne(ctx, seriesID, r.forUpdate(r.baseSelect().Where(squirrel.Eq{"id": seriesID})))
}

func (r *SeriesRepo) getOne(ctx context.Context, seriesID id.ID, q squirrel.SelectBuilder) (*numbering.Series, error) {
	var s numbering.Series
	if err := r.get(ctx, &s, q); err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, apperror.NewNotFound("series", seriesID.String())
		}
		return nil, fmt.Errorf("get series %s: %w", seriesID, err)
	}
	return &s, nil
}

// GetSeriesByCode finds a live series by its code.
func (r *SeriesRepo) GetSeriesByCode(ctx context.Context, code string) (*numbering.Series, error) {
	var s numbering.Series
	err := r.get(ctx, &s, r.baseSelect().
		Where(squirrel.Eq{"code": code, "deletion_mark": false}))
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, apperror.NewNotFound("series", code)
		}
		return nil, fmt.Errorf("get series %q: %w", code, err)
	}
	return &s, nil
}

// ListSeries returns every series that is not soft-deleted, ordered by code.
func (r *SeriesRepo) ListSeries(ctx context.Context) ([]numbering.Series, error) {
	var out []numbering.Series
	err := r.selectAll(ctx, &out, r.baseSelect().
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("code"))
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	return out, nil
}

// RaiseNextNumber never lowers next_number, so replays and out-of-order
// buckets leave the highest value in place.
func (r *SeriesRepo) RaiseNextNumber(ctx context.Context, seriesID id.ID, next int64) error {
	n, err := r.exec(ctx, r.builder().
		Update(TableSeries).
		Set("next_number", squirrel.Expr("CASE WHEN next_number < ? THEN ? ELSE next_number END", next, next)).
		Where(squirrel.Eq{"id": seriesID}))
	if err != nil {
		return fmt.Errorf("raise next_number of %s: %w", seriesID, err)
	}
	if n == 0 {
		return apperror.NewNotFound("series", seriesID.String())
	}
	return nil
}
