package sqlstore

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"docnum/internal/core/id"
	"docnum/internal/core/numbering"
)

var (
	_ numbering.AuditWriter = (*AuditRepo)(nil)
	_ numbering.AuditReader = (*AuditRepo)(nil)
)

// DefaultAuditLimit caps series-wide listings when the caller passes no limit.
const DefaultAuditLimit = 100

// AuditRepo is the append-only store of generated numbers.
// It exposes no update or delete.
type AuditRepo struct {
	base
	selectCols []string
}

func NewAuditRepo(src Source, dialect Dialect) *AuditRepo {
	return &AuditRepo{
		base:       base{src: src, dialect: dialect},
		selectCols: Columns[numbering.AuditRecord](),
	}
}

// Append writes rec inside the caller's transaction, assigning an ID when rec has none.
func (r *AuditRepo) Append(ctx context.Context, rec *numbering.AuditRecord) error {
	if id.IsNil(rec.ID) {
		rec.ID = id.New()
	}
	if _, err := r.exec(ctx, r.builder().Insert(TableAudit).SetMap(ToMap(rec))); err != nil {
		return fmt.Errorf("append audit for submission %s: %w", rec.SubmissionID, err)
	}
	return nil
}

// ListBySubmission returns the generation history of one submission, oldest first.
func (r *AuditRepo) ListBySubmission(ctx context.Context, submissionID id.ID) ([]numbering.AuditRecord, error) {
	var out []numbering.AuditRecord
	err := r.selectAll(ctx, &out, r.builder().
		Select(r.selectCols...).
		From(TableAudit).
		Where(squirrel.Eq{"submission_id": submissionID}).
		OrderBy("generated_at", "id"))
	if err != nil {
		return nil, fmt.Errorf("list audit of submission %s: %w", submissionID, err)
	}
	return out, nil
}

// ListBySeries returns the latest records of a series, newest first.
func (r *AuditRepo) ListBySeries(ctx context.Context, seriesID id.ID, limit int) ([]numbering.AuditRecord, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	var out []numbering.AuditRecord
	err := r.selectAll(ctx, &out, r.builder().
		Select(r.selectCols...).
		From(TableAudit).
		Where(squirrel.Eq{"series_id": seriesID}).
		OrderBy("generated_at DESC", "id DESC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("list audit of series %s: %w", seriesID, err)
	}
	return out, nil
}
