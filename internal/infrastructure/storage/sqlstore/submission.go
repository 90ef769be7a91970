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

var (
	_ numbering.SubmissionStore = (*SubmissionRepo)(nil)
	_ numbering.ProjectStore    = (*ProjectRepo)(nil)
)

// SubmissionRepo reads submissions and writes only their document number.
type SubmissionRepo struct {
	base
	selectCols []string
}

func NewSubmissionRepo(src Source, dialect Dialect) *SubmissionRepo {
	return &SubmissionRepo{
		base:       base{src: src, dialect: dialect},
		selectCols: Columns[numbering.Submission](),
	}
}

func (r *SubmissionRepo) GetSubmission(ctx context.Context, submissionID id.ID) (*numbering.Submission, error) {
	var s numbering.Submission
	err := r.get(ctx, &s, r.builder().
		Select(r.selectCols...).
		From(TableSubmissions).
		Where(squirrel.Eq{"id": submissionID}))
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, apperror.NewNotFound("submission", submissionID.String())
		}
		return nil, fmt.Errorf("get submission %s: %w", submissionID, err)
	}
	return &s, nil
}

func (r *SubmissionRepo) StampDocumentNumber(ctx context.Context, submissionID id.ID, number string) error {
	n, err := r.exec(ctx, r.builder().
		Update(TableSubmissions).
		Set("document_number", number).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": submissionID}))
	if err != nil {
		return fmt.Errorf("stamp submission %s: %w", submissionID, err)
	}
	if n == 0 {
		return apperror.NewNotFound("submission", submissionID.String())
	}
	return nil
}

// ProjectRepo resolves the {PROJECT} token source.
type ProjectRepo struct {
	base
}

func NewProjectRepo(src Source, dialect Dialect) *ProjectRepo {
	return &ProjectRepo{base{src: src, dialect: dialect}}
}

func (r *ProjectRepo) GetProject(ctx context.Context, projectID id.ID) (*numbering.Project, error) {
	var p numbering.Project
	err := r.get(ctx, &p, r.builder().
		Select("id", "code", "name").
		From(TableProjects).
		Where(squirrel.Eq{"id": projectID}))
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, apperror.NewNotFound("project", projectID.String())
		}
		return nil, fmt.Errorf("get project %s: %w", projectID, err)
	}
	return &p, nil
}

func (r *ProjectRepo) GetProjectByDocumentType(ctx context.Context, documentTypeID id.ID) (*numbering.Project, error) {
	var p numbering.Project
	err := r.get(ctx, &p, r.builder().
		Select("p.id", "p.code", "p.name").
		From(TableProjects+" p").
		Join(TableDocumentTypes+" dt ON dt.project_id = p.id").
		Where(squirrel.Eq{"dt.id": documentTypeID}))
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, apperror.NewNotFound("document type", documentTypeID.String())
		}
		return nil, fmt.Errorf("get project of document type %s: %w", documentTypeID, err)
	}
	return &p, nil
}
