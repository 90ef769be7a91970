package numbering

import (
	"context"

	"docnum/internal/core/id"
)

// SubmissionStore reads submissions and stamps their number.
// Lookups of missing rows return an apperror NOT_FOUND.
type SubmissionStore interface {
	GetSubmission(ctx context.Context, submissionID id.ID) (*Submission, error)
	StampDocumentNumber(ctx context.Context, submissionID id.ID, number string) error
}

// SeriesStore reads series configuration.
type SeriesStore interface {
	GetSeries(ctx context.Context, seriesID id.ID) (*Series, error)

	// GetSeriesForUpdate reads the series and holds a row lock on it until the
	// enclosing transaction ends.
	GetSeriesForUpdate(ctx context.Context, seriesID id.ID) (*Series, error)

	// RaiseNextNumber sets next_number = max(next_number, next).
	RaiseNextNumber(ctx context.Context, seriesID id.ID, next int64) error
}

// ProjectStore resolves the project behind a submission.
type ProjectStore interface {
	GetProject(ctx context.Context, projectID id.ID) (*Project, error)
	GetProjectByDocumentType(ctx context.Context, documentTypeID id.ID) (*Project, error)
}

// CounterStore owns the per-bucket sequence values.
type CounterStore interface {
	// AcquireAndIncrement locks the (seriesID, periodKey) counter for the rest of the
	// enclosing transaction and issues the next value. A missing bucket is created at
	// start and reported with isNew.
	AcquireAndIncrement(ctx context.Context, seriesID id.ID, periodKey string, start int64) (seq int64, isNew bool, err error)

	// Current reads the last issued value without locking.
	Current(ctx context.Context, seriesID id.ID, periodKey string) (value int64, exists bool, err error)
}

// AuditWriter appends audit records. Records are never updated or deleted.
type AuditWriter interface {
	Append(ctx context.Context, rec *AuditRecord) error
}

// AuditReader lists audit history.
type AuditReader interface {
	ListBySubmission(ctx context.Context, submissionID id.ID) ([]AuditRecord, error)
	ListBySeries(ctx context.Context, seriesID id.ID, limit int) ([]AuditRecord, error)
}

// AssignedEvent is published when a number is committed.
type AssignedEvent struct {
	SubmissionID   id.ID   `json:"submissionId"`
	SeriesID       id.ID   `json:"seriesId"`
	DocumentNumber string  `json:"documentNumber"`
	PeriodKey      string  `json:"periodKey"`
	SequenceNumber int64   `json:"sequenceNumber"`
	Trigger        Trigger `json:"trigger"`
	GeneratedBy    string  `json:"generatedBy"`
}

// EventTypeAssigned is the outbox event type for AssignedEvent.
const EventTypeAssigned = "document_number.assigned"

// EventPublisher writes events inside the current transaction.
type EventPublisher interface {
	PublishAssigned(ctx context.Context, event AssignedEvent) error
}
