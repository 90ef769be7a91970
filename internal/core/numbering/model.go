package numbering

import (
	"time"

	"docnum/internal/core/apperror"
	"docnum/internal/core/id"
)

// Series is a numbering scope: template, reset policy and trigger, with its own counters.
// ResetPolicy and GenerateOn are stored as entered and normalized on every use.
type Series struct {
	ID              id.ID       `db:"id" json:"id"`
	Code            string      `db:"code" json:"code"`
	ProjectID       id.Optional `db:"project_id" json:"projectId"`
	Template        string      `db:"template" json:"template"`
	ResetPolicy     string      `db:"reset_policy" json:"resetPolicy"`
	GenerateOn      string      `db:"generate_on" json:"generateOn"`
	SequenceStart   int64       `db:"sequence_start" json:"sequenceStart"`
	SequencePadding int         `db:"sequence_padding" json:"sequencePadding"`

	// NextNumber is a diagnostic high-water mark. Sequence values come from the
	// counter row, never from here.
	NextNumber int64 `db:"next_number" json:"nextNumber"`

	IsActive     bool `db:"is_active" json:"isActive"`
	DeletionMark bool `db:"deletion_mark" json:"deletionMark"`
}

// EffectiveStart is the first value issued in a fresh bucket.
func (s *Series) EffectiveStart() int64 {
	if s.SequenceStart <= 0 {
		return DefaultSequenceStart
	}
	return s.SequenceStart
}

// EffectivePadding is the minimum width of {SEQ}.
func (s *Series) EffectivePadding() int {
	if s.SequencePadding <= 0 {
		return DefaultPadding
	}
	return s.SequencePadding
}

// CanGenerate rejects deleted and inactive series.
func (s *Series) CanGenerate() error {
	if s.DeletionMark {
		return apperror.NewNotFound("series", s.ID.String())
	}
	if !s.IsActive {
		return apperror.NewConfiguration(apperror.CodeSeriesInactive, "series is inactive").
			WithDetail("series_id", s.ID.String()).
			WithDetail("code", s.Code)
	}
	return nil
}

// Project supplies the {PROJECT} token.
type Project struct {
	ID   id.ID  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// TokenSource returns the raw value for {PROJECT}: the code, else the name.
func (p *Project) TokenSource() string {
	if p == nil {
		return ""
	}
	if p.Code != "" {
		return p.Code
	}
	return p.Name
}

// DocumentType links submissions to a project.
type DocumentType struct {
	ID        id.ID  `db:"id" json:"id"`
	ProjectID id.ID  `db:"project_id" json:"projectId"`
	Name      string `db:"name" json:"name"`
}

// Submission is the business record that receives the number.
type Submission struct {
	ID             id.ID       `db:"id" json:"id"`
	SeriesID       id.ID       `db:"series_id" json:"seriesId"`
	DocumentTypeID id.Optional `db:"document_type_id" json:"documentTypeId"`
	DocumentNumber string      `db:"document_number" json:"documentNumber"`
	SubmittedBy    string      `db:"submitted_by" json:"submittedBy"`
	DeletionMark   bool        `db:"deletion_mark" json:"deletionMark"`
}

// IsDraft reports whether the submission still needs a number.
func (s *Submission) IsDraft() bool {
	return IsDraftNumber(s.DocumentNumber)
}

// Counter is the last value issued for one (series, period key) bucket.
type Counter struct {
	SeriesID      id.ID     `db:"series_id" json:"seriesId"`
	PeriodKey     string    `db:"period_key" json:"periodKey"`
	CurrentNumber int64     `db:"current_number" json:"currentNumber"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// AuditRecord is the immutable proof of one generation.
type AuditRecord struct {
	ID             id.ID     `db:"id" json:"id"`
	SubmissionID   id.ID     `db:"submission_id" json:"submissionId"`
	SeriesID       id.ID     `db:"series_id" json:"seriesId"`
	DocumentNumber string    `db:"document_number" json:"documentNumber"`
	Template       string    `db:"template" json:"template"`
	PeriodKey      string    `db:"period_key" json:"periodKey"`
	SequenceNumber int64     `db:"sequence_number" json:"sequenceNumber"`
	Trigger        Trigger   `db:"generation_trigger" json:"trigger"`
	GeneratedBy    string    `db:"generated_by" json:"generatedBy"`
	GeneratedAt    time.Time `db:"generated_at" json:"generatedAt"`
}

// SystemUserID is recorded when neither the caller nor the submission names a user.
const SystemUserID = "system"

// ResolveActor picks the user recorded in the audit trail.
func ResolveActor(actingUserID string, sub *Submission) string {
	if actingUserID != "" {
		return actingUserID
	}
	if sub != nil && sub.SubmittedBy != "" {
		return sub.SubmittedBy
	}
	return SystemUserID
}
