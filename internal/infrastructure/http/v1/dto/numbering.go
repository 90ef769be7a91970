package dto

import (
	"time"

	"docnum/internal/core/numbering"
)

// GenerateNumberRequest asks for a number outside the workflow hooks.
// An empty trigger means Submit.
type GenerateNumberRequest struct {
	Trigger string `json:"trigger" binding:"omitempty,max=32"`

	// ActingUserID is honoured only when the API runs without authentication.
	ActingUserID string `json:"actingUserId" binding:"omitempty,max=255"`
}

// TransitionRequest accompanies a workflow transition.
type TransitionRequest struct {
	ActingUserID string `json:"actingUserId" binding:"omitempty,max=255"`
}

// ValidateTemplateRequest is a series configuration to check before saving it.
type ValidateTemplateRequest struct {
	Template        string     `json:"template" binding:"required"`
	ResetPolicy     string     `json:"resetPolicy"`
	GenerateOn      string     `json:"generateOn"`
	SequenceStart   int64      `json:"sequenceStart" binding:"min=0"`
	SequencePadding int        `json:"sequencePadding" binding:"min=0,max=20"`
	ProjectCode     string     `json:"projectCode" binding:"omitempty,max=64"`
	At              *time.Time `json:"at"`
}

// ToInput converts the request to the check input.
func (r *ValidateTemplateRequest) ToInput() numbering.TemplateInput {
	in := numbering.TemplateInput{
		Template:        r.Template,
		ResetPolicy:     r.ResetPolicy,
		GenerateOn:      r.GenerateOn,
		SequenceStart:   r.SequenceStart,
		SequencePadding: r.SequencePadding,
		ProjectCode:     r.ProjectCode,
	}
	if r.At != nil {
		in.At = *r.At
	}
	return in
}

// AuditListResponse is the audit trail of a submission, oldest first.
type AuditListResponse struct {
	SubmissionID string                  `json:"submissionId"`
	Items        []numbering.AuditRecord `json:"items"`
}

// SeriesAuditQuery pages through the audit trail of a series.
type SeriesAuditQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}
