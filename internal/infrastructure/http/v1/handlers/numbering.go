package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"docnum/internal/core/id"
	"docnum/internal/core/numbering"
	domain "docnum/internal/domain/numbering"
	"docnum/internal/infrastructure/export"
	"docnum/internal/infrastructure/http/v1/dto"
	"docnum/pkg/logger"
)

// DefaultSeriesAuditLimit caps GET /series/:id/audit without ?limit.
const DefaultSeriesAuditLimit = 100

// NumberingHandler exposes generation, workflow hooks, preview, audit and
// template checks.
type NumberingHandler struct {
	BaseHandler
	engine    *domain.Engine
	lifecycle *domain.Lifecycle
	audit     numbering.AuditReader
}

func NewNumberingHandler(engine *domain.Engine, lifecycle *domain.Lifecycle, audit numbering.AuditReader) *NumberingHandler {
	return &NumberingHandler{engine: engine, lifecycle: lifecycle, audit: audit}
}

// Generate assigns a number to a submission.
// POST /api/v1/submissions/:id/document-number
func (h *NumberingHandler) Generate(c *gin.Context) {
	subID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.GenerateNumberRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	result, err := h.engine.GenerateForSubmission(c.Request.Context(), domain.GenerateRequest{
		SubmissionID: subID,
		Trigger:      req.Trigger,
		ActingUserID: h.UserID(c, req.ActingUserID),
	})
	h.respond(c, result, err)
}

// Submitted runs the Draft to Submitted hook.
// POST /api/v1/submissions/:id/transitions/submitted
func (h *NumberingHandler) Submitted(c *gin.Context) {
	h.transition(c, h.lifecycle.OnSubmitted)
}

// Approved runs the approval-completed hook.
// POST /api/v1/submissions/:id/transitions/approved
func (h *NumberingHandler) Approved(c *gin.Context) {
	h.transition(c, h.lifecycle.OnApprovalCompleted)
}

type transitionFunc func(ctx context.Context, submissionID id.ID, userID string) (*numbering.Result, error)

func (h *NumberingHandler) transition(c *gin.Context, run transitionFunc) {
	subID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	result, err := run(c.Request.Context(), subID, h.UserID(c, req.ActingUserID))
	h.respond(c, result, err)
}

// respond writes a successful or skipped result, and routes failures through
// the error middleware.
func (h *NumberingHandler) respond(c *gin.Context, result *numbering.Result, err error) {
	switch {
	case err != nil:
		h.Error(c, err)
	case result.Failure != nil:
		h.Error(c, result.Failure.AppError().
			WithDetail("failure", result.Failure.Kind).
			WithDetail("retryable", result.Failure.Kind.Retryable()))
	default:
		h.OK(c, result)
	}
}

// SubmissionAudit lists the audit records of a submission.
// GET /api/v1/submissions/:id/document-number/audit
func (h *NumberingHandler) SubmissionAudit(c *gin.Context) {
	subID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	records, err := h.audit.ListBySubmission(c.Request.Context(), subID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if records == nil {
		records = []numbering.AuditRecord{}
	}
	h.OK(c, dto.AuditListResponse{SubmissionID: subID.String(), Items: records})
}

// SeriesAudit lists the newest audit records of a series.
// GET /api/v1/series/:id/audit
func (h *NumberingHandler) SeriesAudit(c *gin.Context) {
	seriesID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var q dto.SeriesAuditQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.Limit == 0 {
		q.Limit = DefaultSeriesAuditLimit
	}
	records, err := h.audit.ListBySeries(c.Request.Context(), seriesID, q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	if records == nil {
		records = []numbering.AuditRecord{}
	}
	h.OK(c, dto.ListResponse{Items: records, Count: len(records)})
}

// SeriesAuditExport downloads the newest audit records of a series as xlsx.
// GET /api/v1/series/:id/audit/export
func (h *NumberingHandler) SeriesAuditExport(c *gin.Context) {
	seriesID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var q dto.SeriesAuditQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.Limit == 0 {
		q.Limit = DefaultSeriesAuditLimit
	}
	records, err := h.audit.ListBySeries(c.Request.Context(), seriesID, q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	f, err := export.AuditWorkbook(records)
	if err != nil {
		h.Error(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", export.ContentTypeXLSX)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"audit_%s.xlsx\"", seriesID))
	c.Status(http.StatusOK)
	if _, err := f.WriteTo(c.Writer); err != nil {
		logger.Error(c.Request.Context(), "write audit export", "series_id", seriesID, "error", err)
	}
}

// Preview renders the next number of a series without reserving it.
// GET /api/v1/series/:id/preview
func (h *NumberingHandler) Preview(c *gin.Context) {
	seriesID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	preview, err := h.engine.Preview(c.Request.Context(), seriesID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, preview)
}

// ValidateTemplate checks a series configuration and renders an example.
// POST /api/v1/numbering/templates/validate
func (h *NumberingHandler) ValidateTemplate(c *gin.Context) {
	var req dto.ValidateTemplateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	check, err := numbering.CheckTemplate(req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}
