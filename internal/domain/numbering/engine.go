// Package numbering assigns document numbers to submissions.
//
// One call of Engine.GenerateForSubmission is one database transaction: the
// counter increment, the stamp on the submission, the high-water mark, the audit
// record and the outbox event commit together or not at all. The counter row
// lock taken inside that transaction is the only serialization point; requests
// for different series or different periods never wait for each other.
package numbering

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docnum/internal/core/apperror"
	"docnum/internal/core/id"
	"docnum/internal/core/numbering"
	"docnum/internal/core/tx"
	"docnum/pkg/logger"
)

var tracer = otel.Tracer("docnum/numbering")

// Deps are the collaborators of the Engine. Events is optional.
type Deps struct {
	TxManager   tx.Manager
	Submissions numbering.SubmissionStore
	Series      numbering.SeriesStore
	Projects    numbering.ProjectStore
	Counters    numbering.CounterStore
	Audit       numbering.AuditWriter
	Events      numbering.EventPublisher

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Engine generates document numbers.
type Engine struct {
	deps  Deps
	clock func() time.Time
}

// NewEngine creates an Engine. It panics when a required dependency is missing,
// since that is a wiring bug.
func NewEngine(deps Deps) *Engine {
	if deps.TxManager == nil || deps.Submissions == nil || deps.Series == nil ||
		deps.Projects == nil || deps.Counters == nil || deps.Audit == nil {
		panic("numbering: engine dependencies are incomplete")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{deps: deps, clock: clock}
}

// GenerateRequest asks for a number for one submission.
type GenerateRequest struct {
	SubmissionID id.ID

	// Trigger is the transition that caused the request; empty means Submit.
	Trigger string

	// ActingUserID is recorded in the audit trail. When empty the submitter,
	// then "system", is recorded instead.
	ActingUserID string
}

// GenerateForSubmission assigns the next number of the submission's series.
//
// Expected failures (missing rows, unusable configuration, an over-long number,
// lock timeouts, cancellation) come back as Result.Failure with a nil error.
// Any other error is returned both as Result.Failure (Unexpected) and as err.
// Nothing is persisted unless Result.Success is true.
func (e *Engine) GenerateForSubmission(ctx context.Context, req GenerateRequest) (*numbering.Result, error) {
	ctx, span := tracer.Start(ctx, "numbering.generate",
		trace.WithAttributes(
			attribute.String("submission.id", req.SubmissionID.String()),
			attribute.String("numbering.trigger", req.Trigger),
		))
	defer span.End()

	trigger, err := numbering.NormalizeGenerateOn(req.Trigger)
	if err != nil {
		return numbering.Failed(numbering.NewFailure(numbering.FailureInvalidTrigger, err)), nil
	}

	var result *numbering.Result
	err = e.deps.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := e.generate(ctx, req, trigger)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err == nil {
		span.SetAttributes(
			attribute.String("numbering.number", result.DocumentNumber),
			attribute.String("numbering.period_key", result.PeriodKey),
		)
		logger.Info(ctx, "document number assigned",
			"submission_id", req.SubmissionID,
			"document_number", result.DocumentNumber,
			"period_key", result.PeriodKey,
			"sequence", result.SequenceNumber,
			"new_bucket", result.IsNewBucket,
		)
		return result, nil
	}

	failure, unexpected := classify(err)
	span.SetAttributes(attribute.String("numbering.failure", string(failure.Kind)))
	if unexpected {
		span.RecordError(err)
		span.SetStatus(codes.Error, "numbering failed")
		logger.Error(ctx, "document number generation failed",
			"submission_id", req.SubmissionID,
			"error", err,
		)
		return numbering.Failed(failure), err
	}

	logger.Warn(ctx, "document number not assigned",
		"submission_id", req.SubmissionID,
		"failure", failure.Kind,
		"reason", failure.Message,
	)
	return numbering.Failed(failure), nil
}

// generate runs inside the transaction. Every returned error rolls it back.
func (e *Engine) generate(ctx context.Context, req GenerateRequest, trigger numbering.Trigger) (*numbering.Result, error) {
	sub, err := e.deps.Submissions.GetSubmission(ctx, req.SubmissionID)
	if err != nil {
		return nil, asFailure(numbering.FailureNotFound, err)
	}
	if sub.DeletionMark {
		return nil, numbering.NewFailure(numbering.FailureNotFound,
			apperror.NewNotFound("submission", req.SubmissionID.String()))
	}

	series, err := e.deps.Series.GetSeriesForUpdate(ctx, sub.SeriesID)
	if err != nil {
		return nil, asFailure(numbering.FailureNotFound, err)
	}
	if err := series.CanGenerate(); err != nil {
		if apperror.IsNotFound(err) {
			return nil, numbering.NewFailure(numbering.FailureNotFound, err)
		}
		return nil, numbering.NewFailure(numbering.FailureInactive, err)
	}

	if err := numbering.ValidateTemplate(series.Template); err != nil {
		return nil, numbering.NewFailure(numbering.FailureInvalidTemplate, err)
	}
	policy, err := numbering.NormalizeResetPolicy(series.ResetPolicy)
	if err != nil {
		return nil, numbering.NewFailure(numbering.FailureInvalidResetPolicy, err)
	}

	now := e.clock().UTC()
	periodKey := numbering.PeriodKey(policy, now)

	seq, isNew, err := e.deps.Counters.AcquireAndIncrement(ctx, series.ID, periodKey, series.EffectiveStart())
	if err != nil {
		return nil, err
	}

	projectCode, err := e.projectCode(ctx, sub, series)
	if err != nil {
		return nil, err
	}

	number := numbering.RenderTemplate(series.Template, projectCode, now, seq, series.EffectivePadding())
	if err := numbering.CheckLength(number); err != nil {
		return nil, numbering.NewFailure(numbering.FailureNumberTooLong, err)
	}

	if err := e.deps.Series.RaiseNextNumber(ctx, series.ID, seq+1); err != nil {
		return nil, err
	}
	if err := e.deps.Submissions.StampDocumentNumber(ctx, sub.ID, number); err != nil {
		return nil, err
	}

	actor := numbering.ResolveActor(req.ActingUserID, sub)
	err = e.deps.Audit.Append(ctx, &numbering.AuditRecord{
		SubmissionID:   sub.ID,
		SeriesID:       series.ID,
		DocumentNumber: number,
		Template:       series.Template,
		PeriodKey:      periodKey,
		SequenceNumber: seq,
		Trigger:        trigger,
		GeneratedBy:    actor,
		GeneratedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	if e.deps.Events != nil {
		err := e.deps.Events.PublishAssigned(ctx, numbering.AssignedEvent{
			SubmissionID:   sub.ID,
			SeriesID:       series.ID,
			DocumentNumber: number,
			PeriodKey:      periodKey,
			SequenceNumber: seq,
			Trigger:        trigger,
			GeneratedBy:    actor,
		})
		if err != nil {
			return nil, err
		}
	}

	return &numbering.Result{
		Success:        true,
		DocumentNumber: number,
		SequenceNumber: seq,
		PeriodKey:      periodKey,
		IsNewBucket:    isNew,
		Trigger:        trigger,
		GeneratedBy:    actor,
		GeneratedAt:    now,
	}, nil
}

// projectCode picks the {PROJECT} source: the document type's project, then
// the series' project. A missing project renders as NA rather than failing.
func (e *Engine) projectCode(ctx context.Context, sub *numbering.Submission, series *numbering.Series) (string, error) {
	if sub.DocumentTypeID.Valid {
		p, err := e.deps.Projects.GetProjectByDocumentType(ctx, sub.DocumentTypeID.UUID)
		switch {
		case err == nil:
			return p.TokenSource(), nil
		case !apperror.IsNotFound(err):
			return "", err
		}
	}
	if series.ProjectID.Valid {
		p, err := e.deps.Projects.GetProject(ctx, series.ProjectID.UUID)
		switch {
		case err == nil:
			return p.TokenSource(), nil
		case !apperror.IsNotFound(err):
			return "", err
		}
	}
	return "", nil
}

// asFailure turns a NOT_FOUND into an expected failure of kind and passes
// anything else through for classification.
func asFailure(kind numbering.FailureKind, err error) error {
	if apperror.IsNotFound(err) {
		return numbering.NewFailure(kind, err)
	}
	return err
}

// classify maps an error that aborted the transaction onto a Failure and
// reports whether it was unexpected.
func classify(err error) (*numbering.Failure, bool) {
	var failure *numbering.Failure
	switch {
	case errors.As(err, &failure):
		return failure, false
	case apperror.IsLockTimeout(err):
		return numbering.NewFailure(numbering.FailureLockTimeout, apperror.NewLockTimeout(err)), false
	case errors.Is(err, context.Canceled):
		return numbering.NewFailure(numbering.FailureCanceled, apperror.NewCanceled(err)), false
	default:
		return &numbering.Failure{
			Kind:    numbering.FailureUnexpected,
			Message: "document number could not be generated",
			Err:     err,
		}, true
	}
}
