package numbering

import (
	"context"
	"fmt"

	"docnum/internal/core/apperror"
	"docnum/internal/core/id"
	"docnum/internal/core/numbering"
)

// Lifecycle is the entry point for submission workflow transitions. It decides
// whether a transition should number the submission and delegates to the Engine.
type Lifecycle struct {
	engine      *Engine
	submissions numbering.SubmissionStore
	series      numbering.SeriesStore
}

func NewLifecycle(engine *Engine, submissions numbering.SubmissionStore, series numbering.SeriesStore) *Lifecycle {
	return &Lifecycle{engine: engine, submissions: submissions, series: series}
}

// OnSubmitted handles the Draft to Submitted transition.
func (l *Lifecycle) OnSubmitted(ctx context.Context, submissionID id.ID, userID string) (*numbering.Result, error) {
	return l.onTransition(ctx, submissionID, userID, numbering.TriggerSubmit)
}

// OnApprovalCompleted handles the final approval of a submission.
func (l *Lifecycle) OnApprovalCompleted(ctx context.Context, submissionID id.ID, userID string) (*numbering.Result, error) {
	return l.onTransition(ctx, submissionID, userID, numbering.TriggerApproval)
}

// onTransition skips submissions that already carry a real number and series
// configured for the other trigger. The draft check happens before the
// engine's transaction; two racing transitions of the same submission can
// both pass it.
func (l *Lifecycle) onTransition(ctx context.Context, submissionID id.ID, userID string, trigger numbering.Trigger) (*numbering.Result, error) {
	sub, err := l.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return lookupFailure(err)
	}
	if sub.DeletionMark {
		return numbering.Failed(numbering.NewFailure(numbering.FailureNotFound,
			apperror.NewNotFound("submission", submissionID.String()))), nil
	}
	if !sub.IsDraft() {
		return &numbering.Result{
			Success:        true,
			Skipped:        true,
			SkipReason:     "submission already has a document number",
			DocumentNumber: sub.DocumentNumber,
		}, nil
	}

	series, err := l.series.GetSeries(ctx, sub.SeriesID)
	if err != nil {
		return lookupFailure(err)
	}
	generateOn, err := numbering.NormalizeGenerateOn(series.GenerateOn)
	if err != nil {
		return numbering.Failed(numbering.NewFailure(numbering.FailureInvalidTrigger, err)), nil
	}
	if generateOn != trigger {
		return &numbering.Result{
			Success:    true,
			Skipped:    true,
			SkipReason: fmt.Sprintf("series %s numbers on %s", series.Code, generateOn),
		}, nil
	}

	return l.engine.GenerateForSubmission(ctx, GenerateRequest{
		SubmissionID: submissionID,
		Trigger:      string(trigger),
		ActingUserID: userID,
	})
}

func lookupFailure(err error) (*numbering.Result, error) {
	failure, unexpected := classify(asFailure(numbering.FailureNotFound, err))
	if unexpected {
		return numbering.Failed(failure), err
	}
	return numbering.Failed(failure), nil
}
