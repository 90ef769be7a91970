package numbering

import (
	"context"
	"time"

	"docnum/internal/core/id"
	"docnum/internal/core/numbering"
	"docnum/internal/core/tx"
)

// Preview is the number the next generation of a series would produce if
// nothing else generated first. It reserves nothing.
type Preview struct {
	SeriesID       id.ID                 `json:"seriesId"`
	SeriesCode     string                `json:"seriesCode"`
	PeriodKey      string                `json:"periodKey"`
	ResetPolicy    numbering.ResetPolicy `json:"resetPolicy"`
	GenerateOn     numbering.Trigger     `json:"generateOn"`
	CurrentNumber  int64                 `json:"currentNumber"`
	BucketExists   bool                  `json:"bucketExists"`
	NextSequence   int64                 `json:"nextSequence"`
	DocumentNumber string                `json:"documentNumber"`
	At             time.Time             `json:"at"`
}

// Preview reads the series and its current bucket without locking and renders
// the next number. Project resolution uses the series' own project.
func (e *Engine) Preview(ctx context.Context, seriesID id.ID) (*Preview, error) {
	ctx, span := tracer.Start(ctx, "numbering.preview")
	defer span.End()

	var out *Preview
	run := func(ctx context.Context) error {
		series, err := e.deps.Series.GetSeries(ctx, seriesID)
		if err != nil {
			return err
		}
		if err := series.CanGenerate(); err != nil {
			return err
		}
		if err := numbering.ValidateTemplate(series.Template); err != nil {
			return err
		}
		policy, err := numbering.NormalizeResetPolicy(series.ResetPolicy)
		if err != nil {
			return err
		}
		generateOn, err := numbering.NormalizeGenerateOn(series.GenerateOn)
		if err != nil {
			return err
		}

		now := e.clock().UTC()
		key := numbering.PeriodKey(policy, now)
		current, exists, err := e.deps.Counters.Current(ctx, series.ID, key)
		if err != nil {
			return err
		}
		next := series.EffectiveStart()
		if exists {
			next = current + 1
		}

		projectCode, err := e.projectCode(ctx, &numbering.Submission{}, series)
		if err != nil {
			return err
		}

		out = &Preview{
			SeriesID:       series.ID,
			SeriesCode:     series.Code,
			PeriodKey:      key,
			ResetPolicy:    policy,
			GenerateOn:     generateOn,
			CurrentNumber:  current,
			BucketExists:   exists,
			NextSequence:   next,
			DocumentNumber: numbering.RenderTemplate(series.Template, projectCode, now, next, series.EffectivePadding()),
			At:             now,
		}
		return nil
	}

	if ro, ok := e.deps.TxManager.(tx.ReadOnlyManager); ok {
		if err := ro.ReadOnly(ctx, run); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := run(ctx); err != nil {
		return nil, err
	}
	return out, nil
}
