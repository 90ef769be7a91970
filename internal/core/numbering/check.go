package numbering

import (
	"time"
)

// TemplateInput is a series configuration to check before it is saved.
type TemplateInput struct {
	Template        string    `json:"template" yaml:"template"`
	ResetPolicy     string    `json:"resetPolicy" yaml:"reset_policy"`
	GenerateOn      string    `json:"generateOn" yaml:"generate_on"`
	SequenceStart   int64     `json:"sequenceStart" yaml:"sequence_start"`
	SequencePadding int       `json:"sequencePadding" yaml:"sequence_padding"`
	ProjectCode     string    `json:"projectCode" yaml:"project_code"`
	At              time.Time `json:"at" yaml:"at"`
}

// TemplateCheck is the normalized configuration and a sample rendering.
type TemplateCheck struct {
	Template        string      `json:"template"`
	ResetPolicy     ResetPolicy `json:"resetPolicy"`
	GenerateOn      Trigger     `json:"generateOn"`
	SequenceStart   int64       `json:"sequenceStart"`
	SequencePadding int         `json:"sequencePadding"`
	PeriodKey       string      `json:"periodKey"`
	Example         string      `json:"example"`
}

// CheckTemplate validates a series configuration the same way generation does and
// renders the first number of a bucket. A zero At means now.
func CheckTemplate(in TemplateInput) (*TemplateCheck, error) {
	if err := ValidateTemplate(in.Template); err != nil {
		return nil, err
	}
	policy, err := NormalizeResetPolicy(in.ResetPolicy)
	if err != nil {
		return nil, err
	}
	trigger, err := NormalizeGenerateOn(in.GenerateOn)
	if err != nil {
		return nil, err
	}

	s := Series{SequenceStart: in.SequenceStart, SequencePadding: in.SequencePadding}
	at := in.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	example := RenderTemplate(in.Template, in.ProjectCode, at, s.EffectiveStart(), s.EffectivePadding())
	if err := CheckLength(example); err != nil {
		return nil, err
	}

	return &TemplateCheck{
		Template:        in.Template,
		ResetPolicy:     policy,
		GenerateOn:      trigger,
		SequenceStart:   s.EffectiveStart(),
		SequencePadding: s.EffectivePadding(),
		PeriodKey:       PeriodKey(policy, at),
		Example:         example,
	}, nil
}
