// Package numbering holds the pure rules of document numbering: template
// validation and rendering, reset policies, period keys, the domain model and the
// store contracts the engine is built on. Nothing in this package performs I/O.
package numbering

import (
	"fmt"
	"strings"

	"docnum/internal/core/apperror"
)

// ResetPolicy decides when a series starts counting again.
type ResetPolicy string

const (
	ResetNone    ResetPolicy = "None"
	ResetYearly  ResetPolicy = "Yearly"
	ResetMonthly ResetPolicy = "Monthly"
	ResetDaily   ResetPolicy = "Daily"
)

var resetPolicies = []ResetPolicy{ResetNone, ResetYearly, ResetMonthly, ResetDaily}

// Trigger is the lifecycle transition that assigns the number.
type Trigger string

const (
	TriggerSubmit   Trigger = "Submit"
	TriggerApproval Trigger = "Approval"
)

var triggers = []Trigger{TriggerSubmit, TriggerApproval}

// NormalizeResetPolicy maps value case-insensitively onto a known policy.
// An empty value means None; anything unrecognized is rejected.
func NormalizeResetPolicy(value string) (ResetPolicy, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return ResetNone, nil
	}
	for _, p := range resetPolicies {
		if strings.EqualFold(v, string(p)) {
			return p, nil
		}
	}
	return "", apperror.NewConfiguration(apperror.CodeInvalidResetPolicy,
		fmt.Sprintf("unsupported reset policy %q; expected one of None, Yearly, Monthly, Daily", value)).
		WithDetail("resetPolicy", value)
}

// NormalizeGenerateOn maps value case-insensitively onto a known trigger.
// An empty value means Submit; anything unrecognized is rejected.
func NormalizeGenerateOn(value string) (Trigger, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return TriggerSubmit, nil
	}
	for _, t := range triggers {
		if strings.EqualFold(v, string(t)) {
			return t, nil
		}
	}
	return "", apperror.NewInvalidTrigger(value)
}
