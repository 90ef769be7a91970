package numbering

import (
	"testing"
	"time"

	"docnum/internal/core/apperror"
)

func TestNormalizeResetPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ResetPolicy
		wantErr bool
	}{
		{in: "", want: ResetNone},
		{in: "  ", want: ResetNone},
		{in: "none", want: ResetNone},
		{in: "YEARLY", want: ResetYearly},
		{in: " Monthly ", want: ResetMonthly},
		{in: "daily", want: ResetDaily},
		{in: "Weekly", wantErr: true},
		{in: "annually", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizeResetPolicy(tt.in)
		if tt.wantErr {
			if !apperror.HasCode(err, apperror.CodeInvalidResetPolicy) {
				t.Errorf("NormalizeResetPolicy(%q): expected %s, got %v", tt.in, apperror.CodeInvalidResetPolicy, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeResetPolicy(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeResetPolicy(%q): want %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestNormalizeGenerateOn(t *testing.T) {
	tests := []struct {
		in      string
		want    Trigger
		wantErr bool
	}{
		{in: "", want: TriggerSubmit},
		{in: "submit", want: TriggerSubmit},
		{in: "APPROVAL", want: TriggerApproval},
		{in: "Publish", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizeGenerateOn(tt.in)
		if tt.wantErr {
			if !apperror.HasCode(err, apperror.CodeInvalidTrigger) {
				t.Errorf("NormalizeGenerateOn(%q): expected %s, got %v", tt.in, apperror.CodeInvalidTrigger, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizeGenerateOn(%q): want %s, got %s (%v)", tt.in, tt.want, got, err)
		}
	}
}

func TestPeriodKey(t *testing.T) {
	at := time.Date(2025, 5, 17, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		policy ResetPolicy
		want   string
	}{
		{ResetNone, GlobalPeriodKey},
		{ResetYearly, "2025"},
		{ResetMonthly, "202505"},
		{ResetDaily, "20250517"},
	}
	for _, tt := range tests {
		if got := PeriodKey(tt.policy, at); got != tt.want {
			t.Errorf("PeriodKey(%s): want %s, got %s", tt.policy, tt.want, got)
		}
	}
}

func TestPeriodKey_Buckets(t *testing.T) {
	may1 := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	may31 := time.Date(2025, 5, 31, 23, 0, 0, 0, time.UTC)
	jun1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	if PeriodKey(ResetMonthly, may1) != PeriodKey(ResetMonthly, may31) {
		t.Error("same month must share a bucket")
	}
	if PeriodKey(ResetMonthly, may31) == PeriodKey(ResetMonthly, jun1) {
		t.Error("different months must not share a bucket")
	}
	if PeriodKey(ResetNone, may1) != PeriodKey(ResetNone, jun1.AddDate(3, 0, 0)) {
		t.Error("None must always use the global bucket")
	}

	// 2025-06-01 02:00 in UTC+3 is still May in UTC.
	local := time.Date(2025, 6, 1, 2, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	if got := PeriodKey(ResetMonthly, local); got != "202505" {
		t.Errorf("period key must be derived in UTC, got %s", got)
	}
}
