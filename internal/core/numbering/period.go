package numbering

import "time"

// GlobalPeriodKey is the single bucket of a series that never resets.
const GlobalPeriodKey = "GLOBAL"

// PeriodKey returns the counter bucket for policy at the given moment (UTC).
// Two moments in the same calendar bucket always produce the same key.
func PeriodKey(policy ResetPolicy, at time.Time) string {
	at = at.UTC()
	switch policy {
	case ResetYearly:
		return at.Format("2006")
	case ResetMonthly:
		return at.Format("200601")
	case ResetDaily:
		return at.Format("20060102")
	default:
		return GlobalPeriodKey
	}
}
