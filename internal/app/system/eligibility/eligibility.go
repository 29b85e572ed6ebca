// internal/app/system/eligibility/eligibility.go
package eligibility

import "time"

// DefaultIntervalDays is the minimum wait between donations.
const DefaultIntervalDays = 90

const day = 24 * time.Hour

// Result describes whether a donor may donate at a given instant.
type Result struct {
	CanDonate        bool       `json:"canDonate"`
	DaysElapsed      int        `json:"daysElapsed"`
	DaysRemaining    int        `json:"daysRemaining"`
	NextEligibleDate *time.Time `json:"nextEligibleDate,omitempty"`
}

// Check evaluates the donation interval. Elapsed time is floored to whole
// days; a donor with no recorded donation is always eligible. A
// non-positive interval falls back to DefaultIntervalDays.
func Check(last *time.Time, now time.Time, intervalDays int) Result {
	if intervalDays <= 0 {
		intervalDays = DefaultIntervalDays
	}
	if last == nil || last.IsZero() {
		return Result{CanDonate: true}
	}
	elapsed := int(now.Sub(*last) / day)
	if elapsed < 0 {
		elapsed = 0
	}
	next := last.Add(time.Duration(intervalDays) * day)
	if elapsed >= intervalDays {
		return Result{CanDonate: true, DaysElapsed: elapsed}
	}
	return Result{
		CanDonate:        false,
		DaysElapsed:      elapsed,
		DaysRemaining:    intervalDays - elapsed,
		NextEligibleDate: &next,
	}
}
