package subscription

import (
	"time"

	"github.com/carepulse/payments/pkg/types"
)

// periodEnd returns the subscription end date for a billing cycle starting at
// start. The addition is calendar-aware with month-end clamping, so Jan 31
// monthly ends Feb 28 (29 in leap years) and a leap-day yearly purchase ends
// Feb 28 the next year, rather than spilling into the following month the way
// time.AddDate normalizes.
func periodEnd(start time.Time, cycle types.BillingCycle) time.Time {
	months := 1
	if cycle == types.BillingCycleYearly {
		months = 12
	}
	return addMonthsClamped(start, months)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	shifted := first.AddDate(0, months, 0)
	if last := daysIn(shifted.Year(), shifted.Month()); day > last {
		day = last
	}
	return time.Date(shifted.Year(), shifted.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	// day 0 of the next month is the last day of this month
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
