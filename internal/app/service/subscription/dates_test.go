package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carepulse/payments/pkg/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
}

func TestPeriodEnd_Monthly(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		want  time.Time
	}{
		{"mid month", date(2026, time.March, 15), date(2026, time.April, 15)},
		{"jan 31 clamps to feb 28", date(2026, time.January, 31), date(2026, time.February, 28)},
		{"jan 31 leap year clamps to feb 29", date(2024, time.January, 31), date(2024, time.February, 29)},
		{"march 31 clamps to april 30", date(2026, time.March, 31), date(2026, time.April, 30)},
		{"dec rolls into next year", date(2026, time.December, 10), date(2027, time.January, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, periodEnd(tt.start, types.BillingCycleMonthly))
		})
	}
}

func TestPeriodEnd_Yearly(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		want  time.Time
	}{
		{"plain date", date(2026, time.June, 1), date(2027, time.June, 1)},
		{"leap day clamps to feb 28", date(2024, time.February, 29), date(2025, time.February, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, periodEnd(tt.start, types.BillingCycleYearly))
		})
	}
}

func TestPeriodEnd_PreservesClock(t *testing.T) {
	start := time.Date(2026, time.May, 14, 23, 59, 58, 123, time.UTC)
	end := periodEnd(start, types.BillingCycleMonthly)
	require.Equal(t, start.Hour(), end.Hour())
	require.Equal(t, start.Minute(), end.Minute())
	require.Equal(t, start.Second(), end.Second())
}
