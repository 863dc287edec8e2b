package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money comparisons in the ledger tolerate small float residue carried over
// from the legacy store. PlanTolerance applies to plan-level sums, PaidTolerance
// to per-installment paid amounts.
var (
	PlanTolerance = decimal.NewFromFloat(0.01)
	PaidTolerance = decimal.NewFromFloat(0.005)
)

// FlatInterest computes the per-period interest on a principal at a
// percentage rate: round(principal * rate / 100, 2).
func FlatInterest(principal, ratePercent decimal.Decimal) decimal.Decimal {
	return principal.Mul(ratePercent).Div(decimal.NewFromInt(100)).Round(2)
}

// AddMonthsClamped adds months to a date clamping the day-of-month to the
// last valid day of the target month (Jan 31 + 1 -> Feb 28/29). time.AddDate
// normalizes overflow instead of clamping, so this is done by hand.
func AddMonthsClamped(d time.Time, months int) time.Time {
	y := d.Year()
	m := int(d.Month()) - 1 + months
	y += m / 12
	m = m % 12
	if m < 0 {
		m += 12
		y--
	}
	month := time.Month(m + 1)
	last := lastDayOfMonth(y, month)
	day := d.Day()
	if day > last {
		day = last
	}
	return time.Date(y, month, day, 0, 0, 0, 0, d.Location())
}

func lastDayOfMonth(year int, month time.Month) int {
	// day 0 of the next month
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysLate returns the whole days a payment lands after its due date, never
// negative. Dates are compared as UTC calendar days so a DST transition in
// the local zone cannot shorten the span.
func DaysLate(dueDate, paymentDate time.Time) int {
	due := time.Date(dueDate.Year(), dueDate.Month(), dueDate.Day(), 0, 0, 0, 0, time.UTC)
	paid := time.Date(paymentDate.Year(), paymentDate.Month(), paymentDate.Day(), 0, 0, 0, 0, time.UTC)
	days := int(paid.Sub(due).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Midnight truncates a timestamp to its date.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WithinTolerance reports whether two amounts differ by at most tol.
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}
