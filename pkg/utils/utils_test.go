package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFlatInterest(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		rate      string
		expected  string
	}{
		{"whole amounts", "1000", "5", "50"},
		{"rounds to cents", "1000", "3.333", "33.33"},
		{"rounds half up", "100", "1.005", "1.01"},
		{"zero rate", "1000", "0", "0"},
		{"reduced balance", "700", "5", "35"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal, _ := decimal.NewFromString(tt.principal)
			rate, _ := decimal.NewFromString(tt.rate)
			expected, _ := decimal.NewFromString(tt.expected)

			got := FlatInterest(principal, rate)
			assert.True(t, got.Equal(expected), "expected %s, got %s", expected, got)
		})
	}
}

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		months   int
		expected time.Time
	}{
		{"mid month", date(2024, time.January, 15), 1, date(2024, time.February, 15)},
		{"clamps to leap february", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"clamps to plain february", date(2023, time.January, 31), 1, date(2023, time.February, 28)},
		{"clamps thirty-day month", date(2024, time.March, 31), 1, date(2024, time.April, 30)},
		{"crosses year boundary", date(2024, time.November, 30), 3, date(2025, time.February, 28)},
		{"several months keep day", date(2024, time.January, 10), 6, date(2024, time.July, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AddMonthsClamped(tt.start, tt.months))
		})
	}
}

func TestDaysLate(t *testing.T) {
	due := date(2024, time.March, 10)

	assert.Equal(t, 0, DaysLate(due, date(2024, time.March, 10)))
	assert.Equal(t, 0, DaysLate(due, date(2024, time.March, 1)), "early payment is not late")
	assert.Equal(t, 5, DaysLate(due, date(2024, time.March, 15)))
	assert.Equal(t, 1, DaysLate(due, time.Date(2024, time.March, 11, 23, 0, 0, 0, time.UTC)), "time of day is ignored")
}

func TestDaysLateAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 2024-03-10 is a 23-hour day in New York
	due := time.Date(2024, time.March, 8, 0, 0, 0, 0, loc)
	paid := time.Date(2024, time.March, 11, 0, 0, 0, 0, loc)

	assert.Equal(t, 3, DaysLate(due, paid))
}

func TestWithinTolerance(t *testing.T) {
	a := decimal.NewFromFloat(100.00)
	b := decimal.NewFromFloat(100.009)

	assert.True(t, WithinTolerance(a, b, PlanTolerance))
	assert.False(t, WithinTolerance(a, b, PaidTolerance))
	assert.True(t, WithinTolerance(b, a, PlanTolerance), "symmetric")
}
