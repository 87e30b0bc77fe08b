package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayKey(t *testing.T) {
	ts := time.Date(2025, 9, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-09-01", DayKey(ts))

	// Non-UTC input is normalized to UTC first.
	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "2025-09-02", DayKey(time.Date(2025, 9, 1, 20, 0, 0, 0, est)))
}

func TestWeekKey(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"mid year", time.Date(2025, 9, 3, 12, 0, 0, 0, time.UTC), "2025-W36"},
		{"jan 1 belongs to prior iso year", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "2026-W53"},
		{"single digit week", time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC), "2025-W2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekKey(tt.t))
		})
	}
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2025-09", MonthKey(time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)))
}

func TestWeekday(t *testing.T) {
	// 2025-09-03 02:00 UTC is still Tuesday evening in New York.
	ts := time.Date(2025, 9, 3, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, Weekday(ts))

	// Noon UTC the same day is Wednesday on both clocks.
	assert.Equal(t, 3, Weekday(time.Date(2025, 9, 3, 12, 0, 0, 0, time.UTC)))
}

func TestRollingWindow(t *testing.T) {
	now := time.Date(2025, 9, 8, 0, 5, 0, 0, time.UTC)
	start, end := RollingWindow(now, 7, 15*time.Minute)

	assert.Equal(t, now, end)
	assert.Equal(t, now.Add(-7*24*time.Hour).Add(15*time.Minute), start)
	assert.True(t, start.Before(end))
}

func TestPrev24h(t *testing.T) {
	now := time.Date(2025, 9, 8, 14, 0, 0, 0, time.UTC)
	start, end := Prev24h(now)
	assert.Equal(t, now, end)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}
