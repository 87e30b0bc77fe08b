// Package period defines the period-key scheme shared by generation, storage
// and dispatch. A period key identifies one generation/dispatch cycle: a UTC
// calendar day ("2025-09-01"), an ISO week ("2025-W36") or a month ("2025-09").
package period

import (
	"fmt"
	"time"
)

// ReferenceTimezone is the fixed timezone used for subscriber weekday cohorts.
const ReferenceTimezone = "America/New_York"

// DayKey returns the day period key for t in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// WeekKey returns the ISO-week period key for t, e.g. "2025-W36".
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%d", year, week)
}

// MonthKey returns the month period key for t in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Weekday returns the weekday 0 (Sunday) .. 6 (Saturday) of t in the
// reference timezone. Subscribers choose their send day against this clock.
func Weekday(t time.Time) int {
	loc, err := time.LoadLocation(ReferenceTimezone)
	if err != nil {
		return int(t.UTC().Weekday())
	}
	return int(t.In(loc).Weekday())
}

// RollingWindow returns the half-open window [start, end) ending at now and
// spanning the given number of days, shortened by a small grace so that a
// run started right at the boundary does not pull in last cycle's tail.
func RollingWindow(now time.Time, days int, grace time.Duration) (start, end time.Time) {
	end = now
	start = end.Add(-time.Duration(days)*24*time.Hour + grace)
	return start, end
}

// Prev24h returns the previous 24 hour window [start, end) ending at now.
func Prev24h(now time.Time) (start, end time.Time) {
	return now.Add(-24 * time.Hour), now
}
