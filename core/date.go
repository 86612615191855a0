package core

import "time"

// =============================================================================
// CIVIL DATE HELPERS - Every component keys on whole days, always UTC
// =============================================================================

// DateLayout is the storage and wire format for civil dates.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC. All per-day keys (attendance records,
// holiday ranges, leave request bounds) go through this before comparison
// or storage so that wall-clock components never leak into day identity.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same civil day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// DaysInclusive returns the inclusive calendar-day count of [start, end].
// Both bounds are truncated first; (Mar 1, Mar 3) -> 3.
func DaysInclusive(start, end time.Time) int {
	return int(Day(end).Sub(Day(start)).Hours()/24) + 1
}

// WeekOfMonth returns the 1-based week-of-month bucket for t:
// days 1-7 are week 1, 8-14 week 2, and so on up to week 5.
func WeekOfMonth(t time.Time) int {
	return (t.Day()-1)/7 + 1
}

// ParseDate parses a civil date in DateLayout, normalized to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Reason: "want YYYY-MM-DD: " + err.Error()}
	}
	return t, nil
}

// FormatDate renders t as a civil date in DateLayout.
func FormatDate(t time.Time) string {
	return Day(t).Format(DateLayout)
}

// RangesOverlap reports whether inclusive day ranges [aStart,aEnd] and
// [bStart,bEnd] intersect.
func RangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !Day(aStart).After(Day(bEnd)) && !Day(bStart).After(Day(aEnd))
}
