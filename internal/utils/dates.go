package utils // utils provides small helpers shared across the service

import "time"

// Calendar arithmetic for loan periods and fines.  "Day" means a
// midnight-to-midnight calendar day in UTC, never a 24-hour span, so fine
// amounts do not depend on the time of day a book is returned.

// AddDays returns t shifted forward by n calendar days.  The time of day
// is preserved; daylight-saving shifts do not apply because all
// timestamps are kept in UTC.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// TruncateToDay returns the midnight (UTC) preceding t.
func TruncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from earlier to
// later, after truncating both to day boundaries.  Returning from a loan
// at 23:59 the day after it was due still counts as one day overdue, and
// a return later the same day counts as zero.  The result is negative
// when later precedes earlier.
func DaysBetween(later, earlier time.Time) int {
	l := TruncateToDay(later)
	e := TruncateToDay(earlier)
	return int(l.Sub(e).Hours() / 24)
}
