package agenda

import "time"

// RangePaddingDays is how far the fetch window reaches into the neighbouring
// months, so the grid's leading and trailing cells need no second fetch.
const RangePaddingDays = 7

// Range is a closed fetch window.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// ResolveRange returns the query window for the month with zero-based index
// monthIndex: local midnight of the 1st minus seven days through 23:59:59 of
// the last day plus seven days. Out-of-range indexes normalize the way
// time.Date does.
func ResolveRange(year, monthIndex int, loc *time.Location) Range {
	if loc == nil {
		loc = time.Local
	}
	first := time.Date(year, time.Month(monthIndex+1), 1, 0, 0, 0, 0, loc)
	last := time.Date(year, time.Month(monthIndex+2), 0, 23, 59, 59, 0, loc)
	return Range{
		Start: first.AddDate(0, 0, -RangePaddingDays),
		End:   last.AddDate(0, 0, RangePaddingDays),
	}
}

// DaysInMonth returns the number of days of the zero-based month.
func DaysInMonth(year, monthIndex int) int {
	return time.Date(year, time.Month(monthIndex+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

// startOfDay truncates t to local midnight in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
