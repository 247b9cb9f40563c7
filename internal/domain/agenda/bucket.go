package agenda

import "time"

// EventsForDay returns the events starting on the given day of the displayed
// month. Matching is on the full (day, month, year) triple in loc, so the 5th
// of a neighbouring month never lands in the 5th's cell.
//
// The scan is repeated for every grid cell instead of building an index; a
// fetch window holds a few hundred events at most.
func EventsForDay(events []CalendarEvent, year, monthIndex, day int, loc *time.Location) []CalendarEvent {
	if loc == nil {
		loc = time.Local
	}
	want := time.Date(year, time.Month(monthIndex+1), 1, 0, 0, 0, 0, loc)
	var out []CalendarEvent
	for _, e := range events {
		start := e.Start.DateTime.In(loc)
		if start.Day() == day && start.Month() == want.Month() && start.Year() == want.Year() {
			out = append(out, e)
		}
	}
	return out
}

// EventsOnDate returns the events starting on the calendar date of date in
// loc. The padding cells of the grid are keyed this way.
func EventsOnDate(events []CalendarEvent, date time.Time, loc *time.Location) []CalendarEvent {
	if loc == nil {
		loc = time.Local
	}
	d := date.In(loc)
	return EventsForDay(events, d.Year(), int(d.Month())-1, d.Day(), loc)
}
