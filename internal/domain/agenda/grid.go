package agenda

import "time"

// DisplayEvent is an event with its display color resolved.
type DisplayEvent struct {
	CalendarEvent
	Style ColorStyle `json:"style"`
}

// DayCell is one square of the month grid.
type DayCell struct {
	Date    string         `json:"date"`
	Day     int            `json:"day"`
	InMonth bool           `json:"in_month"`
	Events  []DisplayEvent `json:"events"`
}

// BuildGrid lays the month out in Sunday-first weeks. Leading and trailing
// cells belong to the neighbouring months and are bucketed by full date, so
// they only ever show their own day's events.
func BuildGrid(events []CalendarEvent, year, monthIndex int, loc *time.Location) []DayCell {
	if loc == nil {
		loc = time.Local
	}
	first := time.Date(year, time.Month(monthIndex+1), 1, 0, 0, 0, 0, loc)
	year, monthIndex = first.Year(), int(first.Month())-1
	days := DaysInMonth(year, monthIndex)

	lead := int(first.Weekday())
	total := lead + days
	if rem := total % 7; rem != 0 {
		total += 7 - rem
	}

	cells := make([]DayCell, 0, total)
	for i := 0; i < total; i++ {
		date := first.AddDate(0, 0, i-lead)
		inMonth := date.Month() == first.Month() && date.Year() == first.Year()
		var dayEvents []CalendarEvent
		if inMonth {
			dayEvents = EventsForDay(events, year, monthIndex, date.Day(), loc)
		} else {
			dayEvents = EventsOnDate(events, date, loc)
		}
		cells = append(cells, DayCell{
			Date:    date.Format(dateLayout),
			Day:     date.Day(),
			InMonth: inMonth,
			Events:  decorate(dayEvents),
		})
	}
	return cells
}

func decorate(events []CalendarEvent) []DisplayEvent {
	out := make([]DisplayEvent, 0, len(events))
	for _, e := range events {
		out = append(out, DisplayEvent{CalendarEvent: e, Style: ColorFor(ColorKey(e))})
	}
	return out
}
