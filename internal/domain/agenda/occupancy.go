package agenda

import (
	"math"
	"time"
)

const (
	// DefaultSlotsPerDay models an 8-hour day of 30-minute slots. It is not
	// derived from the clinic's opening hours.
	DefaultSlotsPerDay = 16
	// OccupancyWindowDays is the look-ahead of the occupancy rate.
	OccupancyWindowDays = 7
)

// OccupancyStats summarises the fetched window around now.
type OccupancyStats struct {
	Today          int `json:"today"`
	TodayRemaining int `json:"today_remaining"`
	Tomorrow       int `json:"tomorrow"`
	NextSevenDays  int `json:"next_seven_days"`
	Capacity       int `json:"capacity"`
	Rate           int `json:"occupancy_rate"`
}

// AnalyzeOccupancy counts events for today, tomorrow and the seven days
// starting today, and derives the occupancy percentage clamped to [0, 100].
// A non-positive slotsPerDay falls back to DefaultSlotsPerDay.
func AnalyzeOccupancy(events []CalendarEvent, now time.Time, loc *time.Location, slotsPerDay int) OccupancyStats {
	if loc == nil {
		loc = time.Local
	}
	if slotsPerDay <= 0 {
		slotsPerDay = DefaultSlotsPerDay
	}
	today := startOfDay(now, loc)
	tomorrow := today.AddDate(0, 0, 1)
	dayAfter := today.AddDate(0, 0, 2)
	windowEnd := today.AddDate(0, 0, OccupancyWindowDays)

	stats := OccupancyStats{Capacity: slotsPerDay * OccupancyWindowDays}
	for _, e := range events {
		start := e.Start.DateTime
		if inHalfOpen(start, today, tomorrow) {
			stats.Today++
			if start.After(now) {
				stats.TodayRemaining++
			}
		}
		if inHalfOpen(start, tomorrow, dayAfter) {
			stats.Tomorrow++
		}
		if inHalfOpen(start, today, windowEnd) {
			stats.NextSevenDays++
		}
	}
	stats.Rate = occupancyRate(stats.NextSevenDays, stats.Capacity)
	return stats
}

func occupancyRate(occupied, capacity int) int {
	if capacity <= 0 || occupied <= 0 {
		return 0
	}
	rate := int(math.Round(float64(occupied) / float64(capacity) * 100))
	if rate > 100 {
		return 100
	}
	return rate
}

func inHalfOpen(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
