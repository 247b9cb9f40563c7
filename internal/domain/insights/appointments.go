package insights

import (
	"math"

	"github.com/clinicops/agenda/internal/domain/appointment"
)

// StatsWindowDays is the trailing window the appointment stats cover.
const StatsWindowDays = 30

type AppointmentStats struct {
	Total            int     `json:"total"`
	Cancelled        int     `json:"cancelled"`
	CancellationRate int     `json:"cancellation_rate"`
	AveragePerDay    float64 `json:"average_per_day"`
}

// AnalyzeAppointments summarises the records of the trailing window. No-shows
// count as cancellations.
func AnalyzeAppointments(records []*appointment.Record) AppointmentStats {
	st := AppointmentStats{Total: len(records)}
	for _, r := range records {
		if r.Status == appointment.StatusCancelled || r.Status == appointment.StatusNoShow {
			st.Cancelled++
		}
	}
	st.CancellationRate = percent(st.Cancelled, st.Total)
	st.AveragePerDay = math.Round(float64(st.Total)/StatsWindowDays*10) / 10
	return st
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
