package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled = "AGENDADA"
	StatusAttended  = "COMPARECEU"
	StatusNoShow    = "FALTOU"
	StatusCancelled = "CANCELADO"

	OriginAI     = "IA"
	OriginManual = "MANUAL"
)

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusAttended: true, StatusNoShow: true, StatusCancelled: true,
}

var validOrigins = map[string]bool{OriginAI: true, OriginManual: true}

// Record is one entry of the clinic's appointment ledger. Records are never
// deleted; cancellations are a status.
type Record struct {
	ID             uuid.UUID  `json:"id"`
	ClinicID       string     `json:"clinic_id"`
	PatientID      string     `json:"patient_id"`
	ProfessionalID *uuid.UUID `json:"professional_id,omitempty"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	Status         string     `json:"status"`
	Origin         string     `json:"origin"`
	Notes          *string    `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Settled reports whether the appointment already has an outcome.
func (r *Record) Settled() bool {
	return r.Status != StatusScheduled
}

// Period names the listing windows of the appointments screen.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// Bounds returns the inclusive [from, to] instants of the period around now
// in loc. Weeks run Sunday to Saturday. year is only read for PeriodYear.
// PeriodAll yields nil bounds.
func (p Period) Bounds(now time.Time, year int, loc *time.Location) (from, to *time.Time, err error) {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	var start, end time.Time
	switch p {
	case PeriodAll:
		return nil, nil, nil
	case PeriodToday, "":
		start, end = today, today.AddDate(0, 0, 1)
	case PeriodWeek:
		start = today.AddDate(0, 0, -int(today.Weekday()))
		end = start.AddDate(0, 0, 7)
	case PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	case PeriodYear:
		if year <= 0 {
			year = now.Year()
		}
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(1, 0, 0)
	default:
		return nil, nil, fmt.Errorf("invalid period: %s", p)
	}
	end = end.Add(-time.Millisecond)
	return &start, &end, nil
}
