package professional

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/agenda/internal/domain/agenda"
)

// Professional is a clinic staff member whose appointments live in an
// external calendar.
type Professional struct {
	ID                 uuid.UUID `json:"id"`
	ClinicID           string    `json:"clinic_id"`
	Name               string    `json:"name"`
	Specialty          *string   `json:"specialty,omitempty"`
	ExternalCalendarID *string   `json:"external_calendar_id,omitempty"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CalendarID returns the external calendar, or the clinic's primary
// calendar when none is linked.
func (p *Professional) CalendarID() string {
	if p.ExternalCalendarID == nil || *p.ExternalCalendarID == "" {
		return agenda.PrimaryCalendar
	}
	return *p.ExternalCalendarID
}
