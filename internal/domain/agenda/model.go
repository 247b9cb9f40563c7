package agenda

import (
	"context"
	"time"
)

// PrimaryCalendar is the clinic-level calendar used when an event or a
// professional does not name one.
const PrimaryCalendar = "primary"

// EventTime mirrors the provider's {dateTime, timeZone} pair.
type EventTime struct {
	DateTime time.Time `json:"dateTime"`
	TimeZone string    `json:"timeZone,omitempty"`
}

// CalendarEvent is a provider-owned event. The service only ever holds the
// copy fetched for the window currently on screen.
type CalendarEvent struct {
	ID               string    `json:"id"`
	Title            string    `json:"summary"`
	Description      *string   `json:"description,omitempty"`
	Start            EventTime `json:"start"`
	End              EventTime `json:"end"`
	Location         string    `json:"location,omitempty"`
	Status           string    `json:"status,omitempty"`
	ProfessionalName string    `json:"profissional_nome,omitempty"`
	ProfessionalID   string    `json:"profissional_id,omitempty"`
	CalendarID       string    `json:"calendarId,omitempty"`
	CalendarName     string    `json:"calendarSummary,omitempty"`
	Color            string    `json:"color,omitempty"`
}

// SourceCalendar returns the calendar the event lives in, defaulting to the
// primary calendar.
func (e CalendarEvent) SourceCalendar() string {
	return calendarOrPrimary(e.CalendarID)
}

func calendarOrPrimary(id string) string {
	if id == "" {
		return PrimaryCalendar
	}
	return id
}

// EventInput is the payload for creating an event. The provider assigns the end.
type EventInput struct {
	Title       string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	CalendarID  string    `json:"calendar_id,omitempty"`
}

// EventPatch carries the fields to change on an existing event. Nil fields
// are left untouched by the provider.
type EventPatch struct {
	Title       *string    `json:"summary,omitempty"`
	Description *string    `json:"description,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Start == nil && p.End == nil
}

// CalendarClient is the external calendar collaborator. An empty calendar id
// means the clinic's primary calendar.
type CalendarClient interface {
	ListEvents(ctx context.Context, clinicID string, start, end time.Time) ([]CalendarEvent, error)
	CreateEvent(ctx context.Context, clinicID string, in EventInput) (*CalendarEvent, error)
	UpdateEvent(ctx context.Context, clinicID, eventID, calendarID string, patch EventPatch) (*CalendarEvent, error)
	DeleteEvent(ctx context.Context, clinicID, eventID, calendarID string) error
}

// CalendarInfo is one calendar of the clinic's connected account.
type CalendarInfo struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
}

// CalendarLister is implemented by providers that can enumerate the
// calendars of a clinic's account.
type CalendarLister interface {
	ListCalendars(ctx context.Context, clinicID string) ([]CalendarInfo, error)
}

// CalendarOwner links an external calendar to the professional who owns it.
type CalendarOwner struct {
	ProfessionalID string
	Name           string
	CalendarID     string
}

// OwnerDirectory lists the calendar owners of a clinic. It is used only to
// label events; a failing lookup never fails a fetch.
type OwnerDirectory interface {
	CalendarOwners(ctx context.Context, clinicID string) ([]CalendarOwner, error)
}
