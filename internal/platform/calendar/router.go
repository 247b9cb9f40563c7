package calendar

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicops/agenda/internal/domain/agenda"
)

// Provider names stored on the clinic row.
const (
	ProviderBridge = "bridge"
	ProviderICS    = "ics"
)

// ProviderLookup returns the provider name configured for a clinic.
type ProviderLookup interface {
	CalendarProvider(ctx context.Context, clinicID string) (string, error)
}

// Router dispatches each call to the clinic's configured provider. Unknown
// names and failed lookups fall back to the bridge.
type Router struct {
	lookup    ProviderLookup
	providers map[string]agenda.CalendarClient
	fallback  agenda.CalendarClient
	logger    zerolog.Logger
}

func NewRouter(lookup ProviderLookup, fallback agenda.CalendarClient, logger zerolog.Logger) *Router {
	return &Router{
		lookup:    lookup,
		providers: map[string]agenda.CalendarClient{ProviderBridge: fallback},
		fallback:  fallback,
		logger:    logger.With().Str("component", "calendar-router").Logger(),
	}
}

// Register adds a named provider.
func (r *Router) Register(name string, c agenda.CalendarClient) {
	r.providers[name] = c
}

func (r *Router) pick(ctx context.Context, clinicID string) agenda.CalendarClient {
	if r.lookup == nil {
		return r.fallback
	}
	name, err := r.lookup.CalendarProvider(ctx, clinicID)
	if err != nil {
		r.logger.Warn().Err(err).Str("clinic_id", clinicID).Msg("provider lookup failed, using bridge")
		return r.fallback
	}
	if c, ok := r.providers[name]; ok {
		return c
	}
	if name != "" {
		r.logger.Warn().Str("clinic_id", clinicID).Str("provider", name).Msg("unknown calendar provider, using bridge")
	}
	return r.fallback
}

func (r *Router) ListEvents(ctx context.Context, clinicID string, start, end time.Time) ([]agenda.CalendarEvent, error) {
	return r.pick(ctx, clinicID).ListEvents(ctx, clinicID, start, end)
}

func (r *Router) CreateEvent(ctx context.Context, clinicID string, in agenda.EventInput) (*agenda.CalendarEvent, error) {
	return r.pick(ctx, clinicID).CreateEvent(ctx, clinicID, in)
}

func (r *Router) UpdateEvent(ctx context.Context, clinicID, eventID, calendarID string, patch agenda.EventPatch) (*agenda.CalendarEvent, error) {
	return r.pick(ctx, clinicID).UpdateEvent(ctx, clinicID, eventID, calendarID, patch)
}

func (r *Router) DeleteEvent(ctx context.Context, clinicID, eventID, calendarID string) error {
	return r.pick(ctx, clinicID).DeleteEvent(ctx, clinicID, eventID, calendarID)
}

// ListCalendars delegates to the clinic's provider. Providers that cannot
// enumerate calendars expose only the primary one.
func (r *Router) ListCalendars(ctx context.Context, clinicID string) ([]agenda.CalendarInfo, error) {
	if l, ok := r.pick(ctx, clinicID).(agenda.CalendarLister); ok {
		return l.ListCalendars(ctx, clinicID)
	}
	return []agenda.CalendarInfo{{ID: agenda.PrimaryCalendar}}, nil
}
