package agenda

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Recorder receives calendar call and view metrics. *telemetry.Provider
// implements it.
type Recorder interface {
	ObserveCalendar(op string, elapsed time.Duration, err error)
	StaleDiscarded()
	BusyRejected(action string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveCalendar(string, time.Duration, error) {}
func (noopRecorder) StaleDiscarded()                              {}
func (noopRecorder) BusyRejected(string)                          {}

// instrumented wraps a CalendarClient so that every call is timed, counted
// and, on failure, returned as a *FetchError.
type instrumented struct {
	next    CalendarClient
	metrics Recorder
}

func instrument(c CalendarClient, m Recorder) CalendarClient {
	if m == nil {
		m = noopRecorder{}
	}
	return &instrumented{next: c, metrics: m}
}

func (i *instrumented) observe(op string, start time.Time, err error) error {
	i.metrics.ObserveCalendar(op, time.Since(start), err)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	return nil
}

func (i *instrumented) ListEvents(ctx context.Context, clinicID string, start, end time.Time) ([]CalendarEvent, error) {
	t := time.Now()
	events, err := i.next.ListEvents(ctx, clinicID, start, end)
	return events, i.observe("list", t, err)
}

func (i *instrumented) CreateEvent(ctx context.Context, clinicID string, in EventInput) (*CalendarEvent, error) {
	t := time.Now()
	ev, err := i.next.CreateEvent(ctx, clinicID, in)
	return ev, i.observe("create", t, err)
}

func (i *instrumented) UpdateEvent(ctx context.Context, clinicID, eventID, calendarID string, patch EventPatch) (*CalendarEvent, error) {
	t := time.Now()
	ev, err := i.next.UpdateEvent(ctx, clinicID, eventID, calendarID, patch)
	return ev, i.observe("update", t, err)
}

func (i *instrumented) DeleteEvent(ctx context.Context, clinicID, eventID, calendarID string) error {
	t := time.Now()
	err := i.next.DeleteEvent(ctx, clinicID, eventID, calendarID)
	return i.observe("delete", t, err)
}

// Fetcher lists the events of a window and normalizes them.
type Fetcher struct {
	client CalendarClient
	owners OwnerDirectory
	logger zerolog.Logger
}

// NewFetcher creates a Fetcher. owners may be nil, in which case events are
// left as the provider labelled them.
func NewFetcher(client CalendarClient, owners OwnerDirectory, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		owners: owners,
		logger: logger.With().Str("component", "agenda-fetcher").Logger(),
	}
}

// Fetch returns the clinic's events inside rng, sorted by start. Provider
// failures come back as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, clinicID string, rng Range) ([]CalendarEvent, error) {
	raw, err := f.client.ListEvents(ctx, clinicID, rng.Start, rng.End)
	if err != nil {
		if !IsFetch(err) {
			err = &FetchError{Op: "list", Err: err}
		}
		f.logger.Warn().Err(err).Str("clinic_id", clinicID).Str("op", "list").Msg("calendar fetch failed")
		return nil, err
	}
	return normalize(raw, f.ownerIndex(ctx, clinicID)), nil
}

func (f *Fetcher) ownerIndex(ctx context.Context, clinicID string) map[string]CalendarOwner {
	if f.owners == nil {
		return nil
	}
	owners, err := f.owners.CalendarOwners(ctx, clinicID)
	if err != nil {
		f.logger.Warn().Err(err).Str("clinic_id", clinicID).Msg("professional lookup failed, events left unlabelled")
		return nil
	}
	idx := make(map[string]CalendarOwner, len(owners))
	for _, o := range owners {
		cal := calendarOrPrimary(o.CalendarID)
		if _, ok := idx[cal]; !ok {
			idx[cal] = o
		}
	}
	return idx
}

type eventKey struct {
	calendar string
	id       string
}

func normalize(raw []CalendarEvent, owners map[string]CalendarOwner) []CalendarEvent {
	out := make([]CalendarEvent, 0, len(raw))
	seen := make(map[eventKey]struct{}, len(raw))
	for _, e := range raw {
		e.CalendarID = calendarOrPrimary(e.CalendarID)
		if e.ID != "" {
			k := eventKey{e.CalendarID, e.ID}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		if o, ok := owners[e.CalendarID]; ok {
			if e.ProfessionalName == "" {
				e.ProfessionalName = o.Name
			}
			if e.ProfessionalID == "" {
				e.ProfessionalID = o.ProfessionalID
			}
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.DateTime.Before(out[j].Start.DateTime)
	})
	return out
}
