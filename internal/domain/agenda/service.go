package agenda

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Scope identifies whose view an operation acts on.
type Scope struct {
	ClinicID string
	UserID   string
}

// Options tunes a Service. Zero values pick the defaults.
type Options struct {
	Location    *time.Location
	SlotsPerDay int
	SessionIdle time.Duration
	Metrics     Recorder
	Now         func() time.Time
}

// Board is everything the agenda screen renders for the displayed month.
type Board struct {
	Year          int            `json:"year"`
	Month         int            `json:"month"`
	Window        Range          `json:"window"`
	Days          []DayCell      `json:"days"`
	Occupancy     OccupancyStats `json:"occupancy"`
	EventCount    int            `json:"event_count"`
	Loaded        bool           `json:"loaded"`
	FetchedAt     *time.Time     `json:"fetched_at,omitempty"`
	Stale         bool           `json:"stale"`
	Error         string         `json:"error,omitempty"`
	PendingDelete *CalendarEvent `json:"pending_delete,omitempty"`
}

// Service drives the agenda: navigation, refresh and event mutations, each
// scoped to a per-user View.
type Service struct {
	client      CalendarClient
	fetcher     *Fetcher
	sessions    *Sessions
	loc         *time.Location
	slotsPerDay int
	metrics     Recorder
	now         func() time.Time
	logger      zerolog.Logger
}

// NewService wires a Service around a calendar client. owners may be nil.
func NewService(client CalendarClient, owners OwnerDirectory, opts Options, logger zerolog.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.SlotsPerDay <= 0 {
		opts.SlotsPerDay = DefaultSlotsPerDay
	}
	if opts.Metrics == nil {
		opts.Metrics = noopRecorder{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := instrument(client, opts.Metrics)
	return &Service{
		client:      c,
		fetcher:     NewFetcher(c, owners, logger),
		sessions:    NewSessions(opts.SessionIdle, opts.Location),
		loc:         opts.Location,
		slotsPerDay: opts.SlotsPerDay,
		metrics:     opts.Metrics,
		now:         opts.Now,
		logger:      logger.With().Str("component", "agenda-service").Logger(),
	}
}

// Location returns the clinic time zone the service buckets in.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) begin(v *View, action string) (func(), error) {
	release, err := v.begin(action)
	if err != nil {
		s.metrics.BusyRejected(action)
		return nil, err
	}
	return release, nil
}

// Navigate displays the month with zero-based monthIndex and fetches its
// window. A fetch error is returned along with the board, which then still
// carries the previous events.
func (s *Service) Navigate(ctx context.Context, sc Scope, year, monthIndex int) (*Board, error) {
	v := s.sessions.Get(sc.ClinicID, sc.UserID, s.now())
	err := v.load(ctx, s.fetcher, sc.ClinicID, year, monthIndex, s.loc, s.now, s.metrics)
	if errors.Is(err, ErrSuperseded) {
		return nil, err
	}
	return s.board(v.Snapshot()), err
}

// Refresh re-fetches the displayed month.
func (s *Service) Refresh(ctx context.Context, sc Scope) (*Board, error) {
	v := s.sessions.Get(sc.ClinicID, sc.UserID, s.now())
	release, err := s.begin(v, "refresh")
	if err != nil {
		return nil, err
	}
	defer release()

	year, month := v.current()
	err = v.load(ctx, s.fetcher, sc.ClinicID, year, month, s.loc, s.now, s.metrics)
	if errors.Is(err, ErrSuperseded) {
		return nil, err
	}
	return s.board(v.Snapshot()), err
}

// Current returns the board without fetching.
func (s *Service) Current(sc Scope) *Board {
	v := s.sessions.Get(sc.ClinicID, sc.UserID, s.now())
	return s.board(v.Snapshot())
}

// Day lists the events of one day of the displayed month.
func (s *Service) Day(sc Scope, day int) ([]DisplayEvent, error) {
	snap := s.sessions.Get(sc.ClinicID, sc.UserID, s.now()).Snapshot()
	if day < 1 || day > DaysInMonth(snap.Year, snap.MonthIndex) {
		return nil, validation("day", "out of range for the displayed month")
	}
	return decorate(EventsForDay(snap.Events, snap.Year, snap.MonthIndex, day, s.loc)), nil
}

// Window returns the loaded events and their window, for export.
func (s *Service) Window(sc Scope) (Range, []CalendarEvent) {
	snap := s.sessions.Get(sc.ClinicID, sc.UserID, s.now()).Snapshot()
	return snap.Window, snap.Events
}

func (s *Service) board(snap Snapshot) *Board {
	b := &Board{
		Year:          snap.Year,
		Month:         snap.MonthIndex + 1,
		Window:        snap.Window,
		Days:          BuildGrid(snap.Events, snap.Year, snap.MonthIndex, s.loc),
		Occupancy:     AnalyzeOccupancy(snap.Events, s.now(), s.loc, s.slotsPerDay),
		EventCount:    len(snap.Events),
		Loaded:        snap.Loaded,
		Stale:         snap.Stale(),
		PendingDelete: snap.PendingDelete,
	}
	if !snap.FetchedAt.IsZero() {
		t := snap.FetchedAt
		b.FetchedAt = &t
	}
	if snap.LastErr != nil {
		b.Error = snap.LastErr.Error()
	}
	return b
}
