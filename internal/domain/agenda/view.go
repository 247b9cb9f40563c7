package agenda

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSuperseded is returned to a navigation whose response arrived after a
// newer navigation had been issued. Its events are discarded.
var ErrSuperseded = errors.New("fetch superseded by a newer navigation")

// View is the agenda state of one user in one clinic: the displayed month,
// the last successfully fetched events and the pending delete selection.
type View struct {
	mu sync.Mutex

	year       int
	monthIndex int
	window     Range
	events     []CalendarEvent
	loaded     bool
	fetchedAt  time.Time
	lastErr    error

	issued   uint64
	inFlight map[string]bool

	pendingDelete *CalendarEvent
	lastAccess    time.Time
}

func newView(now time.Time, loc *time.Location) *View {
	n := now.In(loc)
	return &View{
		year:       n.Year(),
		monthIndex: int(n.Month()) - 1,
		inFlight:   make(map[string]bool),
		lastAccess: now,
	}
}

// Snapshot is a consistent copy of a View.
type Snapshot struct {
	Year          int
	MonthIndex    int
	Window        Range
	Events        []CalendarEvent
	Loaded        bool
	FetchedAt     time.Time
	LastErr       error
	PendingDelete *CalendarEvent
}

// Stale reports whether the events on display predate a failed fetch.
func (s Snapshot) Stale() bool {
	return s.LastErr != nil
}

// Snapshot copies the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *View) snapshotLocked() Snapshot {
	events := make([]CalendarEvent, len(v.events))
	copy(events, v.events)
	var pending *CalendarEvent
	if v.pendingDelete != nil {
		p := *v.pendingDelete
		pending = &p
	}
	return Snapshot{
		Year:          v.year,
		MonthIndex:    v.monthIndex,
		Window:        v.window,
		Events:        events,
		Loaded:        v.loaded,
		FetchedAt:     v.fetchedAt,
		LastErr:       v.lastErr,
		PendingDelete: pending,
	}
}

// begin marks action as in flight. The returned release must be called when
// the action finishes.
func (v *View) begin(action string) (func(), error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.inFlight[action] {
		return nil, ErrBusy
	}
	v.inFlight[action] = true
	return func() {
		v.mu.Lock()
		delete(v.inFlight, action)
		v.mu.Unlock()
	}, nil
}

// load fetches the window of the given month and applies it only if no newer
// load was issued meanwhile. A failed fetch keeps the previous events.
func (v *View) load(ctx context.Context, f *Fetcher, clinicID string, year, monthIndex int, loc *time.Location, now func() time.Time, m Recorder) error {
	rng := ResolveRange(year, monthIndex, loc)
	// Normalize overflowing month indexes before they become display state.
	first := time.Date(year, time.Month(monthIndex+1), 1, 0, 0, 0, 0, loc)

	v.mu.Lock()
	v.issued++
	gen := v.issued
	v.year = first.Year()
	v.monthIndex = int(first.Month()) - 1
	v.mu.Unlock()

	events, err := f.Fetch(ctx, clinicID, rng)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.issued {
		m.StaleDiscarded()
		return ErrSuperseded
	}
	if err != nil {
		v.lastErr = err
		return err
	}
	v.events = events
	v.window = rng
	v.loaded = true
	v.fetchedAt = now()
	v.lastErr = nil
	return nil
}

// current returns the displayed month.
func (v *View) current() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.year, v.monthIndex
}

// findEvent looks an event up in the loaded window.
func (v *View) findEvent(eventID, calendarID string) (CalendarEvent, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, e := range v.events {
		if e.ID != eventID {
			continue
		}
		if calendarID == "" || e.CalendarID == calendarOrPrimary(calendarID) {
			return e, true
		}
	}
	return CalendarEvent{}, false
}

func (v *View) touch(now time.Time) {
	v.mu.Lock()
	v.lastAccess = now
	v.mu.Unlock()
}

func (v *View) idleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastAccess
}
