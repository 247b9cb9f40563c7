package agenda

import (
	"sync"
	"time"
)

// DefaultSessionIdle is how long an untouched view is kept.
const DefaultSessionIdle = 15 * time.Minute

type sessionKey struct {
	clinicID string
	userID   string
}

// Sessions holds one View per (clinic, user).
type Sessions struct {
	mu    sync.Mutex
	views map[sessionKey]*View
	idle  time.Duration
	loc   *time.Location
}

// NewSessions creates an empty store. A non-positive idle uses DefaultSessionIdle.
func NewSessions(idle time.Duration, loc *time.Location) *Sessions {
	if idle <= 0 {
		idle = DefaultSessionIdle
	}
	if loc == nil {
		loc = time.Local
	}
	return &Sessions{views: make(map[sessionKey]*View), idle: idle, loc: loc}
}

// Get returns the view for the pair, creating one positioned on the month of
// now when none exists. Idle views of other users are evicted on the way.
func (s *Sessions) Get(clinicID, userID string, now time.Time) *View {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := sessionKey{clinicID, userID}
	for key, v := range s.views {
		if key != k && now.Sub(v.idleSince()) > s.idle {
			delete(s.views, key)
		}
	}
	v, ok := s.views[k]
	if !ok {
		v = newView(now, s.loc)
		s.views[k] = v
	}
	v.touch(now)
	return v
}

// Len returns the number of live views.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}
