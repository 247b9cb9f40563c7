package agenda

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// CreateRequest is the create form. Date and Time are required together.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	CalendarID  string `json:"calendar_id"`
}

// UpdateRequest edits any subset of an event. Date applies to both start and
// end and keeps their clock times; StartTime and EndTime keep the date.
// Start and End replace the instants outright and are applied first.
type UpdateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Date        *string    `json:"date"`
	StartTime   *string    `json:"start_time"`
	EndTime     *string    `json:"end_time"`
	Start       *time.Time `json:"start"`
	End         *time.Time `json:"end"`
}

func (r UpdateRequest) touchesTime() bool {
	return r.Date != nil || r.StartTime != nil || r.EndTime != nil || r.Start != nil || r.End != nil
}

// MutationResult carries the provider's copy of the event and the board
// after the follow-up refresh.
type MutationResult struct {
	Event *CalendarEvent `json:"event,omitempty"`
	Board *Board         `json:"board"`
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, validation("date", "must be YYYY-MM-DD")
	}
	return d, nil
}

func parseClock(field, s string) (hour, minute int, err error) {
	c, perr := time.Parse(clockLayout, strings.TrimSpace(s))
	if perr != nil {
		return 0, 0, validation(field, "must be HH:MM")
	}
	return c.Hour(), c.Minute(), nil
}

// withDate moves t to the calendar date of d, keeping its clock time in loc.
func withDate(t, d time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// withClock sets the clock time of t in loc, keeping its date.
func withClock(t time.Time, hour, minute int, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, loc)
}

// buildCreate validates the form and returns the provider input.
func buildCreate(req CreateRequest, loc *time.Location) (EventInput, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return EventInput{}, validation("title", "is required")
	}
	if strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.Time) == "" {
		return EventInput{}, validation("start", "date and time are both required")
	}
	d, err := parseDate(req.Date, loc)
	if err != nil {
		return EventInput{}, err
	}
	h, m, err := parseClock("time", req.Time)
	if err != nil {
		return EventInput{}, err
	}
	return EventInput{
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Start:       time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, loc),
		CalendarID:  calendarOrPrimary(req.CalendarID),
	}, nil
}

// buildPatch applies req to the current event and returns the provider patch.
// current is only consulted for time edits.
func buildPatch(current CalendarEvent, req UpdateRequest, loc *time.Location) (EventPatch, error) {
	var p EventPatch
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			return p, validation("title", "cannot be empty")
		}
		p.Title = &t
	}
	if req.Description != nil {
		d := *req.Description
		p.Description = &d
	}

	if req.touchesTime() {
		start, end := current.Start.DateTime, current.End.DateTime
		if req.Start != nil {
			start = *req.Start
		}
		if req.End != nil {
			end = *req.End
		}
		if req.Date != nil {
			d, err := parseDate(*req.Date, loc)
			if err != nil {
				return p, err
			}
			start = withDate(start, d, loc)
			end = withDate(end, d, loc)
		}
		if req.StartTime != nil {
			h, m, err := parseClock("start_time", *req.StartTime)
			if err != nil {
				return p, err
			}
			start = withClock(start, h, m, loc)
		}
		if req.EndTime != nil {
			h, m, err := parseClock("end_time", *req.EndTime)
			if err != nil {
				return p, err
			}
			end = withClock(end, h, m, loc)
		}
		if end.Before(start) {
			return p, validation("end", "must not be before start")
		}
		if !start.Equal(current.Start.DateTime) {
			p.Start = &start
		}
		if !end.Equal(current.End.DateTime) {
			p.End = &end
		}
	}

	if p.IsEmpty() {
		return p, validation("event", "no changes")
	}
	return p, nil
}

// Create validates the form, creates the event and refreshes the window.
// Invalid input never reaches the provider.
func (s *Service) Create(ctx context.Context, sc Scope, req CreateRequest) (*MutationResult, error) {
	in, err := buildCreate(req, s.loc)
	if err != nil {
		return nil, err
	}
	v := s.sessions.Get(sc.ClinicID, sc.UserID, s.now())
	release, err := s.begin(v, "create")
	if err != nil {
		return nil, err
	}
	defer release()

	ev, err := s.client.CreateEvent(ctx, sc.ClinicID, in)
	if err != nil {
		return nil, err
	}
	return &MutationResult{Event: ev, Board: s.refreshAfter(ctx, v, sc)}, nil
}

// Update edits an event of the loaded window.
func (s *Service) Update(ctx context.Context, sc Scope, eventID, calendarID string, req UpdateRequest) (*MutationResult, error) {
	v := s.sessions.Get(sc.ClinicID, sc.UserID, s.now())
	current, ok := v.findEvent(eventID, calendarID)
	if !ok {
		if req.touchesTime() {
			return nil, ErrEventNotLoaded
		}
		current = CalendarEvent{ID: eventID, CalendarID: calendarOrPrimary(calendarID)}
	}
	patch, err := buildPatch(current, req, s.loc)
	if err != nil {
		return nil, err
	}

	release, err := s.begin(v, "update:"+eventID)
	if err != nil {
		return nil, err
	}
	defer release()

	ev, err := s.client.UpdateEvent(ctx, sc.ClinicID, eventID, current.SourceCalendar(), patch)
	if err != nil {
		return nil, err
	}
	return &MutationResult{Event: ev, Board: s.refreshAfter(ctx, v, sc)}, nil
}

// SelectForDeletion marks an event of the loaded window for deletion. Nothing
// is sent to the provider until ConfirmDelete.
func (s *Service) SelectForDeletion(sc Scope, eventID, calendarID string) (*CalendarEvent, error) {
	v := s.sessions.Get(sc.ClinicID, sc.UserID, s.now())
	ev, ok := v.findEvent(eventID, calendarID)
	if !ok {
		return nil, ErrEventNotLoaded
	}
	v.mu.Lock()
	v.pendingDelete = &ev
	v.mu.Unlock()
	return &ev, nil
}

// CancelDelete drops the pending selection, if any.
func (s *Service) CancelDelete(sc Scope) {
	v := s.sessions.Get(sc.ClinicID, sc.UserID, s.now())
	v.mu.Lock()
	v.pendingDelete = nil
	v.mu.Unlock()
}

// ConfirmDelete deletes the selected event. On failure the selection is kept
// so the user can retry.
func (s *Service) ConfirmDelete(ctx context.Context, sc Scope) (*MutationResult, error) {
	v := s.sessions.Get(sc.ClinicID, sc.UserID, s.now())
	release, err := s.begin(v, "delete")
	if err != nil {
		return nil, err
	}
	defer release()

	v.mu.Lock()
	pending := v.pendingDelete
	v.mu.Unlock()
	if pending == nil {
		return nil, ErrNoPendingDelete
	}

	if err := s.client.DeleteEvent(ctx, sc.ClinicID, pending.ID, pending.SourceCalendar()); err != nil {
		return nil, err
	}
	v.mu.Lock()
	if v.pendingDelete != nil && v.pendingDelete.ID == pending.ID {
		v.pendingDelete = nil
	}
	v.mu.Unlock()
	return &MutationResult{Event: pending, Board: s.refreshAfter(ctx, v, sc)}, nil
}

// refreshAfter re-fetches the displayed month once a mutation succeeded. A
// failing refresh does not undo the mutation; the board comes back stale.
func (s *Service) refreshAfter(ctx context.Context, v *View, sc Scope) *Board {
	year, month := v.current()
	if err := v.load(ctx, s.fetcher, sc.ClinicID, year, month, s.loc, s.now, s.metrics); err != nil && !errors.Is(err, ErrSuperseded) {
		s.logger.Warn().Err(err).Str("clinic_id", sc.ClinicID).Msg("refresh after mutation failed")
	}
	return s.board(v.Snapshot())
}
