package calendar

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/clinicops/agenda/internal/domain/agenda"
)

// ErrReadOnlyCalendar is returned by mutations against an iCalendar feed.
var ErrReadOnlyCalendar = errors.New("calendar feed is read-only")

const (
	productID     = "-//clinicops//agenda//PT-BR"
	statusCancel  = "CANCELLED"
	maxOccurrence = 500

	propCalendarName = "X-WR-CALNAME"
	propProfessional = "X-PROFESSIONAL"
)

// FeedSource resolves the iCalendar URL of a clinic.
type FeedSource interface {
	FeedURL(ctx context.Context, clinicID string) (string, error)
}

// Feed is a read-only agenda.CalendarClient over a published .ics URL.
type Feed struct {
	source FeedSource
	loc    *time.Location
	client *http.Client
}

func NewFeed(source FeedSource, timeout time.Duration, loc *time.Location) *Feed {
	if loc == nil {
		loc = time.Local
	}
	return &Feed{source: source, loc: loc, client: &http.Client{Timeout: timeout}}
}

func (f *Feed) ListEvents(ctx context.Context, clinicID string, start, end time.Time) ([]agenda.CalendarEvent, error) {
	feedURL, err := f.source.FeedURL(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("resolving feed: %w", err)
	}
	if feedURL == "" {
		return nil, fmt.Errorf("clinic %s has no calendar feed", clinicID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Status: resp.StatusCode}
	}
	return DecodeFeed(resp.Body, start, end, f.loc)
}

func (f *Feed) CreateEvent(context.Context, string, agenda.EventInput) (*agenda.CalendarEvent, error) {
	return nil, ErrReadOnlyCalendar
}

func (f *Feed) UpdateEvent(context.Context, string, string, string, agenda.EventPatch) (*agenda.CalendarEvent, error) {
	return nil, ErrReadOnlyCalendar
}

func (f *Feed) DeleteEvent(context.Context, string, string, string) error {
	return ErrReadOnlyCalendar
}

// DecodeFeed parses an iCalendar stream and returns the events starting in
// [start, end]. Cancelled events are dropped and recurring ones expanded.
func DecodeFeed(r io.Reader, start, end time.Time, loc *time.Location) ([]agenda.CalendarEvent, error) {
	br := bufio.NewReader(r)
	if err := checkFeedFormat(br); err != nil {
		return nil, err
	}
	dec := ical.NewDecoder(br)
	var out []agenda.CalendarEvent
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}
		calName := ""
		if p := cal.Props.Get(propCalendarName); p != nil {
			calName = p.Value
		}

		for _, ev := range cal.Events() {
			base, ok := parseEvent(ev, loc)
			if !ok || strings.EqualFold(base.Status, statusCancel) {
				continue
			}
			base.CalendarName = calName

			set, err := ev.RecurrenceSet(loc)
			if err != nil || set == nil {
				if !base.Start.DateTime.Before(start) && !base.Start.DateTime.After(end) {
					out = append(out, base)
				}
				continue
			}
			dur := base.End.DateTime.Sub(base.Start.DateTime)
			occurrences := set.Between(start, end, true)
			if len(occurrences) > maxOccurrence {
				occurrences = occurrences[:maxOccurrence]
			}
			for _, occ := range occurrences {
				e := base
				e.ID = base.ID + "_" + occ.UTC().Format("20060102T150405Z")
				e.Start.DateTime = occ
				e.End.DateTime = occ.Add(dur)
				out = append(out, e)
			}
		}
	}
	return out, nil
}

// checkFeedFormat rejects HTML login pages and other non-calendar bodies
// before they reach the decoder.
func checkFeedFormat(br *bufio.Reader) error {
	head, _ := br.Peek(512)
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	head = bytes.TrimSpace(head)
	if !bytes.HasPrefix(bytes.ToUpper(head), []byte("BEGIN:VCALENDAR")) {
		if bytes.HasPrefix(bytes.ToUpper(head), []byte("<")) {
			return errors.New("received HTML instead of iCalendar data, check if the feed URL requires authentication")
		}
		return errors.New("response is not an iCalendar document")
	}
	return nil
}

func parseEvent(ev ical.Event, loc *time.Location) (agenda.CalendarEvent, bool) {
	start, err := ev.DateTimeStart(loc)
	if err != nil {
		return agenda.CalendarEvent{}, false
	}
	e := agenda.CalendarEvent{Start: agenda.EventTime{DateTime: start}}
	if end, err := ev.DateTimeEnd(loc); err == nil && !end.IsZero() {
		e.End = agenda.EventTime{DateTime: end}
	} else {
		e.End = agenda.EventTime{DateTime: start.Add(time.Hour)}
	}
	if p := ev.Props.Get(ical.PropUID); p != nil {
		e.ID = p.Value
	}
	if p := ev.Props.Get(ical.PropSummary); p != nil {
		e.Title = p.Value
	}
	if p := ev.Props.Get(ical.PropDescription); p != nil {
		d := p.Value
		e.Description = &d
	}
	if p := ev.Props.Get(ical.PropLocation); p != nil {
		e.Location = p.Value
	}
	if p := ev.Props.Get(ical.PropStatus); p != nil {
		e.Status = p.Value
	}
	if e.ID == "" {
		e.ID = start.UTC().Format("20060102T150405Z") + "-" + e.Title
	}
	return e, true
}

// EncodeICS writes events as a VCALENDAR named name.
func EncodeICS(w io.Writer, name string, events []agenda.CalendarEvent) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	if name != "" {
		cal.Props.Set(extendedProp(propCalendarName, name))
	}

	stamp := time.Now().UTC()
	for _, e := range events {
		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, e.SourceCalendar()+"/"+e.ID)
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		ev.Props.SetDateTime(ical.PropDateTimeStart, e.Start.DateTime.UTC())
		if !e.End.DateTime.IsZero() {
			ev.Props.SetDateTime(ical.PropDateTimeEnd, e.End.DateTime.UTC())
		}
		ev.Props.SetText(ical.PropSummary, e.Title)
		if e.Description != nil && *e.Description != "" {
			ev.Props.SetText(ical.PropDescription, *e.Description)
		}
		if e.Location != "" {
			ev.Props.SetText(ical.PropLocation, e.Location)
		}
		if e.ProfessionalName != "" {
			ev.Props.Set(extendedProp(propProfessional, e.ProfessionalName))
		}
		cal.Children = append(cal.Children, ev.Component)
	}
	return ical.NewEncoder(w).Encode(cal)
}

var textEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

// extendedProp builds a non-standard text property without the VALUE
// parameter that SetText would attach.
func extendedProp(name, value string) *ical.Prop {
	return &ical.Prop{Name: name, Params: ical.Params{}, Value: textEscaper.Replace(value)}
}
