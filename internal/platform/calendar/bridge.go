// Package calendar holds the external calendar providers the agenda talks
// to: the HTTP calendar bridge (Google and Outlook behind it) and read-only
// iCalendar feeds.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clinicops/agenda/internal/domain/agenda"
)

const (
	passwordHeader = "x-api-password"
	tokenIssuer    = "agenda-server"
	tokenTTL       = 5 * time.Minute
	maxErrorBody   = 4 << 10
)

// BridgeConfig configures the bridge client.
type BridgeConfig struct {
	BaseURL  string
	Password string
	// TokenSecret, when set, signs a short-lived HS256 bearer token per call.
	TokenSecret []byte
	// Timeout of zero leaves the transport default in place.
	Timeout  time.Duration
	Location *time.Location
}

// Bridge is an agenda.CalendarClient backed by the calendar bridge service.
type Bridge struct {
	base     string
	password string
	secret   []byte
	loc      *time.Location
	client   *http.Client
	now      func() time.Time
}

// NewBridge creates a bridge client.
func NewBridge(cfg BridgeConfig) *Bridge {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Bridge{
		base:     strings.TrimRight(cfg.BaseURL, "/"),
		password: cfg.Password,
		secret:   cfg.TokenSecret,
		loc:      loc,
		client:   &http.Client{Timeout: cfg.Timeout},
		now:      time.Now,
	}
}

// StatusError is a non-2xx answer from the bridge.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("calendar bridge returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("calendar bridge returned %d", e.Status)
}

type wireTime struct {
	DateTime *time.Time `json:"dateTime,omitempty"`
	Date     string     `json:"date,omitempty"`
	TimeZone string     `json:"timeZone,omitempty"`
}

type wireEvent struct {
	ID               string   `json:"id"`
	Summary          string   `json:"summary"`
	Description      *string  `json:"description"`
	Start            wireTime `json:"start"`
	End              wireTime `json:"end"`
	Location         string   `json:"location"`
	Status           string   `json:"status"`
	ProfessionalName string   `json:"profissional_nome"`
	ProfessionalID   string   `json:"profissional_id"`
	CalendarID       string   `json:"calendarId"`
	CalendarSummary  string   `json:"calendarSummary"`
	ColorID          string   `json:"colorId"`
}

// toTime resolves a wire time. All-day events carry only a date and start at
// local midnight.
func (w wireTime) toTime(loc *time.Location) agenda.EventTime {
	if w.DateTime != nil {
		return agenda.EventTime{DateTime: *w.DateTime, TimeZone: w.TimeZone}
	}
	if d, err := time.ParseInLocation("2006-01-02", w.Date, loc); err == nil {
		return agenda.EventTime{DateTime: d, TimeZone: w.TimeZone}
	}
	return agenda.EventTime{TimeZone: w.TimeZone}
}

func (w wireEvent) toEvent(loc *time.Location) agenda.CalendarEvent {
	return agenda.CalendarEvent{
		ID:               w.ID,
		Title:            w.Summary,
		Description:      w.Description,
		Start:            w.Start.toTime(loc),
		End:              w.End.toTime(loc),
		Location:         w.Location,
		Status:           w.Status,
		ProfessionalName: w.ProfessionalName,
		ProfessionalID:   w.ProfessionalID,
		CalendarID:       w.CalendarID,
		CalendarName:     w.CalendarSummary,
		Color:            w.ColorID,
	}
}

type createBody struct {
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start"`
	CalendarID  string `json:"calendar_id,omitempty"`
}

type patchBody struct {
	Summary     *string `json:"summary,omitempty"`
	Description *string `json:"description,omitempty"`
	Start       *string `json:"start,omitempty"`
	End         *string `json:"end,omitempty"`
}

func formatInstant(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func (b *Bridge) eventsURL(clinicID string, parts ...string) string {
	u := b.base + "/calendars/events/" + url.PathEscape(clinicID)
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

func (b *Bridge) ListEvents(ctx context.Context, clinicID string, start, end time.Time) ([]agenda.CalendarEvent, error) {
	q := url.Values{}
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))

	var out struct {
		Events []wireEvent `json:"events"`
	}
	if err := b.do(ctx, http.MethodGet, clinicID, b.eventsURL(clinicID)+"?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	events := make([]agenda.CalendarEvent, 0, len(out.Events))
	for _, w := range out.Events {
		events = append(events, w.toEvent(b.loc))
	}
	return events, nil
}

func (b *Bridge) CreateEvent(ctx context.Context, clinicID string, in agenda.EventInput) (*agenda.CalendarEvent, error) {
	body := createBody{
		Summary:     in.Title,
		Description: in.Description,
		Start:       in.Start.In(b.loc).Format(time.RFC3339),
		CalendarID:  in.CalendarID,
	}
	var w wireEvent
	if err := b.do(ctx, http.MethodPost, clinicID, b.eventsURL(clinicID), body, &w); err != nil {
		return nil, err
	}
	ev := w.toEvent(b.loc)
	return &ev, nil
}

func (b *Bridge) UpdateEvent(ctx context.Context, clinicID, eventID, calendarID string, patch agenda.EventPatch) (*agenda.CalendarEvent, error) {
	body := patchBody{
		Summary:     patch.Title,
		Description: patch.Description,
		Start:       formatInstant(patch.Start),
		End:         formatInstant(patch.End),
	}
	target := b.eventsURL(clinicID, eventID) + "?calendar_id=" + url.QueryEscape(calendarOrPrimary(calendarID))
	var w wireEvent
	if err := b.do(ctx, http.MethodPatch, clinicID, target, body, &w); err != nil {
		return nil, err
	}
	ev := w.toEvent(b.loc)
	return &ev, nil
}

func (b *Bridge) DeleteEvent(ctx context.Context, clinicID, eventID, calendarID string) error {
	target := b.eventsURL(clinicID, eventID) + "?calendar_id=" + url.QueryEscape(calendarOrPrimary(calendarID))
	return b.do(ctx, http.MethodDelete, clinicID, target, nil, nil)
}

// ListCalendars returns the calendars of the clinic's connected account, so a
// professional can be linked to one of them.
func (b *Bridge) ListCalendars(ctx context.Context, clinicID string) ([]agenda.CalendarInfo, error) {
	var out struct {
		Calendars []agenda.CalendarInfo `json:"calendars"`
	}
	target := b.base + "/calendars/list/" + url.PathEscape(clinicID)
	if err := b.do(ctx, http.MethodGet, clinicID, target, nil, &out); err != nil {
		return nil, err
	}
	if out.Calendars == nil {
		return []agenda.CalendarInfo{}, nil
	}
	return out.Calendars, nil
}

func calendarOrPrimary(id string) string {
	if id == "" {
		return agenda.PrimaryCalendar
	}
	return id
}

// token signs the per-call service token.
func (b *Bridge) token(clinicID string) (string, error) {
	now := b.now()
	claims := jwt.MapClaims{
		"sub":       tokenIssuer,
		"clinic_id": clinicID,
		"iat":       now.Unix(),
		"exp":       now.Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

func (b *Bridge) do(ctx context.Context, method, clinicID, target string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.password != "" {
		req.Header.Set(passwordHeader, b.password)
	}
	if len(b.secret) > 0 {
		tok, err := b.token(clinicID)
		if err != nil {
			return fmt.Errorf("signing bridge token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decoding bridge response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Detail interface{} `json:"detail"`
	}
	se := &StatusError{Status: resp.StatusCode}
	if json.Unmarshal(raw, &payload) == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			se.Detail = s
		} else if b, err := json.Marshal(payload.Detail); err == nil {
			se.Detail = string(b)
		}
	}
	return se
}
