package agenda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/agenda/internal/platform/auth"
)

func newTestHandler(cal *fakeCalendar) (*Handler, *echo.Echo) {
	svc := newTestService(cal, nil, nil)
	export := func(w io.Writer, name string, events []CalendarEvent) error {
		_, err := fmt.Fprintf(w, "BEGIN:VCALENDAR\r\nX-WR-CALNAME:%s\r\nX-COUNT:%d\r\nEND:VCALENDAR\r\n", name, len(events))
		return err
	}
	return NewHandler(svc, export), echo.New()
}

func scopedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), auth.ClinicIDKey, testScope.ClinicID)
	ctx = context.WithValue(ctx, auth.UserIDKey, testScope.UserID)
	return req.WithContext(ctx)
}

func TestHandler_Navigate(t *testing.T) {
	h, e := newTestHandler(&fakeCalendar{events: []CalendarEvent{eventAt("a", testNow)}})
	rec := httptest.NewRecorder()
	c := e.NewContext(scopedRequest(http.MethodGet, "/?year=2024&month=4", ""), rec)

	if err := h.Navigate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var b Board
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Month != 4 || b.EventCount != 1 {
		t.Errorf("unexpected board: month=%d events=%d", b.Month, b.EventCount)
	}
}

func TestHandler_Navigate_InvalidMonth(t *testing.T) {
	h, e := newTestHandler(&fakeCalendar{})
	for _, q := range []string{"?month=0", "?month=13", "?year=abc"} {
		c := e.NewContext(scopedRequest(http.MethodGet, "/"+q, ""), httptest.NewRecorder())
		err := h.Navigate(c)
		httpErr, ok := err.(*echo.HTTPError)
		if !ok || httpErr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %v", q, err)
		}
	}
}

func TestHandler_Navigate_FetchFailureReturnsStaleBoard(t *testing.T) {
	h, e := newTestHandler(&fakeCalendar{listErr: errors.New("bridge down")})
	rec := httptest.NewRecorder()
	c := e.NewContext(scopedRequest(http.MethodGet, "/?year=2024&month=4", ""), rec)

	if err := h.Navigate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"stale":true`) {
		t.Errorf("expected stale board, got %s", rec.Body.String())
	}
}

func TestHandler_CreateEvent_Validation(t *testing.T) {
	cal := &fakeCalendar{}
	h, e := newTestHandler(cal)
	c := e.NewContext(scopedRequest(http.MethodPost, "/", `{"title":"Consulta"}`), httptest.NewRecorder())

	err := h.CreateEvent(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
	if len(cal.created) != 0 {
		t.Error("provider must not be called")
	}
}

func TestHandler_CreateEvent(t *testing.T) {
	cal := &fakeCalendar{}
	h, e := newTestHandler(cal)
	rec := httptest.NewRecorder()
	body := `{"title":"Consulta","date":"2024-04-12","time":"10:00","calendar_id":"dr-ana"}`
	c := e.NewContext(scopedRequest(http.MethodPost, "/", body), rec)

	if err := h.CreateEvent(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if len(cal.created) != 1 || cal.created[0].CalendarID != "dr-ana" {
		t.Errorf("unexpected create calls: %+v", cal.created)
	}
}

func TestHandler_DeleteFlow(t *testing.T) {
	ev := eventAt("evt", time.Date(2024, 4, 15, 9, 0, 0, 0, brt))
	cal := &fakeCalendar{events: []CalendarEvent{ev}}
	h, e := newTestHandler(cal)
	if _, err := h.svc.Navigate(context.Background(), testScope, 2024, 3); err != nil {
		t.Fatal(err)
	}

	c := e.NewContext(scopedRequest(http.MethodPost, "/?calendar_id=primary", ""), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("evt")
	if err := h.SelectDelete(c); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(cal.deleted) != 0 {
		t.Fatal("select must not delete")
	}

	rec := httptest.NewRecorder()
	c = e.NewContext(scopedRequest(http.MethodPost, "/", ""), rec)
	if err := h.ConfirmDelete(c); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(cal.deleted) != 1 || cal.deleted[0] != "primary/evt" {
		t.Errorf("unexpected deletes: %v", cal.deleted)
	}

	c = e.NewContext(scopedRequest(http.MethodPost, "/", ""), httptest.NewRecorder())
	err := h.ConfirmDelete(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Errorf("expected 409 without selection, got %v", err)
	}
}

func TestHandler_Day_BadParam(t *testing.T) {
	h, e := newTestHandler(&fakeCalendar{})
	c := e.NewContext(scopedRequest(http.MethodGet, "/", ""), httptest.NewRecorder())
	c.SetParamNames("day")
	c.SetParamValues("x")
	if err := h.Day(c); err == nil {
		t.Error("expected error for non-numeric day")
	}
}

func TestHandler_Export(t *testing.T) {
	h, e := newTestHandler(&fakeCalendar{events: []CalendarEvent{eventAt("a", testNow)}})

	c := e.NewContext(scopedRequest(http.MethodGet, "/", ""), httptest.NewRecorder())
	err := h.Export(c)
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409 before any navigation, got %v", err)
	}

	if _, err := h.svc.Navigate(context.Background(), testScope, 2024, 3); err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	c = e.NewContext(scopedRequest(http.MethodGet, "/", ""), rec)
	if err := h.Export(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "X-COUNT:1") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestHttpError_Mapping(t *testing.T) {
	cases := map[error]int{
		&ValidationError{Field: "title", Msg: "is required"}: http.StatusUnprocessableEntity,
		&FetchError{Op: "list", Err: errors.New("x")}:        http.StatusBadGateway,
		ErrBusy:            http.StatusConflict,
		ErrNoPendingDelete: http.StatusConflict,
		ErrEventNotLoaded:  http.StatusNotFound,
		errors.New("boom"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := httpError(err).Code; got != want {
			t.Errorf("%v: expected %d, got %d", err, want, got)
		}
	}
}
