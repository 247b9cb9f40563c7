package calendar

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/agenda/internal/domain/agenda"
)

const sampleFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//feed//EN\r\n" +
	"X-WR-CALNAME:Consultório\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:one@test\r\n" +
	"DTSTAMP:20240401T000000Z\r\n" +
	"DTSTART:20240410T120000Z\r\n" +
	"DTEND:20240410T130000Z\r\n" +
	"SUMMARY:Consulta Maria\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:cancelled@test\r\n" +
	"DTSTAMP:20240401T000000Z\r\n" +
	"DTSTART:20240411T120000Z\r\n" +
	"DTEND:20240411T130000Z\r\n" +
	"SUMMARY:Desmarcada\r\n" +
	"STATUS:CANCELLED\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:outside@test\r\n" +
	"DTSTAMP:20240401T000000Z\r\n" +
	"DTSTART:20240710T120000Z\r\n" +
	"DTEND:20240710T130000Z\r\n" +
	"SUMMARY:Julho\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:weekly@test\r\n" +
	"DTSTAMP:20240401T000000Z\r\n" +
	"DTSTART:20240401T180000Z\r\n" +
	"DTEND:20240401T183000Z\r\n" +
	"RRULE:FREQ=WEEKLY;COUNT=3\r\n" +
	"SUMMARY:Retorno semanal\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestDecodeFeed_FiltersAndExpands(t *testing.T) {
	start := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 30, 23, 59, 59, 0, time.UTC)

	events, err := DecodeFeed(strings.NewReader(sampleFeed), start, end, brt)
	require.NoError(t, err)

	titles := map[string]int{}
	for _, e := range events {
		titles[e.Title]++
		assert.Equal(t, "Consultório", e.CalendarName)
	}
	assert.Equal(t, 1, titles["Consulta Maria"])
	assert.Equal(t, 2, titles["Retorno semanal"])
	assert.Zero(t, titles["Desmarcada"])
	assert.Zero(t, titles["Julho"])
	assert.Len(t, events, 3)
}

func TestDecodeFeed_RejectsGarbage(t *testing.T) {
	_, err := DecodeFeed(strings.NewReader("<!DOCTYPE html><html></html>"), time.Time{}, time.Now(), brt)
	assert.Error(t, err)
}

type staticSource struct {
	url string
	err error
}

func (s staticSource) FeedURL(context.Context, string) (string, error) {
	return s.url, s.err
}

func TestFeed_ListAndReadOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, sampleFeed)
	}))
	defer srv.Close()

	f := NewFeed(staticSource{url: srv.URL}, 0, brt)
	events, err := f.ListEvents(context.Background(), "c",
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NotEmpty(t, events)

	_, err = f.CreateEvent(context.Background(), "c", agenda.EventInput{})
	assert.ErrorIs(t, err, ErrReadOnlyCalendar)
	assert.ErrorIs(t, f.DeleteEvent(context.Background(), "c", "x", ""), ErrReadOnlyCalendar)
}

func TestFeed_MissingURL(t *testing.T) {
	f := NewFeed(staticSource{}, 0, brt)
	_, err := f.ListEvents(context.Background(), "c", time.Now(), time.Now())
	assert.Error(t, err)

	f = NewFeed(staticSource{err: errors.New("no clinic")}, 0, brt)
	_, err = f.ListEvents(context.Background(), "c", time.Now(), time.Now())
	assert.Error(t, err)
}

func TestEncodeICS(t *testing.T) {
	desc := "Primeira consulta"
	events := []agenda.CalendarEvent{{
		ID:               "evt",
		Title:            "Consulta",
		Description:      &desc,
		CalendarID:       "dr-ana",
		ProfessionalName: "Dra. Ana",
		Start:            agenda.EventTime{DateTime: time.Date(2024, 4, 10, 9, 0, 0, 0, brt)},
		End:              agenda.EventTime{DateTime: time.Date(2024, 4, 10, 10, 0, 0, 0, brt)},
	}}

	var buf bytes.Buffer
	require.NoError(t, EncodeICS(&buf, "agenda-clinic-1", events))
	out := buf.String()

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "UID:dr-ana/evt")
	assert.Contains(t, out, "DTSTART:20240410T120000Z")
	assert.Contains(t, out, "X-PROFESSIONAL:Dra. Ana")
	assert.Contains(t, out, "X-WR-CALNAME:agenda-clinic-1")
	assert.NotContains(t, out, "X-PROFESSIONAL;")
	assert.NotContains(t, out, "X-WR-CALNAME;")

	decoded, err := DecodeFeed(strings.NewReader(out),
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), brt)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, "Consulta", decoded[0].Title)
	assert.Equal(t, "agenda-clinic-1", decoded[0].CalendarName)
}

func TestEncodeICS_EscapesProfessionalName(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeICS(&buf, "", []agenda.CalendarEvent{{
		ID:               "evt",
		Title:            "Retorno",
		ProfessionalName: "Silva, Ana; Clínica",
		Start:            agenda.EventTime{DateTime: time.Date(2024, 4, 10, 9, 0, 0, 0, brt)},
	}}))
	assert.Contains(t, buf.String(), `X-PROFESSIONAL:Silva\, Ana\; Clínica`)
	assert.NotContains(t, buf.String(), "X-WR-CALNAME")
}
