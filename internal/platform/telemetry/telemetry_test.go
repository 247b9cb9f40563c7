package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewProvider_DefaultNamespace(t *testing.T) {
	p := NewProvider(Config{})
	p.StaleDiscarded()

	mfs, err := p.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "agenda_agenda_stale_responses_discarded_total" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected stale counter under default namespace")
	}
}

func TestObserveCalendar_Outcomes(t *testing.T) {
	p := NewProvider(Config{})
	p.ObserveCalendar("list", 20*time.Millisecond, nil)
	p.ObserveCalendar("list", 30*time.Millisecond, errors.New("boom"))
	p.ObserveCalendar("create", 10*time.Millisecond, nil)

	if got := testutil.ToFloat64(p.calendarCalls.WithLabelValues("list", OutcomeOK)); got != 1 {
		t.Errorf("list ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.calendarCalls.WithLabelValues("list", OutcomeError)); got != 1 {
		t.Errorf("list error = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(p.calendarTiming); got != 2 {
		t.Errorf("histogram series = %d, want 2", got)
	}
}

func TestNilProvider_IsSafe(t *testing.T) {
	var p *Provider
	p.ObserveCalendar("list", time.Second, nil)
	p.StaleDiscarded()
	p.BusyRejected("create")
	p.SetDBPool(3, 1)
}

func TestBusyRejectedAndPool(t *testing.T) {
	p := NewProvider(Config{Namespace: "test"})
	p.BusyRejected("create")
	p.BusyRejected("create")
	p.SetDBPool(10, 4)

	if got := testutil.ToFloat64(p.busyRejected.WithLabelValues("create")); got != 2 {
		t.Errorf("busy = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.dbPoolConns.WithLabelValues("idle")); got != 4 {
		t.Errorf("idle = %v, want 4", got)
	}
}

func TestMetricsMiddleware_RecordsRoute(t *testing.T) {
	p := NewProvider(Config{})
	e := echo.New()
	e.Use(p.MetricsMiddleware())
	e.GET("/api/v1/agenda", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway, "provider down")
	})

	for _, path := range []string{"/api/v1/agenda", "/api/v1/agenda", "/fail"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
	}

	if got := testutil.ToFloat64(p.httpRequests.WithLabelValues("GET", "/api/v1/agenda", "200")); got != 2 {
		t.Errorf("agenda requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.httpRequests.WithLabelValues("GET", "/fail", "502")); got != 1 {
		t.Errorf("fail requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.httpInFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
}

func TestPrometheusHandler_Exposition(t *testing.T) {
	p := NewProvider(Config{})
	p.ObserveCalendar("delete", time.Millisecond, nil)

	e := echo.New()
	e.GET("/metrics", p.PrometheusHandler())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `agenda_calendar_requests_total{op="delete",outcome="ok"} 1`) {
		t.Errorf("missing calendar counter in exposition:\n%s", body)
	}
}
