// Package telemetry exposes the agenda service's Prometheus metrics: HTTP
// server traffic, calendar provider calls and discarded stale fetches.
//
// All recording methods are nil-safe so domain code can run without a
// provider in tests.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls the provider.
type Config struct {
	Namespace string
	// IncludeRuntime registers the Go and process collectors.
	IncludeRuntime bool
}

func (c *Config) applyDefaults() {
	if c.Namespace == "" {
		c.Namespace = "agenda"
	}
}

var (
	defaultDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	calendarBuckets        = []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30}
)

// Outcome labels for calendar operations.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Provider owns a private registry and the metric vectors registered on it.
type Provider struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	httpInFlight   prometheus.Gauge
	calendarCalls  *prometheus.CounterVec
	calendarTiming *prometheus.HistogramVec
	staleDiscarded prometheus.Counter
	busyRejected   *prometheus.CounterVec
	dbPoolConns    *prometheus.GaugeVec
}

// NewProvider builds and registers every metric.
func NewProvider(cfg Config) *Provider {
	cfg.applyDefaults()
	reg := prometheus.NewRegistry()
	ns := cfg.Namespace

	p := &Provider{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests served, by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency.", Buckets: defaultDurationBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: "http", Name: "active_requests",
			Help: "Requests currently being served.",
		}),
		calendarCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "calendar", Name: "requests_total",
			Help: "Calendar provider calls, by operation and outcome.",
		}, []string{"op", "outcome"}),
		calendarTiming: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "calendar", Name: "request_duration_seconds",
			Help: "Calendar provider call latency.", Buckets: calendarBuckets,
		}, []string{"op"}),
		staleDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "agenda", Name: "stale_responses_discarded_total",
			Help: "Fetch responses dropped because a newer navigation was issued.",
		}),
		busyRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "agenda", Name: "busy_rejections_total",
			Help: "Actions rejected because the same action was in flight.",
		}, []string{"action"}),
		dbPoolConns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: "db", Name: "pool_connections",
			Help: "Database pool connections by state.",
		}, []string{"state"}),
	}

	reg.MustRegister(
		p.httpRequests, p.httpDuration, p.httpInFlight,
		p.calendarCalls, p.calendarTiming,
		p.staleDiscarded, p.busyRejected, p.dbPoolConns,
	)
	if cfg.IncludeRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return p
}

// Registry returns the underlying registry.
func (p *Provider) Registry() *prometheus.Registry {
	return p.registry
}

// ObserveCalendar records one provider call.
func (p *Provider) ObserveCalendar(op string, elapsed time.Duration, err error) {
	if p == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	p.calendarCalls.WithLabelValues(op, outcome).Inc()
	p.calendarTiming.WithLabelValues(op).Observe(elapsed.Seconds())
}

// StaleDiscarded counts a fetch response that arrived after a newer one was issued.
func (p *Provider) StaleDiscarded() {
	if p == nil {
		return
	}
	p.staleDiscarded.Inc()
}

// BusyRejected counts a duplicate submission.
func (p *Provider) BusyRejected(action string) {
	if p == nil {
		return
	}
	p.busyRejected.WithLabelValues(action).Inc()
}

// SetDBPool publishes the pool's connection counts.
func (p *Provider) SetDBPool(total, idle int32) {
	if p == nil {
		return
	}
	p.dbPoolConns.WithLabelValues("total").Set(float64(total))
	p.dbPoolConns.WithLabelValues("idle").Set(float64(idle))
}

// MetricsMiddleware returns an Echo middleware that records HTTP server metrics.
func (p *Provider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p.httpInFlight.Inc()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			p.httpInFlight.Dec()
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)
			p.httpRequests.WithLabelValues(method, route, status).Inc()
			p.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// PrometheusHandler serves the registry in the text exposition format.
func (p *Provider) PrometheusHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
}
