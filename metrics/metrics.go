// Package metrics holds the Prometheus collectors for HTTP traffic, the
// realtime hub and the background jobs.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "checked"

type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestsToday   prometheus.Gauge
	RateLimited     *prometheus.CounterVec

	// Realtime
	WebsocketConnections prometheus.Gauge

	// Background jobs
	AutomationRuns       *prometheus.CounterVec
	ResultsAutoDetected  prometheus.Counter
	ForfeitsProcessed    prometheus.Counter
	RoundsGenerated      prometheus.Counter
	TournamentsFinalized prometheus.Counter
	RatingSyncs          *prometheus.CounterVec

	// Notifications
	NotificationsSent *prometheus.CounterVec

	registry *prometheus.Registry
	today    dailyCounter
}

type dailyCounter struct {
	mu  sync.Mutex
	day string
	n   int64
}

func (d *dailyCounter) inc(now time.Time) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	day := now.UTC().Format("2006-01-02")
	if day != d.day {
		d.day, d.n = day, 0
	}
	d.n++
	return d.n
}

func (d *dailyCounter) value(now time.Time) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if now.UTC().Format("2006-01-02") != d.day {
		return 0
	}
	return d.n
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),

		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP request processing",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		RequestsToday: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_today",
				Help:      "HTTP requests served since midnight UTC",
			},
		),

		RateLimited: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),

		WebsocketConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "websocket_connections",
				Help:      "Currently connected websocket clients",
			},
		),

		AutomationRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "automation_runs_total",
				Help:      "Tournament automation passes by outcome",
			},
			[]string{"outcome"},
		),

		ResultsAutoDetected: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "automation_results_detected_total",
				Help:      "Game results picked up from chess.com archives",
			},
		),

		ForfeitsProcessed: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "automation_forfeits_total",
				Help:      "Pairings forfeited after their deadline",
			},
		),

		RoundsGenerated: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rounds_generated_total",
				Help:      "Rounds paired, manually or by automation",
			},
		),

		TournamentsFinalized: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tournaments_finalized_total",
				Help:      "Tournaments completed with final ranks",
			},
		),

		RatingSyncs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rating_syncs_total",
				Help:      "Player rating refreshes by outcome",
			},
			[]string{"outcome"},
		),

		NotificationsSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_sent_total",
				Help:      "Notifications delivered by channel and outcome",
			},
			[]string{"channel", "outcome"},
		),
	}
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
	m.RequestsToday.Set(float64(m.today.inc(time.Now())))
}

// TotalRequestsToday is the number of requests observed since midnight UTC.
func (m *Metrics) TotalRequestsToday() int64 {
	return m.today.value(time.Now())
}

func (m *Metrics) Outcome(vec *prometheus.CounterVec, err error, labels ...string) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	vec.WithLabelValues(append(labels, outcome)...).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
