// Package metrics exposes Prometheus collectors for RAWG traffic and pager
// activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/timmy/rawgdex/internal/pager"
)

const namespace = "rawgdex"

// Metrics owns a private registry. It implements rawg.Observer and
// pager.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	pager    *prometheus.CounterVec
	inflight *prometheus.GaugeVec
	sessions prometheus.Gauge
	cache    *prometheus.CounterVec
	http     *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, plus the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rawg",
			Name:      "requests_total",
			Help:      "RAWG API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rawg",
			Name:      "request_duration_seconds",
			Help:      "RAWG API request latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		pager: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pager",
			Name:      "events_total",
			Help:      "Pager commands and responses by feed, kind and event.",
		}, []string{"feed", "kind", "event"}),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pager",
			Name:      "inflight_requests",
			Help:      "Page requests dispatched and not yet settled.",
		}, []string{"feed"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "browse",
			Name:      "sessions",
			Help:      "Open browse sessions.",
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detail",
			Name:      "cache_total",
			Help:      "Game detail cache lookups by result.",
		}, []string{"result"}),
		http: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API requests by method, route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}

	m.registry.MustRegister(
		m.requests, m.latency, m.pager, m.inflight, m.sessions, m.cache, m.http,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one finished RAWG request.
func (m *Metrics) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	m.latency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Issued records a dispatched page request.
func (m *Metrics) Issued(feed string, kind pager.RequestKind) {
	m.pager.WithLabelValues(feed, kind.String(), "issued").Inc()
	m.inflight.WithLabelValues(feed).Inc()
}

// Finished records how a command or response settled.
func (m *Metrics) Finished(feed string, kind pager.RequestKind, outcome pager.Outcome) {
	m.pager.WithLabelValues(feed, kind.String(), outcome.String()).Inc()
	switch outcome {
	case pager.OutcomeApplied, pager.OutcomeFailed, pager.OutcomeStale, pager.OutcomeClosed:
		m.inflight.WithLabelValues(feed).Dec()
	}
}

// SetSessions reports the number of open browse sessions.
func (m *Metrics) SetSessions(n int) {
	m.sessions.Set(float64(n))
}

// CacheResult counts a detail cache lookup: hit, miss, or expired.
func (m *Metrics) CacheResult(result string) {
	m.cache.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served API request. route is the matched route
// template, never the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.http.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
