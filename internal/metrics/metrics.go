// Package metrics provides Prometheus metrics for the conversational service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	TurnsTotal     *prometheus.CounterVec
	TurnDuration   *prometheus.HistogramVec
	UpstreamErrors *prometheus.CounterVec
	SessionsActive prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qna_turns_total",
				Help: "Total processed turns by routed project and outcome.",
			},
			[]string{"project", "status"},
		),
		TurnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qna_turn_duration_seconds",
				Help:    "Turn processing duration by routed project.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"project"},
		),
		UpstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qna_upstream_errors_total",
				Help: "Collaborator call failures by service and error kind.",
			},
			[]string{"service", "kind"},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "qna_sessions_active",
				Help: "Number of live conversation sessions.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.TurnsTotal)
	reg.MustRegister(m.TurnDuration)
	reg.MustRegister(m.UpstreamErrors)
	reg.MustRegister(m.SessionsActive)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTurn increments the turn counter.
func (m *Metrics) RecordTurn(project, status string) {
	m.TurnsTotal.WithLabelValues(project, status).Inc()
}

// ObserveTurn records turn processing duration.
func (m *Metrics) ObserveTurn(project string, seconds float64) {
	m.TurnDuration.WithLabelValues(project).Observe(seconds)
}

// RecordUpstreamError increments the collaborator failure counter.
func (m *Metrics) RecordUpstreamError(service, kind string) {
	m.UpstreamErrors.WithLabelValues(service, kind).Inc()
}

// SetActiveSessions sets the live session count.
func (m *Metrics) SetActiveSessions(n float64) {
	m.SessionsActive.Set(n)
}
