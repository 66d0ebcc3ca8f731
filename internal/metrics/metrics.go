// Package metrics provides Prometheus metrics for the intake service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	MessagesTotal     *prometheus.CounterVec
	PhaseTransitions  *prometheus.CounterVec
	ReportsTotal      *prometheus.CounterVec
	IntegrationsTotal *prometheus.CounterVec
	SessionConflicts  prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_http_requests_total",
				Help: "Total HTTP requests by route and status code.",
			},
			[]string{"route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intake_http_request_duration_seconds",
				Help:    "HTTP request duration by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_messages_total",
				Help: "User messages processed by the phase they arrived in.",
			},
			[]string{"phase"},
		),
		PhaseTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_phase_transitions_total",
				Help: "Conversation phase changes.",
			},
			[]string{"from", "to"},
		),
		ReportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_reports_total",
				Help: "Report generation requests by outcome.",
			},
			[]string{"outcome"},
		),
		IntegrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_integrations_total",
				Help: "Integration deliveries by type and status.",
			},
			[]string{"type", "status"},
		),
		SessionConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "intake_session_conflicts_total",
				Help: "Optimistic concurrency conflicts on session writes.",
			},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.RequestDuration)
	reg.MustRegister(m.MessagesTotal)
	reg.MustRegister(m.PhaseTransitions)
	reg.MustRegister(m.ReportsTotal)
	reg.MustRegister(m.IntegrationsTotal)
	reg.MustRegister(m.SessionConflicts)
	reg.MustRegister(m.ErrorsTotal)

	return m
}

// Registry exposes the underlying registry (for tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest counts one HTTP request and its duration.
func (m *Metrics) RecordRequest(route, status string, seconds float64) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordMessage counts a user message handled in phase.
func (m *Metrics) RecordMessage(phase string) {
	m.MessagesTotal.WithLabelValues(phase).Inc()
}

// RecordTransition counts a phase change. Self transitions are ignored.
func (m *Metrics) RecordTransition(from, to string) {
	if from == to {
		return
	}
	m.PhaseTransitions.WithLabelValues(from, to).Inc()
}

// RecordReport counts a report generation outcome.
func (m *Metrics) RecordReport(outcome string) {
	m.ReportsTotal.WithLabelValues(outcome).Inc()
}

// RecordIntegration counts an integration delivery outcome.
func (m *Metrics) RecordIntegration(jobType, status string) {
	m.IntegrationsTotal.WithLabelValues(jobType, status).Inc()
}

// RecordConflict counts a session write conflict.
func (m *Metrics) RecordConflict() {
	m.SessionConflicts.Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}
