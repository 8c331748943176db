package infra

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application's prometheus collectors. A dedicated
// registry keeps tests free of duplicate-registration panics.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	JobsTotal    *prometheus.CounterVec
	ANAFCalls    *prometheus.CounterVec
	BreakerState *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "documentiulia",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "documentiulia",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "documentiulia",
			Name:      "jobs_total",
			Help:      "Background jobs by type and outcome.",
		}, []string{"type", "outcome"}),
		ANAFCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "documentiulia",
			Name:      "anaf_calls_total",
			Help:      "Calls to ANAF SPV by operation and outcome.",
		}, []string{"operation", "outcome"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "documentiulia",
			Name:      "circuit_breaker_state",
			Help:      "0 closed, 1 open, 2 half-open.",
		}, []string{"breaker"}),
	}
	m.Registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.HTTPRequests, m.HTTPDuration, m.JobsTotal, m.ANAFCalls, m.BreakerState,
	)
	return m
}

// ObserveBreaker matches CircuitBreakerConfig.OnStateChange.
func (m *Metrics) ObserveBreaker(name string, _, to CBState) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(to))
}

// Job records a worker outcome ("ok", "retry", "dead").
func (m *Metrics) Job(jobType, outcome string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(jobType, outcome).Inc()
}

// ANAF records one SPV call ("ok", "error", "rejected").
func (m *Metrics) ANAF(operation, outcome string) {
	if m == nil {
		return
	}
	m.ANAFCalls.WithLabelValues(operation, outcome).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
