// Package observability holds the Prometheus metric set for the service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters and histograms the verification flow records.
type Metrics struct {
	ObservationsCreated prometheus.Counter
	ClaimsSubmitted     *prometheus.CounterVec // labels: verdict
	VotesCast           *prometheus.CounterVec // labels: direction
	SwarmReports        prometheus.Counter
	SwarmAlerts         prometheus.Counter

	RequestDuration *prometheus.HistogramVec // labels: method, path, status
}

// New creates and registers all service metrics with the given registerer.
// Passing prometheus.DefaultRegisterer wires the standard /metrics endpoint;
// tests pass a throwaway registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ObservationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raincast",
			Name:      "observations_created_total",
			Help:      "Total observations appended to the store.",
		}),
		ClaimsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raincast",
			Name:      "claims_submitted_total",
			Help:      "Total claim submissions by validator verdict.",
		}, []string{"verdict"}),
		VotesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raincast",
			Name:      "votes_cast_total",
			Help:      "Total accepted community votes by direction.",
		}, []string{"direction"}),
		SwarmReports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raincast",
			Name:      "swarm_reports_total",
			Help:      "Total peer swarm reports received.",
		}),
		SwarmAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raincast",
			Name:      "swarm_alerts_total",
			Help:      "Total swarms that reached the alert threshold.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "raincast",
			Name:      "http_request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "path", "status"}),
	}

	reg.MustRegister(
		m.ObservationsCreated,
		m.ClaimsSubmitted,
		m.VotesCast,
		m.SwarmReports,
		m.SwarmAlerts,
		m.RequestDuration,
	)
	return m
}

// RecordRequest observes a completed HTTP request. The path label should be
// the route pattern, not the raw URL, to keep cardinality bounded.
func (m *Metrics) RecordRequest(method, path, status string, duration time.Duration) {
	m.RequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
