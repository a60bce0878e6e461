// Package metrics exposes resolver counters and latencies in Prometheus form.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds one resolver's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Decision outcomes by status and stage
	Outcomes *prometheus.CounterVec

	// Cache lookups by partition and result (hit, miss)
	CacheLookups *prometheus.CounterVec

	// Collaborator call latency by collaborator (oracle, live_source)
	CollaboratorLatency *prometheus.HistogramVec

	// Failed collaborator calls by collaborator
	CollaboratorFailures *prometheus.CounterVec

	// Whole resolution latency
	ResolveLatency prometheus.Histogram
}

// New creates a Metrics instance registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modanalyzer_decision_outcomes_total",
			Help: "Total decision outcomes by status and resolving stage",
		}, []string{"status", "stage"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modanalyzer_cache_lookups_total",
			Help: "Cache lookups by partition and result",
		}, []string{"partition", "result"}),

		CollaboratorLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "modanalyzer_collaborator_duration_seconds",
			Help:    "Duration of external collaborator calls",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"collaborator"}),

		CollaboratorFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modanalyzer_collaborator_failures_total",
			Help: "Failed or timed out external collaborator calls",
		}, []string{"collaborator"}),

		ResolveLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "modanalyzer_resolve_duration_seconds",
			Help:    "Duration of a full resolution",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 20},
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncrementOutcome records a final decision.
func (m *Metrics) IncrementOutcome(status, stage string) {
	if m != nil {
		m.Outcomes.WithLabelValues(status, stage).Inc()
	}
}

// ObserveCacheLookup records a hit or miss on partition.
func (m *Metrics) ObserveCacheLookup(partition string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(partition, result).Inc()
}

// ObserveCollaborator records a collaborator call and counts it as failed when err is set.
func (m *Metrics) ObserveCollaborator(name string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.CollaboratorLatency.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		m.CollaboratorFailures.WithLabelValues(name).Inc()
	}
}

// ObserveResolve records the total duration of one resolution.
func (m *Metrics) ObserveResolve(d time.Duration) {
	if m != nil {
		m.ResolveLatency.Observe(d.Seconds())
	}
}

// WriteTextfile writes the registry in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
