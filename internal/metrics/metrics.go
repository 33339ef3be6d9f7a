// Package metrics instruments the planning engine with Prometheus.
//
// All observation methods are safe to call on a nil *Metrics, so
// components take an optional *Metrics and never check for nil.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for planning runs.
type Metrics struct {
	registry *prometheus.Registry

	// Terminal run outcomes by state and blocked reason
	RunOutcome *prometheus.CounterVec

	// Knowledge lookup latencies by collaborator and result
	LookupLatency *prometheus.HistogramVec

	// Repair iterations spent per run
	RepairIterations prometheus.Histogram

	// Coverage gate verdicts by mode
	CoverageVerdict *prometheus.CounterVec

	// Full run latency, normalization through plan
	RunLatency prometheus.Histogram
}

// New creates a Metrics instance registered on its own registry, so
// several engines (and tests) can coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RunOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "propgate_run_outcomes_total",
			Help: "Terminal planning run outcomes by state and blocked reason",
		}, []string{"state", "reason"}),

		LookupLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "propgate_lookup_duration_seconds",
			Help:    "Duration of knowledge collaborator lookups",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"collaborator", "result"}), // result: "hit", "miss", "timeout", "error"

		RepairIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "propgate_repair_iterations",
			Help:    "Repair iterations spent by a planning run",
			Buckets: []float64{0, 1, 2, 3, 5, 8},
		}),

		CoverageVerdict: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "propgate_coverage_verdicts_total",
			Help: "Coverage gate verdicts by coverage mode",
		}, []string{"mode", "verdict"}),

		RunLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "propgate_run_duration_seconds",
			Help:    "Duration of a full planning run",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
	}
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncrementRunOutcome records a terminal run state.
func (m *Metrics) IncrementRunOutcome(state, reason string) {
	if m != nil {
		m.RunOutcome.WithLabelValues(state, reason).Inc()
	}
}

// ObserveLookup records one collaborator lookup.
func (m *Metrics) ObserveLookup(collaborator, result string, d time.Duration) {
	if m != nil {
		m.LookupLatency.WithLabelValues(collaborator, result).Observe(d.Seconds())
	}
}

// ObserveRepairIterations records how many repair iterations a run used.
func (m *Metrics) ObserveRepairIterations(n int) {
	if m != nil {
		m.RepairIterations.Observe(float64(n))
	}
}

// IncrementCoverageVerdict records a coverage gate verdict.
func (m *Metrics) IncrementCoverageVerdict(mode, verdict string) {
	if m != nil {
		m.CoverageVerdict.WithLabelValues(mode, verdict).Inc()
	}
}

// ObserveRunLatency records a full run duration.
func (m *Metrics) ObserveRunLatency(d time.Duration) {
	if m != nil {
		m.RunLatency.Observe(d.Seconds())
	}
}
