package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ganymede/pkg/config"
)

// AdmissionMetrics tracks admission control decisions.
//
// Metrics:
//   - admission_decisions_total: Decision count by outcome
//   - admission_projected_wait_seconds: Projected queue wait at decision time
//   - admission_default_cost_total: Requests without a usable declared cost
type AdmissionMetrics struct {
	// Decision count by outcome (admitted, not_ready, over_capacity)
	decisions *prometheus.CounterVec

	// Projected queue wait histogram
	projectedWait prometheus.Histogram

	// Default-cost substitution counter
	defaultCost prometheus.Counter
}

// NewAdmissionMetrics creates and registers admission metrics with the
// provided registry.
func NewAdmissionMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *AdmissionMetrics {
	am := &AdmissionMetrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "admission_decisions_total",
				Help:      "Admission decisions by outcome",
			},
			[]string{"outcome"},
		),

		projectedWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "admission_projected_wait_seconds",
				Help:      "Queue wait projected at the admission decision",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		defaultCost: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "admission_default_cost_total",
				Help:      "Requests admitted with the configured default cost substituted",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		am.decisions,
		am.projectedWait,
		am.defaultCost,
	)

	return am
}

// RecordDecision counts one admission decision by outcome.
func (am *AdmissionMetrics) RecordDecision(outcome string) {
	am.decisions.WithLabelValues(outcome).Inc()
}

// ObserveProjectedWait records a projected queue wait.
func (am *AdmissionMetrics) ObserveProjectedWait(wait time.Duration) {
	am.projectedWait.Observe(wait.Seconds())
}

// RecordDefaultCost counts one default-cost substitution.
func (am *AdmissionMetrics) RecordDefaultCost() {
	am.defaultCost.Inc()
}
