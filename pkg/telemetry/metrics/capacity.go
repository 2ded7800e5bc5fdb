package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ganymede/pkg/capacity"
	"mercator-hq/ganymede/pkg/config"
)

// CapacityMetrics tracks calibration runs.
//
// Metrics:
//   - calibrations_total: Calibration attempts by status
//   - calibration_duration_seconds: How long calibration runs take
//   - calibration_throughput: Throughput measured by the last successful run
type CapacityMetrics struct {
	// Calibration attempts by status (success, failure)
	calibrations *prometheus.CounterVec

	// Calibration run duration histogram
	duration prometheus.Histogram

	// Last measured throughput
	throughput prometheus.Gauge
}

// NewCapacityMetrics creates and registers calibration metrics with the
// provided registry.
func NewCapacityMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *CapacityMetrics {
	cm := &CapacityMetrics{
		calibrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "calibrations_total",
				Help:      "Calibration attempts by status",
			},
			[]string{"status"},
		),

		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "calibration_duration_seconds",
				Help:      "Duration of calibration runs in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),

		throughput: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "calibration_throughput",
				Help:      "Throughput measured by the last successful calibration, in workload units per second",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		cm.calibrations,
		cm.duration,
		cm.throughput,
	)

	return cm
}

// Record records one calibration attempt, success or failure.
func (cm *CapacityMetrics) Record(rec capacity.CalibrationRecord) {
	status := "success"
	if rec.Err != "" {
		status = "failure"
	}

	cm.calibrations.WithLabelValues(status).Inc()
	cm.duration.Observe(rec.Elapsed.Seconds())
	if rec.Err == "" {
		cm.throughput.Set(rec.Throughput)
	}
}
