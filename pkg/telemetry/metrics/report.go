package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ganymede/pkg/config"
)

// ReportMetrics tracks status report delivery.
//
// Metrics:
//   - report_sends_total: Delivery attempts by status
//   - report_send_duration_seconds: Delivery duration
type ReportMetrics struct {
	// Delivery attempts by status (success, failure)
	sends *prometheus.CounterVec

	// Delivery duration histogram
	duration prometheus.Histogram
}

// NewReportMetrics creates and registers report metrics with the provided
// registry.
func NewReportMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *ReportMetrics {
	rm := &ReportMetrics{
		sends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "report_sends_total",
				Help:      "Status report delivery attempts by status",
			},
			[]string{"status"},
		),

		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "report_send_duration_seconds",
				Help:      "Status report delivery duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		rm.sends,
		rm.duration,
	)

	return rm
}

// RecordSend records one delivery attempt.
func (rm *ReportMetrics) RecordSend(success bool, duration time.Duration) {
	status := "failure"
	if success {
		status = "success"
	}

	rm.sends.WithLabelValues(status).Inc()
	rm.duration.Observe(duration.Seconds())
}
