package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ganymede/pkg/config"
)

// ProxyMetrics tracks the traffic path.
//
// Metrics:
//   - requests_total: Completed requests by method and status class
//   - request_duration_seconds: Request duration from arrival to relay end
//   - in_flight_requests: Requests currently inside the proxy
//   - gate_wait_seconds: Time admitted requests waited for a backend slot
//   - response_bytes_total: Response bytes relayed to clients
//   - blocked_requests_total: Requests refused by the path blocklist
type ProxyMetrics struct {
	// Completed requests by method and status class
	requests *prometheus.CounterVec

	// Request duration histogram by status class
	duration *prometheus.HistogramVec

	// Requests currently inside the proxy
	inFlight prometheus.Gauge

	// Backend slot wait histogram
	gateWait prometheus.Histogram

	// Relayed response bytes
	responseBytes prometheus.Counter

	// Blocklist refusals by pattern
	blocked *prometheus.CounterVec
}

// NewProxyMetrics creates and registers proxy metrics with the provided
// registry.
func NewProxyMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *ProxyMetrics {
	pm := &ProxyMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Completed proxy requests by method and status class",
			},
			[]string{"method", "status_class"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Request duration from arrival to relay end in seconds",
				// Generation streams run long; the upper buckets cover
				// multi-minute relays.
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status_class"},
		),

		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "in_flight_requests",
				Help:      "Requests currently inside the proxy, including ones that will be refused",
			},
		),

		gateWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "gate_wait_seconds",
				Help:      "Time admitted requests waited for a backend slot",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		),

		responseBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "response_bytes_total",
				Help:      "Response bytes relayed to clients",
			},
		),

		blocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "blocked_requests_total",
				Help:      "Requests refused by the path blocklist, by matching pattern",
			},
			[]string{"pattern"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		pm.requests,
		pm.duration,
		pm.inFlight,
		pm.gateWait,
		pm.responseBytes,
		pm.blocked,
	)

	return pm
}

// RecordRequest records one completed request.
func (pm *ProxyMetrics) RecordRequest(method string, status int, duration time.Duration, bytes int64) {
	class := statusClass(status)

	pm.requests.WithLabelValues(method, class).Inc()
	pm.duration.WithLabelValues(class).Observe(duration.Seconds())
	if bytes > 0 {
		pm.responseBytes.Add(float64(bytes))
	}
}

// IncInFlight marks a request as started.
func (pm *ProxyMetrics) IncInFlight() {
	pm.inFlight.Inc()
}

// DecInFlight marks a request as finished.
func (pm *ProxyMetrics) DecInFlight() {
	pm.inFlight.Dec()
}

// ObserveGateWait records a backend slot wait.
func (pm *ProxyMetrics) ObserveGateWait(wait time.Duration) {
	pm.gateWait.Observe(wait.Seconds())
}

// RecordBlocked counts a blocklist refusal. Patterns come from
// configuration, so the label cardinality is bounded.
func (pm *ProxyMetrics) RecordBlocked(pattern string) {
	pm.blocked.WithLabelValues(pattern).Inc()
}

// statusClass folds an HTTP status code into its class ("2xx", "4xx", ...).
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return fmt.Sprintf("%dxx", status/100)
}
