package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ganymede/pkg/capacity"
	"mercator-hq/ganymede/pkg/config"
)

// Admission decision outcomes.
const (
	OutcomeAdmitted     = "admitted"
	OutcomeNotReady     = "not_ready"
	OutcomeOverCapacity = "over_capacity"
)

// Collector owns the worker's Prometheus registry and all metric groups.
//
// A nil *Collector is a valid no-op: every record method checks the
// receiver, so the components that carry one need no metrics-enabled
// branches.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	admission *AdmissionMetrics
	capacity  *CapacityMetrics
	proxy     *ProxyMetrics
	report    *ReportMetrics
}

// NewCollector creates a metrics collector with its own registry unless one
// is supplied.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = "mercator"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "ganymede"
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		admission: NewAdmissionMetrics(cfg, registry),
		capacity:  NewCapacityMetrics(cfg, registry),
		proxy:     NewProxyMetrics(cfg, registry),
		report:    NewReportMetrics(cfg, registry),
	}
}

// RegisterSources registers the scrape-time collector that reads load,
// capacity, and gate state at the moment of each scrape. Nil sources are
// skipped.
func (c *Collector) RegisterSources(ledger LedgerSource, capacitySrc CapacitySource, gate GateSource) {
	if c == nil {
		return
	}
	c.registry.MustRegister(NewSnapshotCollector(
		c.config.Namespace, c.config.Subsystem, ledger, capacitySrc, gate,
	))
}

// RecordDecision counts one admission decision by outcome.
func (c *Collector) RecordDecision(outcome string) {
	if c == nil {
		return
	}
	c.admission.RecordDecision(outcome)
}

// ObserveProjectedWait records the queue wait an admission decision
// projected. Recorded for admitted and over-capacity requests; a worker
// with no estimate projects nothing.
func (c *Collector) ObserveProjectedWait(wait time.Duration) {
	if c == nil {
		return
	}
	c.admission.ObserveProjectedWait(wait)
}

// RecordDefaultCost counts a request that carried no usable declared cost.
func (c *Collector) RecordDefaultCost() {
	if c == nil {
		return
	}
	c.admission.RecordDefaultCost()
}

// RecordCalibration records one calibration attempt. Implements
// capacity.Recorder so the estimator feeds metrics and the journal through
// the same fanout.
func (c *Collector) RecordCalibration(_ context.Context, rec capacity.CalibrationRecord) error {
	if c == nil {
		return nil
	}
	c.capacity.Record(rec)
	return nil
}

// RecordHTTPRequest records one completed proxy request.
func (c *Collector) RecordHTTPRequest(method string, status int, duration time.Duration, bytes int64) {
	if c == nil {
		return
	}
	c.proxy.RecordRequest(method, status, duration, bytes)
}

// IncInFlight marks a proxy request as started.
func (c *Collector) IncInFlight() {
	if c == nil {
		return
	}
	c.proxy.IncInFlight()
}

// DecInFlight marks a proxy request as finished.
func (c *Collector) DecInFlight() {
	if c == nil {
		return
	}
	c.proxy.DecInFlight()
}

// ObserveGateWait records how long an admitted request waited for a
// backend slot.
func (c *Collector) ObserveGateWait(wait time.Duration) {
	if c == nil {
		return
	}
	c.proxy.ObserveGateWait(wait)
}

// RecordBlocked counts a request refused by the path blocklist.
func (c *Collector) RecordBlocked(pattern string) {
	if c == nil {
		return
	}
	c.proxy.RecordBlocked(pattern)
}

// RecordReportSend records one status report delivery attempt.
func (c *Collector) RecordReportSend(success bool, duration time.Duration) {
	if c == nil {
		return
	}
	c.report.RecordSend(success, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}
