package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ganymede/pkg/workload"
)

// LedgerSource exposes the workload ledger to the scrape-time collector.
type LedgerSource interface {
	Snapshot() workload.Snapshot
}

// CapacitySource exposes the capacity estimate.
type CapacitySource interface {
	Current() (*workload.CapacityState, bool)
}

// GateSource exposes backend gate occupancy.
type GateSource interface {
	InUse() int
	Capacity() int
}

// SnapshotCollector exports load, capacity, and gate state read at scrape
// time. Nothing is stored in Prometheus between scrapes: the exposition
// always matches the state admission decisions are made against.
type SnapshotCollector struct {
	ledger   LedgerSource
	capacity CapacitySource
	gate     GateSource

	curLoad        *prometheus.Desc
	working        *prometheus.Desc
	received       *prometheus.Desc
	acceptedLoad   *prometheus.Desc
	completedLoad  *prometheus.Desc
	rejectedLoad   *prometheus.Desc
	maxThroughput  *prometheus.Desc
	calibrated     *prometheus.Desc
	calibrationAge *prometheus.Desc
	gateInUse      *prometheus.Desc
	gateSlots      *prometheus.Desc
}

// NewSnapshotCollector creates a scrape-time collector. Nil sources are
// skipped at collection.
func NewSnapshotCollector(namespace, subsystem string, ledger LedgerSource, capacity CapacitySource, gate GateSource) *SnapshotCollector {
	name := func(n string) string {
		return prometheus.BuildFQName(namespace, subsystem, n)
	}

	return &SnapshotCollector{
		ledger:   ledger,
		capacity: capacity,
		gate:     gate,

		curLoad: prometheus.NewDesc(name("cur_load"),
			"In-flight reserved workload units", nil, nil),
		working: prometheus.NewDesc(name("working_requests"),
			"In-flight admitted requests", nil, nil),
		received: prometheus.NewDesc(name("requests_received_total"),
			"Requests ever submitted to admission", nil, nil),
		acceptedLoad: prometheus.NewDesc(name("accepted_workload_total"),
			"Workload units ever reserved", nil, nil),
		completedLoad: prometheus.NewDesc(name("completed_workload_total"),
			"Workload units ever released", nil, nil),
		rejectedLoad: prometheus.NewDesc(name("rejected_workload_total"),
			"Workload units rejected for capacity reasons", nil, nil),
		maxThroughput: prometheus.NewDesc(name("max_throughput"),
			"Calibrated maximum throughput in workload units per second", nil, nil),
		calibrated: prometheus.NewDesc(name("calibrated"),
			"Whether a capacity estimate exists (1) or admission refuses everything (0)", nil, nil),
		calibrationAge: prometheus.NewDesc(name("calibration_age_seconds"),
			"Seconds since the current capacity estimate was measured", nil, nil),
		gateInUse: prometheus.NewDesc(name("gate_slots_in_use"),
			"Backend slots currently held", nil, nil),
		gateSlots: prometheus.NewDesc(name("gate_slots"),
			"Configured backend slots, 0 when unbounded", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (sc *SnapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- sc.curLoad
	ch <- sc.working
	ch <- sc.received
	ch <- sc.acceptedLoad
	ch <- sc.completedLoad
	ch <- sc.rejectedLoad
	ch <- sc.maxThroughput
	ch <- sc.calibrated
	ch <- sc.calibrationAge
	ch <- sc.gateInUse
	ch <- sc.gateSlots
}

// Collect implements prometheus.Collector.
func (sc *SnapshotCollector) Collect(ch chan<- prometheus.Metric) {
	if sc.ledger != nil {
		snap := sc.ledger.Snapshot()
		ch <- prometheus.MustNewConstMetric(sc.curLoad, prometheus.GaugeValue, snap.CurLoad)
		ch <- prometheus.MustNewConstMetric(sc.working, prometheus.GaugeValue, float64(snap.NumWorking))
		ch <- prometheus.MustNewConstMetric(sc.received, prometheus.CounterValue, float64(snap.NumReceived))
		ch <- prometheus.MustNewConstMetric(sc.acceptedLoad, prometheus.CounterValue, snap.AcceptedTotal)
		ch <- prometheus.MustNewConstMetric(sc.completedLoad, prometheus.CounterValue, snap.CompletedTotal)
		ch <- prometheus.MustNewConstMetric(sc.rejectedLoad, prometheus.CounterValue, snap.RejLoad)
	}

	if sc.capacity != nil {
		state, ok := sc.capacity.Current()
		if ok {
			ch <- prometheus.MustNewConstMetric(sc.calibrated, prometheus.GaugeValue, 1)
			ch <- prometheus.MustNewConstMetric(sc.maxThroughput, prometheus.GaugeValue, state.MaxThroughput)
			ch <- prometheus.MustNewConstMetric(sc.calibrationAge, prometheus.GaugeValue,
				time.Since(state.CalibratedAt).Seconds())
		} else {
			ch <- prometheus.MustNewConstMetric(sc.calibrated, prometheus.GaugeValue, 0)
		}
	}

	if sc.gate != nil {
		ch <- prometheus.MustNewConstMetric(sc.gateInUse, prometheus.GaugeValue, float64(sc.gate.InUse()))
		ch <- prometheus.MustNewConstMetric(sc.gateSlots, prometheus.GaugeValue, float64(sc.gate.Capacity()))
	}
}
