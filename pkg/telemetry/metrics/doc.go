// Package metrics provides Prometheus metrics for the worker.
//
// # Overview
//
// Metrics come from two places. Event metrics (counters and histograms) are
// recorded on the request, calibration, and report paths through the
// Collector. State metrics (load, capacity, gate occupancy) are not stored
// in Prometheus at all: a scrape-time collector reads the workload ledger,
// the capacity estimate, and the gate at the moment of the scrape, so the
// exposition can never drift from the numbers admission actually uses.
//
// # Metric Groups
//
//   - Admission: decisions by outcome, projected-wait histogram,
//     default-cost substitutions
//   - Capacity: calibrations by status, calibration duration
//   - Proxy: requests by method and status class, duration, in-flight
//     count, gate wait, relayed response bytes
//   - Report: deliveries by status, delivery duration
//   - Scrape-time: current load, working requests, cumulative workload
//     counters, max throughput, calibration age, gate slots
//
// # Usage
//
//	collector := metrics.NewCollector(cfg, nil)
//	collector.RegisterSources(ledger, estimator, gate)
//	mux.Handle("/metrics", collector.Handler())
//
// A nil *Collector is a valid no-op, so components take one unconditionally
// and the caller decides whether metrics exist.
//
// # Endpoint
//
// All metrics are exposed in the standard Prometheus format under the
// configured namespace and subsystem:
//
//	# HELP mercator_ganymede_cur_load In-flight reserved workload units
//	# TYPE mercator_ganymede_cur_load gauge
//	mercator_ganymede_cur_load 220
package metrics
