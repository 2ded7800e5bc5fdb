// Package workload defines the load and capacity accounting primitives shared
// by every component of the worker.
//
// # Workload Units
//
// Both benchmark throughput and per-request cost are expressed in the same
// abstract workload unit (for example tokens, or percent-of-standard-job).
// Throughput is workload units per second of wall-clock time; cost is workload
// units per request. The two must share units; this is a caller contract and
// is not enforced by any type.
//
// # Capacity State
//
// CapacityState is the calibrated maximum throughput of the backend. It is
// owned by the capacity estimator, published atomically, and read-only to
// every other component. A worker without a published CapacityState must fail
// closed: no load-based admission until the first calibration succeeds.
//
// # The Ledger
//
// Ledger tracks all in-flight workload under a single mutex. Accepting a
// request reserves workload and returns a Lease; the Lease releases that exact
// reservation exactly once, no matter how many times Release is called or on
// which exit path (success, backend error, client disconnect, timeout):
//
//	lease, cur, ok := ledger.TryReserve(id, cost, fits)
//	if ok {
//	    defer lease.Release()
//	    // forward the request
//	}
//
// The mutex is held only for arithmetic and map updates, never across I/O.
package workload
