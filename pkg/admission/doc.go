// Package admission implements workload-based admission control.
//
// Every proxied request declares a workload cost in abstract workload units.
// The controller projects the queue wait the request would experience if
// admitted:
//
//	projected_wait = (cur_load + cost) / max_throughput
//
// where cur_load is the sum of all in-flight reservations and max_throughput
// is the calibrated backend capacity in workload units per second. Requests
// whose projected wait exceeds the configured ceiling are rejected with
// OverCapacityError; requests arriving before a first successful calibration
// are rejected with NotReadyError.
//
// The check-and-reserve step is a single atomic operation on the workload
// ledger: two requests racing for the last slice of capacity can never both
// be admitted against the same observed load.
//
// Accepted requests hold a workload.Lease that must be released on every
// exit path; release is idempotent, so the deferred release in the proxy and
// the stream-completion release cannot double-free capacity.
package admission
