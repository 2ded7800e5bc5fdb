// Package capacity estimates how much workload per second the local backend
// can sustain.
//
// # Overview
//
// Admission control needs one number: max_throughput, the backend's
// sustained rate in workload units per second. This package produces and
// owns that number.
//
// A Benchmark drives the backend with representative traffic and measures
// throughput. Two benchmarks ship with the worker:
//
//   - "completion-tokens" posts completion requests and measures generated
//     tokens per second. Suits LLM backends, where workload units are
//     tokens.
//   - "fixed" publishes a configured constant. Suits image generators,
//     rerankers, and any backend with known per-request cost, where
//     workload units are requests or pixels.
//
// Custom benchmarks implement the Benchmark interface and are handed to the
// Estimator directly.
//
// # Calibration Lifecycle
//
// The Estimator runs one calibration at a time; a second Calibrate call
// while one is in flight returns ErrCalibrationRunning rather than queueing.
// Calibration runs concurrently with live traffic: the benchmark's own
// requests drive the backend while the proxy keeps serving.
//
// A failed calibration never discards the previous estimate. Stale capacity
// is better than none; the worker keeps admitting against the old number
// and retries in the background.
//
// Until the first calibration succeeds there is no estimate at all, and
// admission fails closed (503).
//
// The Scheduler wires the Estimator to a cron expression for periodic
// recalibration and drives the initial retry loop.
package capacity
