package workload

import (
	"time"
)

// CapacityState is the result of one successful calibration run. It is
// replaced wholesale on recalibration and never mutated in place.
type CapacityState struct {
	// MaxThroughput is the calibrated maximum throughput of the backend,
	// in workload units per second. Always > 0 for a published state.
	MaxThroughput float64

	// CalibratedAt is when the calibration run finished.
	CalibratedAt time.Time

	// Source is the name of the benchmark that produced this state.
	Source string
}

// Snapshot is a point-in-time copy of the ledger, safe to read without
// holding any lock. WorkingRequestIDs is sorted for deterministic output.
type Snapshot struct {
	// CurLoad is the sum of reserved workloads of all in-flight requests.
	CurLoad float64

	// NumWorking is the number of in-flight requests.
	NumWorking int

	// NumReceived is the cumulative number of requests submitted to
	// admission. Monotonic.
	NumReceived int64

	// RejLoad is the cumulative workload rejected for capacity reasons.
	RejLoad float64

	// AcceptedTotal is the cumulative workload ever reserved.
	AcceptedTotal float64

	// CompletedTotal is the cumulative workload ever released.
	CompletedTotal float64

	// WorkingRequestIDs lists the ids of all in-flight requests.
	WorkingRequestIDs []string
}
