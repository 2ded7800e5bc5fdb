package report

// ProtocolVersion is the status report wire version expected by the
// autoscaler.
const ProtocolVersion = 1

// StatusReport is one status payload sent to the fleet autoscaler. Every
// field is always present; load and capacity fields are zero before the
// first calibration.
type StatusReport struct {
	// ID identifies this worker instance.
	ID string `json:"id"`

	// MToken is the master token issued to this worker.
	MToken string `json:"mtoken"`

	// Version is the report protocol version.
	Version int `json:"version"`

	// LoadTime is the measured time-to-ready in seconds.
	LoadTime float64 `json:"loadtime"`

	// NewLoad is the workload accepted since the last successful report.
	NewLoad float64 `json:"new_load"`

	// CurLoad is the in-flight workload right now.
	CurLoad float64 `json:"cur_load"`

	// RejLoad is the cumulative workload rejected for capacity reasons.
	RejLoad float64 `json:"rej_load"`

	// MaxPerf is the calibrated maximum throughput, workload units per
	// second.
	MaxPerf float64 `json:"max_perf"`

	// CurPerf is the workload completed per second since the last
	// successful report.
	CurPerf float64 `json:"cur_perf"`

	// ErrorMsg carries the terminal error on a fatal exit, empty otherwise.
	ErrorMsg string `json:"error_msg"`

	// NumRequestsWorking is the in-flight request count.
	NumRequestsWorking int `json:"num_requests_working"`

	// NumRequestsReceived is the cumulative count of requests submitted to
	// admission.
	NumRequestsReceived int64 `json:"num_requests_received"`

	// AdditionalDiskUsage is the measured size of the worker data
	// directory, in bytes.
	AdditionalDiskUsage int64 `json:"additional_disk_usage"`

	// WorkingRequestIDs lists the ids of in-flight requests, sorted.
	WorkingRequestIDs []string `json:"working_request_ids"`

	// CurCapacity is the remaining admitting headroom:
	// max(0, max_capacity - cur_load).
	CurCapacity float64 `json:"cur_capacity"`

	// MaxCapacity is the total workload the admission window holds:
	// max_perf x max_wait_time.
	MaxCapacity float64 `json:"max_capacity"`

	// URL is this worker's externally reachable URL.
	URL string `json:"url"`
}
