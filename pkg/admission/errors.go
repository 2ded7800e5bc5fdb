package admission

import (
	"fmt"
	"time"
)

// NotReadyError reports that the worker has no calibrated capacity and is
// failing closed. Mapped to HTTP 503 by the proxy.
type NotReadyError struct {
	// Reason describes why no capacity estimate exists.
	Reason string
}

// Error implements the error interface.
func (e *NotReadyError) Error() string {
	return fmt.Sprintf("worker not ready: %s", e.Reason)
}

// OverCapacityError reports that admitting the request would push the
// projected queue wait past the configured ceiling. Mapped to HTTP 429 by
// the proxy.
type OverCapacityError struct {
	// Cost is the effective workload cost of the rejected request.
	Cost float64

	// CurLoad is the in-flight workload at the decision instant.
	CurLoad float64

	// ProjectedWait is the queue wait admitting the request would have
	// produced.
	ProjectedWait time.Duration

	// MaxWait is the configured ceiling the projection exceeded.
	MaxWait time.Duration

	// RetryAfter estimates how long until this request would fit, assuming
	// the backend drains at calibrated throughput and nothing new arrives.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *OverCapacityError) Error() string {
	return fmt.Sprintf("over capacity: projected wait %s exceeds ceiling %s (load %.1f, cost %.1f)",
		e.ProjectedWait.Round(time.Millisecond), e.MaxWait, e.CurLoad, e.Cost)
}
