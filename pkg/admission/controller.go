package admission

import (
	"log/slog"
	"time"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/workload"
)

// CapacitySource provides the current calibrated backend capacity.
// The second return is false until a first calibration has succeeded.
type CapacitySource interface {
	Current() (*workload.CapacityState, bool)
}

// Decision is the outcome of an accepted admission.
type Decision struct {
	// Lease is the held reservation. The caller owns its release.
	Lease *workload.Lease

	// Cost is the effective workload cost, after any default-cost
	// substitution.
	Cost float64

	// CurLoad is the in-flight workload the decision saw, excluding this
	// request.
	CurLoad float64

	// ProjectedWait is the queue wait projected for this request at the
	// decision instant.
	ProjectedWait time.Duration

	// Throughput is the calibrated capacity the projection used.
	Throughput float64
}

// Controller makes admission decisions against the workload ledger.
type Controller struct {
	ledger      *workload.Ledger
	capacity    CapacitySource
	maxWait     time.Duration
	defaultCost float64
	logger      *slog.Logger
}

// New creates an admission controller.
func New(ledger *workload.Ledger, capacity CapacitySource, cfg config.AdmissionConfig) *Controller {
	return &Controller{
		ledger:      ledger,
		capacity:    capacity,
		maxWait:     cfg.MaxWaitTime,
		defaultCost: cfg.DefaultCost,
		logger:      slog.Default().With("component", "admission.controller"),
	}
}

// Admit decides whether a request with the declared workload cost may
// proceed. On acceptance the returned decision holds a live reservation;
// callers must release it on every exit path. On rejection the error is a
// *NotReadyError or *OverCapacityError.
//
// Every call counts toward the received-requests counter, accepted or not.
// Admit never blocks: the decision is a mutex-guarded arithmetic check.
func (c *Controller) Admit(requestID string, declaredCost float64) (*Decision, error) {
	c.ledger.IncReceived()

	cost := c.effectiveCost(declaredCost)

	state, ok := c.capacity.Current()
	if !ok || state.MaxThroughput <= 0 {
		c.logger.Warn("rejecting request before calibration",
			"request_id", requestID,
			"cost", cost,
		)
		return nil, &NotReadyError{Reason: "backend capacity not calibrated"}
	}

	maxWaitSec := c.maxWait.Seconds()

	// The projection runs under the ledger mutex so that two requests
	// racing for the last slice of capacity never both see the same load.
	var projectedSec float64
	lease, loadAt, accepted := c.ledger.TryReserve(requestID, cost, func(curLoad float64) bool {
		projectedSec = (curLoad + cost) / state.MaxThroughput
		return projectedSec <= maxWaitSec
	})

	projected := secondsToDuration(projectedSec)

	if !accepted {
		retryAfter := secondsToDuration(projectedSec - maxWaitSec)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		c.logger.Info("request rejected over capacity",
			"request_id", requestID,
			"cost", cost,
			"cur_load", loadAt,
			"projected_wait", projected,
			"max_wait", c.maxWait,
		)
		return nil, &OverCapacityError{
			Cost:          cost,
			CurLoad:       loadAt,
			ProjectedWait: projected,
			MaxWait:       c.maxWait,
			RetryAfter:    retryAfter,
		}
	}

	c.logger.Debug("request admitted",
		"request_id", requestID,
		"cost", cost,
		"cur_load", loadAt+cost,
		"projected_wait", projected,
	)
	return &Decision{
		Lease:         lease,
		Cost:          cost,
		CurLoad:       loadAt,
		ProjectedWait: projected,
		Throughput:    state.MaxThroughput,
	}, nil
}

// effectiveCost applies the default-cost substitution. Declared costs of
// zero or one mean the caller set no meaningful cost; when a default is
// configured it takes their place. Negative costs are treated as zero.
func (c *Controller) effectiveCost(declared float64) float64 {
	if declared < 0 {
		declared = 0
	}
	if c.defaultCost > 0 && declared <= 1 {
		return c.defaultCost
	}
	return declared
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
