package admission

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/workload"
)

// staticCapacity is a CapacitySource pinned to a fixed state.
type staticCapacity struct {
	state *workload.CapacityState
	ok    bool
}

func (s *staticCapacity) Current() (*workload.CapacityState, bool) {
	return s.state, s.ok
}

func calibrated(throughput float64) *staticCapacity {
	return &staticCapacity{
		state: &workload.CapacityState{
			MaxThroughput: throughput,
			CalibratedAt:  time.Now(),
			Source:        "static",
		},
		ok: true,
	}
}

func uncalibrated() *staticCapacity {
	return &staticCapacity{ok: false}
}

func newController(capacity CapacitySource, maxWait time.Duration, defaultCost float64) (*Controller, *workload.Ledger) {
	ledger := workload.NewLedger()
	ctrl := New(ledger, capacity, config.AdmissionConfig{
		MaxWaitTime: maxWait,
		DefaultCost: defaultCost,
	})
	return ctrl, ledger
}

func approxSeconds(t *testing.T, got time.Duration, wantSec float64) {
	t.Helper()
	if math.Abs(got.Seconds()-wantSec) > 0.01 {
		t.Errorf("expected ~%.2fs, got %v", wantSec, got)
	}
}

// ============================================================================
// Projected-wait decisions
// ============================================================================

func TestAdmit_RejectsWhenProjectedWaitExceedsCeiling(t *testing.T) {
	// Throughput 6.67 units/sec, empty worker, ceiling 10s. A 100-unit
	// request projects to ~15s and must bounce.
	ctrl, ledger := newController(calibrated(6.67), 10*time.Second, 0)

	_, err := ctrl.Admit("req-1", 100)
	if err == nil {
		t.Fatal("expected over-capacity rejection")
	}

	var overCap *OverCapacityError
	if !errors.As(err, &overCap) {
		t.Fatalf("expected *OverCapacityError, got %T: %v", err, err)
	}
	approxSeconds(t, overCap.ProjectedWait, 15.0)
	if overCap.Cost != 100 {
		t.Errorf("expected cost 100 in error, got %v", overCap.Cost)
	}

	snap := ledger.Snapshot()
	if snap.CurLoad != 0 {
		t.Errorf("expected rejection to leave load untouched, got %v", snap.CurLoad)
	}
	if snap.RejLoad != 100 {
		t.Errorf("expected rejected load 100, got %v", snap.RejLoad)
	}
}

func TestAdmit_AcceptsWhenProjectedWaitFits(t *testing.T) {
	// Same worker, 50-unit request: ~7.5s projected, under the 10s ceiling.
	ctrl, ledger := newController(calibrated(6.67), 10*time.Second, 0)

	dec, err := ctrl.Admit("req-1", 50)
	if err != nil {
		t.Fatalf("expected acceptance, got: %v", err)
	}
	defer dec.Lease.Release()

	approxSeconds(t, dec.ProjectedWait, 7.5)
	if dec.Cost != 50 {
		t.Errorf("expected cost 50, got %v", dec.Cost)
	}

	snap := ledger.Snapshot()
	if snap.CurLoad != 50 {
		t.Errorf("expected load 50 after acceptance, got %v", snap.CurLoad)
	}
	if snap.RejLoad != 0 {
		t.Errorf("expected no rejected load, got %v", snap.RejLoad)
	}
}

func TestAdmit_ExactCeilingIsAccepted(t *testing.T) {
	// Projection equal to the ceiling still fits; only exceeding rejects.
	ctrl, _ := newController(calibrated(10), 10*time.Second, 0)

	dec, err := ctrl.Admit("req-1", 100)
	if err != nil {
		t.Fatalf("expected boundary request accepted, got: %v", err)
	}
	dec.Lease.Release()
}

func TestAdmit_AccountsExistingLoad(t *testing.T) {
	ctrl, _ := newController(calibrated(10), 10*time.Second, 0)

	// Fill 60 units; a further 50 would project (60+50)/10 = 11s.
	dec, err := ctrl.Admit("req-1", 60)
	if err != nil {
		t.Fatalf("expected first request accepted, got: %v", err)
	}
	defer dec.Lease.Release()

	_, err = ctrl.Admit("req-2", 50)
	var overCap *OverCapacityError
	if !errors.As(err, &overCap) {
		t.Fatalf("expected second request rejected, got: %v", err)
	}
	approxSeconds(t, overCap.ProjectedWait, 11.0)
	if overCap.CurLoad != 60 {
		t.Errorf("expected error to carry load 60, got %v", overCap.CurLoad)
	}
}

func TestAdmit_ReleaseRestoresCapacity(t *testing.T) {
	ctrl, _ := newController(calibrated(10), 10*time.Second, 0)

	dec, err := ctrl.Admit("req-1", 100)
	if err != nil {
		t.Fatalf("expected first request accepted, got: %v", err)
	}

	if _, err := ctrl.Admit("req-2", 10); err == nil {
		t.Fatal("expected second request rejected while first holds capacity")
	}

	dec.Lease.Release()

	dec2, err := ctrl.Admit("req-3", 10)
	if err != nil {
		t.Fatalf("expected admission after release, got: %v", err)
	}
	dec2.Lease.Release()
}

// ============================================================================
// Default-cost substitution
// ============================================================================

func TestAdmit_DefaultCostSubstitution(t *testing.T) {
	tests := []struct {
		name        string
		defaultCost float64
		declared    float64
		wantCost    float64
	}{
		{"zero declared uses default", 100, 0, 100},
		{"one declared uses default", 100, 1, 100},
		{"above one keeps declared", 100, 1.5, 1.5},
		{"real cost keeps declared", 100, 240, 240},
		{"negative treated as zero then default", 100, -5, 100},
		{"no default keeps zero", 0, 0, 0},
		{"no default keeps one", 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, ledger := newController(calibrated(1000), time.Minute, tt.defaultCost)

			dec, err := ctrl.Admit("req-1", tt.declared)
			if err != nil {
				t.Fatalf("expected acceptance, got: %v", err)
			}
			defer dec.Lease.Release()

			if dec.Cost != tt.wantCost {
				t.Errorf("expected effective cost %v, got %v", tt.wantCost, dec.Cost)
			}
			if dec.Lease.Workload() != tt.wantCost {
				t.Errorf("expected lease workload %v, got %v", tt.wantCost, dec.Lease.Workload())
			}
			if snap := ledger.Snapshot(); snap.CurLoad != tt.wantCost {
				t.Errorf("expected ledger load %v, got %v", tt.wantCost, snap.CurLoad)
			}
		})
	}
}

// ============================================================================
// Fail closed before calibration
// ============================================================================

func TestAdmit_NotReadyBeforeCalibration(t *testing.T) {
	ctrl, ledger := newController(uncalibrated(), 10*time.Second, 0)

	_, err := ctrl.Admit("req-1", 50)
	var notReady *NotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("expected *NotReadyError, got %T: %v", err, err)
	}

	snap := ledger.Snapshot()
	if snap.CurLoad != 0 || snap.RejLoad != 0 {
		t.Errorf("expected not-ready rejection to leave accounting untouched, got load=%v rej=%v",
			snap.CurLoad, snap.RejLoad)
	}
	if snap.NumReceived != 1 {
		t.Errorf("expected received counter 1, got %d", snap.NumReceived)
	}
}

func TestAdmit_NotReadyOnZeroThroughput(t *testing.T) {
	ctrl, _ := newController(calibrated(0), 10*time.Second, 0)

	_, err := ctrl.Admit("req-1", 50)
	var notReady *NotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("expected *NotReadyError for zero throughput, got %T: %v", err, err)
	}
}

// ============================================================================
// Counters and error detail
// ============================================================================

func TestAdmit_CountsEverySubmission(t *testing.T) {
	ctrl, ledger := newController(calibrated(10), 10*time.Second, 0)

	dec, _ := ctrl.Admit("req-1", 100) // accepted
	ctrl.Admit("req-2", 100)           // rejected
	defer dec.Lease.Release()

	if snap := ledger.Snapshot(); snap.NumReceived != 2 {
		t.Errorf("expected received counter 2, got %d", snap.NumReceived)
	}
}

func TestAdmit_RetryAfterAtLeastOneSecond(t *testing.T) {
	ctrl, _ := newController(calibrated(6.67), 10*time.Second, 0)

	_, err := ctrl.Admit("req-1", 100)
	var overCap *OverCapacityError
	if !errors.As(err, &overCap) {
		t.Fatalf("expected *OverCapacityError, got: %v", err)
	}
	if overCap.RetryAfter < time.Second {
		t.Errorf("expected retry-after >= 1s, got %v", overCap.RetryAfter)
	}
	// ~15s projected against a 10s ceiling: ~5s until it would fit.
	approxSeconds(t, overCap.RetryAfter, 5.0)
}

// ============================================================================
// Atomicity under contention
// ============================================================================

func TestAdmit_ConcurrentRequestsNeverOverCommit(t *testing.T) {
	// Capacity 10 units (throughput 1/s, ceiling 10s); each request costs
	// 6, so exactly one of any number of racers fits.
	ctrl, ledger := newController(calibrated(1), 10*time.Second, 0)

	const racers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	var accepted []*Decision

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			dec, err := ctrl.Admit(fmt.Sprintf("req-%d", n), 6)
			if err == nil {
				mu.Lock()
				accepted = append(accepted, dec)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if len(accepted) != 1 {
		t.Fatalf("expected exactly 1 accepted request, got %d", len(accepted))
	}
	if snap := ledger.Snapshot(); snap.CurLoad != 6 {
		t.Errorf("expected load 6 after race, got %v", snap.CurLoad)
	}
	accepted[0].Lease.Release()

	if snap := ledger.Snapshot(); snap.CurLoad != 0 {
		t.Errorf("expected load drained after release, got %v", snap.CurLoad)
	}
}
