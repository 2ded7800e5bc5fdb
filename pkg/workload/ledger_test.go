package workload

import (
	"fmt"
	"sync"
	"testing"
)

func acceptAll(float64) bool { return true }
func rejectAll(float64) bool { return false }

// ============================================================================
// Reservation Tests
// ============================================================================

func TestLedger_ReserveAndRelease(t *testing.T) {
	l := NewLedger()

	lease, cur, ok := l.TryReserve("req-1", 50, acceptAll)
	if !ok {
		t.Fatal("Expected reservation to succeed")
	}
	if cur != 0 {
		t.Errorf("Expected decision load 0, got %v", cur)
	}
	if lease.Workload() != 50 {
		t.Errorf("Expected lease workload 50, got %v", lease.Workload())
	}

	snap := l.Snapshot()
	if snap.CurLoad != 50 {
		t.Errorf("Expected cur_load 50, got %v", snap.CurLoad)
	}
	if snap.NumWorking != 1 {
		t.Errorf("Expected 1 working request, got %d", snap.NumWorking)
	}
	if len(snap.WorkingRequestIDs) != 1 || snap.WorkingRequestIDs[0] != "req-1" {
		t.Errorf("Expected working ids [req-1], got %v", snap.WorkingRequestIDs)
	}

	lease.Release()

	snap = l.Snapshot()
	if snap.CurLoad != 0 {
		t.Errorf("Expected cur_load back to 0, got %v", snap.CurLoad)
	}
	if snap.NumWorking != 0 {
		t.Errorf("Expected 0 working requests, got %d", snap.NumWorking)
	}
	if len(snap.WorkingRequestIDs) != 0 {
		t.Errorf("Expected no working ids, got %v", snap.WorkingRequestIDs)
	}
	if snap.CompletedTotal != 50 {
		t.Errorf("Expected completed total 50, got %v", snap.CompletedTotal)
	}
}

func TestLedger_LoadEqualsSumOfOutstanding(t *testing.T) {
	l := NewLedger()

	var leases []*Lease
	costs := []float64{10, 25.5, 0.5, 100}
	want := 0.0
	for i, c := range costs {
		lease, _, ok := l.TryReserve(fmt.Sprintf("req-%d", i), c, acceptAll)
		if !ok {
			t.Fatalf("Reservation %d failed", i)
		}
		leases = append(leases, lease)
		want += c
	}

	if got := l.Snapshot().CurLoad; got != want {
		t.Errorf("Expected cur_load %v, got %v", want, got)
	}

	// Release in arbitrary order; remaining load tracks the outstanding sum.
	leases[2].Release()
	want -= costs[2]
	leases[0].Release()
	want -= costs[0]

	snap := l.Snapshot()
	if snap.CurLoad != want {
		t.Errorf("Expected cur_load %v after partial release, got %v", want, snap.CurLoad)
	}
	if snap.NumWorking != 2 {
		t.Errorf("Expected 2 working requests, got %d", snap.NumWorking)
	}

	leases[1].Release()
	leases[3].Release()
	if got := l.Snapshot().CurLoad; got != 0 {
		t.Errorf("Expected cur_load 0 after full release, got %v", got)
	}
}

func TestLedger_DoubleReleaseIsNoop(t *testing.T) {
	l := NewLedger()

	lease, _, _ := l.TryReserve("req-1", 30, acceptAll)
	other, _, _ := l.TryReserve("req-2", 70, acceptAll)

	lease.Release()
	lease.Release()
	lease.Release()

	snap := l.Snapshot()
	if snap.CurLoad != 70 {
		t.Errorf("Expected cur_load 70 after double release, got %v", snap.CurLoad)
	}
	if snap.NumWorking != 1 {
		t.Errorf("Expected 1 working request, got %d", snap.NumWorking)
	}

	other.Release()
	if got := l.Snapshot().CurLoad; got != 0 {
		t.Errorf("Expected cur_load 0, got %v", got)
	}
}

func TestLedger_NeverNegative(t *testing.T) {
	l := NewLedger()

	lease, _, _ := l.TryReserve("req-1", 10, acceptAll)
	lease.Release()
	lease.Release()

	snap := l.Snapshot()
	if snap.CurLoad < 0 {
		t.Errorf("cur_load went negative: %v", snap.CurLoad)
	}
	if snap.NumWorking < 0 {
		t.Errorf("num_working went negative: %d", snap.NumWorking)
	}
}

// ============================================================================
// Rejection Tests
// ============================================================================

func TestLedger_RejectionAccumulatesRejLoad(t *testing.T) {
	l := NewLedger()

	lease, cur, ok := l.TryReserve("req-1", 100, rejectAll)
	if ok {
		t.Fatal("Expected reservation to be rejected")
	}
	if lease != nil {
		t.Error("Expected nil lease on rejection")
	}
	if cur != 0 {
		t.Errorf("Expected decision load 0, got %v", cur)
	}

	l.TryReserve("req-2", 40, rejectAll)

	snap := l.Snapshot()
	if snap.RejLoad != 140 {
		t.Errorf("Expected rej_load 140, got %v", snap.RejLoad)
	}
	if snap.CurLoad != 0 {
		t.Errorf("Rejected load must not touch cur_load, got %v", snap.CurLoad)
	}
	if snap.NumWorking != 0 {
		t.Errorf("Rejected request must not count as working, got %d", snap.NumWorking)
	}
}

// ============================================================================
// Counter Tests
// ============================================================================

func TestLedger_ReceivedCounterMonotonic(t *testing.T) {
	l := NewLedger()

	for i := 1; i <= 5; i++ {
		if got := l.IncReceived(); got != int64(i) {
			t.Errorf("Expected received counter %d, got %d", i, got)
		}
	}

	// Releases never move the received counter.
	lease, _, _ := l.TryReserve("req-1", 1, acceptAll)
	lease.Release()
	if got := l.Snapshot().NumReceived; got != 5 {
		t.Errorf("Expected received counter 5, got %d", got)
	}
}

func TestLedger_OnChangeFires(t *testing.T) {
	l := NewLedger()

	var mu sync.Mutex
	calls := 0
	l.OnChange(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	lease, _, _ := l.TryReserve("req-1", 10, acceptAll) // 1
	l.TryReserve("req-2", 10, rejectAll)                // 2
	lease.Release()                                     // 3
	lease.Release()                                     // idempotent, no extra call

	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Errorf("Expected 3 change notifications, got %d", calls)
	}
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func TestLedger_ConcurrentReserveRelease(t *testing.T) {
	l := NewLedger()

	const workers = 50
	const perWorker = 20

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("req-%d-%d", w, i)
				lease, _, ok := l.TryReserve(id, 1.5, acceptAll)
				if !ok {
					t.Errorf("Reservation %s unexpectedly rejected", id)
					return
				}
				lease.Release()
			}
		}(w)
	}
	wg.Wait()

	snap := l.Snapshot()
	if snap.CurLoad != 0 {
		t.Errorf("Expected cur_load 0 after balanced reserve/release, got %v", snap.CurLoad)
	}
	if snap.NumWorking != 0 {
		t.Errorf("Expected 0 working requests, got %d", snap.NumWorking)
	}
	if want := float64(workers*perWorker) * 1.5; snap.AcceptedTotal != want {
		t.Errorf("Expected accepted total %v, got %v", want, snap.AcceptedTotal)
	}
	if snap.AcceptedTotal != snap.CompletedTotal {
		t.Errorf("Accepted total %v != completed total %v", snap.AcceptedTotal, snap.CompletedTotal)
	}
}

func TestLedger_SnapshotSortsIDs(t *testing.T) {
	l := NewLedger()

	for _, id := range []string{"zeta", "alpha", "mike"} {
		l.TryReserve(id, 1, acceptAll)
	}

	snap := l.Snapshot()
	want := []string{"alpha", "mike", "zeta"}
	for i, id := range want {
		if snap.WorkingRequestIDs[i] != id {
			t.Errorf("Expected sorted ids %v, got %v", want, snap.WorkingRequestIDs)
			break
		}
	}
}
