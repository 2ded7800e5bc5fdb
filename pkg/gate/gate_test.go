package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/config"
)

// ============================================================================
// Construction
// ============================================================================

func TestFromConfig_SerializedBackendGetsSingleSlot(t *testing.T) {
	g := FromConfig(config.BackendConfig{AllowParallel: false, MaxConcurrent: 8})
	if !g.Bounded() || g.Capacity() != 1 {
		t.Errorf("expected single-slot gate for serialized backend, got capacity %d", g.Capacity())
	}
}

func TestFromConfig_ParallelBackendUsesBound(t *testing.T) {
	g := FromConfig(config.BackendConfig{AllowParallel: true, MaxConcurrent: 4})
	if g.Capacity() != 4 {
		t.Errorf("expected capacity 4, got %d", g.Capacity())
	}
}

func TestFromConfig_ParallelUnboundedIsNoop(t *testing.T) {
	g := FromConfig(config.BackendConfig{AllowParallel: true, MaxConcurrent: 0})
	if g.Bounded() {
		t.Error("expected unbounded gate when no concurrency bound is set")
	}
}

// ============================================================================
// Acquire and release
// ============================================================================

func TestAcquire_BlocksUntilReleased(t *testing.T) {
	g := New(1)

	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := g.Acquire(context.Background()); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while slot is held")
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire should proceed after release")
	}
}

func TestAcquire_ContextCancellation(t *testing.T) {
	g := New(1)
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := g.Acquire(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded from blocked acquire, got %v", err)
	}
}

func TestAcquire_UnboundedNeverBlocks(t *testing.T) {
	g := New(0)
	for i := 0; i < 100; i++ {
		if err := g.Acquire(context.Background()); err != nil {
			t.Fatalf("unbounded acquire %d failed: %v", i, err)
		}
	}
	g.Release() // no-op
	if g.InUse() != 0 {
		t.Errorf("expected unbounded gate to report 0 in use, got %d", g.InUse())
	}
}

func TestTryAcquire(t *testing.T) {
	g := New(2)

	if !g.TryAcquire() || !g.TryAcquire() {
		t.Fatal("expected two slots available")
	}
	if g.TryAcquire() {
		t.Error("expected third try-acquire to fail")
	}

	g.Release()
	if !g.TryAcquire() {
		t.Error("expected try-acquire to succeed after release")
	}
}

func TestRelease_WithoutAcquireIsNoop(t *testing.T) {
	g := New(1)
	g.Release()
	g.Release()

	if g.InUse() != 0 {
		t.Errorf("expected 0 in use after spurious releases, got %d", g.InUse())
	}
	// The slot must still be usable exactly once.
	if !g.TryAcquire() {
		t.Fatal("expected slot available")
	}
	if g.TryAcquire() {
		t.Error("expected only one slot")
	}
}

// ============================================================================
// Serialization
// ============================================================================

func TestSingleSlotGate_NeverOverlaps(t *testing.T) {
	g := New(1)

	var inFlight atomic.Int32
	var maxSeen atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Acquire(context.Background()); err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			defer g.Release()

			n := inFlight.Add(1)
			for {
				prev := maxSeen.Load()
				if n <= prev || maxSeen.CompareAndSwap(prev, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
		}()
	}
	wg.Wait()

	if maxSeen.Load() != 1 {
		t.Errorf("expected at most 1 request in flight through a single-slot gate, saw %d", maxSeen.Load())
	}
}

func TestBoundedGate_RespectsCapacity(t *testing.T) {
	const capacity = 3
	g := New(capacity)

	var inFlight atomic.Int32
	var maxSeen atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Acquire(context.Background()); err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			defer g.Release()

			n := inFlight.Add(1)
			for {
				prev := maxSeen.Load()
				if n <= prev || maxSeen.CompareAndSwap(prev, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
		}()
	}
	wg.Wait()

	if got := maxSeen.Load(); got > capacity {
		t.Errorf("expected at most %d in flight, saw %d", capacity, got)
	}
}
