// Package gate bounds how many admitted requests may execute against the
// backend at once.
//
// Admission control answers "may this request queue here at all"; the gate
// answers "may it run right now". Backends that serialize internally (most
// single-GPU image generators, llama.cpp without batching) get a single-slot
// gate so concurrent requests execute one at a time regardless of what the
// wait-time projection allowed. Batching backends run ungated or with a
// configured slot count.
package gate

import (
	"context"

	"mercator-hq/ganymede/pkg/config"
)

// Gate is a counting semaphore over backend execution slots.
//
// A zero slot capacity means unbounded: Acquire always succeeds immediately
// and Release is a no-op. Otherwise Acquire blocks until a slot frees or the
// context is cancelled.
type Gate struct {
	slots chan struct{}
}

// New creates a gate with the given slot capacity. Capacity 0 builds an
// unbounded gate.
func New(capacity int) *Gate {
	if capacity <= 0 {
		return &Gate{}
	}
	return &Gate{slots: make(chan struct{}, capacity)}
}

// FromConfig derives the gate from backend configuration: a single slot when
// the backend serializes, the configured bound when it runs parallel, and
// unbounded when no bound is set.
func FromConfig(cfg config.BackendConfig) *Gate {
	if !cfg.AllowParallel {
		return New(1)
	}
	return New(cfg.MaxConcurrent)
}

// Acquire blocks until an execution slot is free or the context is done.
// On success the caller must pair it with exactly one Release.
func (g *Gate) Acquire(ctx context.Context) error {
	if g.slots == nil {
		return ctx.Err()
	}
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot without blocking. Returns false when the gate is
// full.
func (g *Gate) TryAcquire() bool {
	if g.slots == nil {
		return true
	}
	select {
	case g.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees one execution slot. Releasing an unbounded gate, or
// releasing more than was acquired, is a no-op.
func (g *Gate) Release() {
	if g.slots == nil {
		return
	}
	select {
	case <-g.slots:
	default:
	}
}

// InUse returns the number of held slots. Always 0 for an unbounded gate.
func (g *Gate) InUse() int {
	if g.slots == nil {
		return 0
	}
	return len(g.slots)
}

// Capacity returns the slot capacity, 0 meaning unbounded.
func (g *Gate) Capacity() int {
	if g.slots == nil {
		return 0
	}
	return cap(g.slots)
}

// Bounded reports whether the gate enforces a slot limit.
func (g *Gate) Bounded() bool {
	return g.slots != nil
}
