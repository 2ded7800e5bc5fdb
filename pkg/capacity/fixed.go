package capacity

import (
	"context"
	"fmt"
)

// FixedBenchmark publishes a configured constant throughput without touching
// the backend. Used for backends whose per-request cost is known up front,
// such as image generators billed per image or rerankers billed per query.
type FixedBenchmark struct {
	throughput float64
}

// NewFixedBenchmark creates a fixed benchmark.
func NewFixedBenchmark(throughput float64) (*FixedBenchmark, error) {
	if throughput <= 0 {
		return nil, fmt.Errorf("fixed throughput must be positive, got %v", throughput)
	}
	return &FixedBenchmark{throughput: throughput}, nil
}

// Name implements Benchmark.
func (b *FixedBenchmark) Name() string { return "fixed" }

// Run implements Benchmark. It returns the configured constant; the context
// is consulted only so a cancelled calibration still reports as cancelled.
func (b *FixedBenchmark) Run(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return b.throughput, nil
}
