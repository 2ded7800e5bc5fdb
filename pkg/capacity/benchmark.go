package capacity

import (
	"context"
	"fmt"

	"mercator-hq/ganymede/pkg/config"
)

// Benchmark measures the backend's sustained throughput.
type Benchmark interface {
	// Name identifies the benchmark in logs, journal records, and status
	// reports.
	Name() string

	// Run drives the backend and returns its throughput in workload units
	// per second. Run must respect context cancellation; the estimator
	// bounds it with the configured calibration timeout.
	Run(ctx context.Context) (float64, error)
}

// NewBenchmark builds the configured benchmark. backendURL is the base URL
// of the local backend.
func NewBenchmark(cfg config.CapacityConfig, backendURL string) (Benchmark, error) {
	switch cfg.Benchmark {
	case "completion-tokens":
		return NewCompletionBenchmark(cfg, backendURL)
	case "fixed":
		return NewFixedBenchmark(cfg.FixedThroughput)
	default:
		return nil, fmt.Errorf("unknown benchmark %q", cfg.Benchmark)
	}
}
