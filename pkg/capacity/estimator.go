package capacity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/ganymede/pkg/telemetry/tracing"
	"mercator-hq/ganymede/pkg/workload"
)

// CalibrationRecord is what the journal persists about one calibration
// attempt.
type CalibrationRecord struct {
	// Benchmark is the benchmark name.
	Benchmark string

	// Throughput is the measured throughput; zero when the attempt failed.
	Throughput float64

	// Elapsed is how long the attempt took.
	Elapsed time.Duration

	// Err is the failure message, empty on success.
	Err string

	// At is when the attempt finished.
	At time.Time
}

// Recorder persists calibration attempts. Implemented by the journal
// and the metrics collector; recording failures never affect the
// calibration outcome.
type Recorder interface {
	RecordCalibration(ctx context.Context, rec CalibrationRecord) error
}

// Estimator owns the worker's capacity estimate.
//
// The estimate is published through an atomic pointer: admission reads it
// on every request without taking a lock, and calibration replaces it
// wholesale on success. Failures leave the previous estimate in place.
type Estimator struct {
	bench    Benchmark
	timeout  time.Duration
	recorder Recorder

	state atomic.Pointer[workload.CapacityState]

	// calibrating admits one calibration at a time via TryLock.
	calibrating sync.Mutex

	attempts atomic.Int64
	failures atomic.Int64
	lastErr  atomic.Pointer[string]

	// onUpdate, when set, is invoked after each successful calibration,
	// outside any lock. Used to poke the status reporter.
	onUpdate atomic.Pointer[func(workload.CapacityState)]

	logger *slog.Logger
}

// NewEstimator creates an estimator around a benchmark. timeout bounds one
// calibration attempt. recorder may be nil.
func NewEstimator(bench Benchmark, timeout time.Duration, recorder Recorder) *Estimator {
	return &Estimator{
		bench:    bench,
		timeout:  timeout,
		recorder: recorder,
		logger:   slog.Default().With("component", "capacity.estimator"),
	}
}

// Current returns the capacity estimate. The second return is false until a
// first calibration has succeeded or a seed was installed.
func (e *Estimator) Current() (*workload.CapacityState, bool) {
	state := e.state.Load()
	return state, state != nil
}

// Seed installs a capacity estimate without running the benchmark. Used on
// warm resume to serve against the journal's last good calibration while
// the first live calibration runs.
func (e *Estimator) Seed(state workload.CapacityState) {
	e.state.Store(&state)
	e.logger.Info("capacity seeded",
		"throughput", state.MaxThroughput,
		"source", state.Source,
		"calibrated_at", state.CalibratedAt,
	)
}

// OnUpdate registers a callback invoked after every successful calibration.
// The callback must not block.
func (e *Estimator) OnUpdate(fn func(workload.CapacityState)) {
	e.onUpdate.Store(&fn)
}

// Attempts returns the number of calibration attempts started.
func (e *Estimator) Attempts() int64 { return e.attempts.Load() }

// Failures returns the number of calibration attempts that failed.
func (e *Estimator) Failures() int64 { return e.failures.Load() }

// LastError returns the most recent calibration failure message, empty
// after a success.
func (e *Estimator) LastError() string {
	if msg := e.lastErr.Load(); msg != nil {
		return *msg
	}
	return ""
}

// Calibrate runs the benchmark once and publishes the result. Returns
// ErrCalibrationRunning when a calibration is already in flight, and a
// *CalibrationError on benchmark failure. In the failure case any previous
// estimate stays published.
func (e *Estimator) Calibrate(ctx context.Context) (*workload.CapacityState, error) {
	if !e.calibrating.TryLock() {
		return nil, ErrCalibrationRunning
	}
	defer e.calibrating.Unlock()

	ctx, span := tracing.StartSpan(ctx, "capacity.calibrate")
	defer span.End()

	e.attempts.Add(1)

	runCtx := ctx
	var cancel context.CancelFunc
	if e.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	e.logger.Info("calibration starting", "benchmark", e.bench.Name())
	start := time.Now()

	throughput, err := e.bench.Run(runCtx)
	elapsed := time.Since(start)

	if err == nil && throughput <= 0 {
		err = fmt.Errorf("benchmark reported non-positive throughput %v", throughput)
	}

	if err != nil {
		if _, ok := err.(*CalibrationError); !ok {
			err = &CalibrationError{Benchmark: e.bench.Name(), Cause: err}
		}
		e.failures.Add(1)
		msg := err.Error()
		e.lastErr.Store(&msg)
		tracing.SetCalibrationAttributes(span, e.bench.Name(), 0)
		tracing.SetError(span, err)
		e.record(CalibrationRecord{
			Benchmark: e.bench.Name(),
			Elapsed:   elapsed,
			Err:       msg,
			At:        time.Now(),
		})
		e.logger.Error("calibration failed",
			"benchmark", e.bench.Name(),
			"elapsed", elapsed.Round(time.Millisecond),
			"error", err,
		)
		return nil, err
	}

	state := &workload.CapacityState{
		MaxThroughput: throughput,
		CalibratedAt:  time.Now(),
		Source:        e.bench.Name(),
	}
	e.state.Store(state)
	empty := ""
	e.lastErr.Store(&empty)
	tracing.SetCalibrationAttributes(span, e.bench.Name(), throughput)
	e.record(CalibrationRecord{
		Benchmark:  e.bench.Name(),
		Throughput: throughput,
		Elapsed:    elapsed,
		At:         state.CalibratedAt,
	})
	e.logger.Info("calibration complete",
		"benchmark", e.bench.Name(),
		"throughput", throughput,
		"elapsed", elapsed.Round(time.Millisecond),
	)

	if fn := e.onUpdate.Load(); fn != nil {
		(*fn)(*state)
	}
	return state, nil
}

// EnsureCalibrated blocks until a capacity estimate exists, retrying failed
// calibrations at the given interval. Returns the context error when
// cancelled first.
func (e *Estimator) EnsureCalibrated(ctx context.Context, retry time.Duration) error {
	for {
		if _, ok := e.Current(); ok {
			return nil
		}

		_, err := e.Calibrate(ctx)
		switch {
		case err == nil:
			return nil
		case err == ErrCalibrationRunning:
			// Another caller is mid-calibration; just wait and re-check.
		default:
			e.logger.Warn("calibration retry scheduled",
				"retry_in", retry,
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}

// record persists a calibration attempt, logging rather than failing when
// the journal is unavailable.
func (e *Estimator) record(rec CalibrationRecord) {
	if e.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.recorder.RecordCalibration(ctx, rec); err != nil {
		e.logger.Warn("failed to journal calibration", "error", err)
	}
}
