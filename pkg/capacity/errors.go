package capacity

import (
	"errors"
	"fmt"
)

// ErrCalibrationRunning is returned by Calibrate when another calibration
// is already in flight. Calibrations never queue behind each other.
var ErrCalibrationRunning = errors.New("calibration already running")

// CalibrationError reports a failed calibration attempt. The previous
// capacity estimate, if any, remains in effect.
type CalibrationError struct {
	// Benchmark is the name of the benchmark that failed.
	Benchmark string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *CalibrationError) Error() string {
	return fmt.Sprintf("benchmark %q calibration failed: %v", e.Benchmark, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *CalibrationError) Unwrap() error {
	return e.Cause
}
