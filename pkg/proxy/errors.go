package proxy

import (
	"fmt"
	"time"
)

// BackendError reports that the backend could not be reached or broke the
// connection before answering. The client receives 502; backend HTTP error
// statuses are not BackendErrors, they pass through verbatim.
type BackendError struct {
	// Cause is the underlying transport error.
	Cause error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("backend request failed: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *BackendError) Unwrap() error {
	return e.Cause
}

// BackendTimeoutError reports that the backend exceeded the per-request
// ceiling. The client receives 504.
type BackendTimeoutError struct {
	// Timeout is the configured ceiling that was exceeded.
	Timeout time.Duration

	// Cause is the underlying context error.
	Cause error
}

// Error implements the error interface.
func (e *BackendTimeoutError) Error() string {
	return fmt.Sprintf("backend did not answer within %s", e.Timeout)
}

// Unwrap returns the underlying error for error chain support.
func (e *BackendTimeoutError) Unwrap() error {
	return e.Cause
}
