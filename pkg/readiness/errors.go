package readiness

import (
	"fmt"
	"time"
)

// TimeoutError reports that the backend did not become ready within the
// start budget. The worker treats this as fatal: it sends a terminal status
// report and exits.
type TimeoutError struct {
	// Mode is the start mode whose budget was exceeded.
	Mode Mode

	// Budget is the exhausted timeout.
	Budget time.Duration

	// Source is the name of the readiness source that was watched.
	Source string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("backend not ready after %s (%s start, %s source)",
		e.Budget, e.Mode, e.Source)
}

// FatalError reports that the backend logged a configured fatal marker
// during startup. Startup cannot succeed; the worker sends a terminal
// status report and exits.
type FatalError struct {
	// Detail is the log line that matched the fatal marker.
	Detail string

	// Source is the name of the readiness source that observed it.
	Source string
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("backend reported fatal startup error: %s", e.Detail)
}
