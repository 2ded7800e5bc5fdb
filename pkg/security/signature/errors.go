package signature

import "fmt"

// Error reports a rejected request signature. The response is 401; the
// request never reaches admission.
type Error struct {
	// Reason describes what failed in terms safe to return to the caller.
	Reason string

	// Cause is the underlying error, if any. Not included in responses.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("request signature rejected: %s", e.Reason)
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}
