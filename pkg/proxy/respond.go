package proxy

import (
	"encoding/json"
	"net/http"
)

// Error type identifiers returned in JSON error responses.
const (
	ErrorTypeNotReady     = "worker_not_ready"
	ErrorTypeOverCapacity = "over_capacity"
	ErrorTypeBlocked      = "path_blocked"
	ErrorTypeAuth         = "invalid_signature"
	ErrorTypeBadGateway   = "backend_unreachable"
	ErrorTypeTimeout      = "backend_timeout"
	ErrorTypeInternal     = "internal_error"
)

// ErrorResponse is the JSON envelope for every error the worker itself
// produces. Backend errors are never wrapped in it; they pass through as the
// backend sent them.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error payload.
type ErrorDetail struct {
	// Message is a human-readable description.
	Message string `json:"message"`

	// Type identifies the error class for programmatic handling.
	Type string `json:"type"`

	// RequestID correlates the response with worker logs.
	RequestID string `json:"request_id,omitempty"`
}

// WriteError writes a JSON error response with the given status code.
// Callers set any extra headers (Retry-After) before calling.
func WriteError(w http.ResponseWriter, status int, errType, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{
			Message:   message,
			Type:      errType,
			RequestID: requestID,
		},
	})
}
