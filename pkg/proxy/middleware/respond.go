package middleware

import (
	"encoding/json"
	"net/http"
)

// errorResponse mirrors the proxy error envelope. Declared here rather than
// imported because the proxy package sits above this one in the import graph.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a JSON error response in the proxy envelope.
func writeError(w http.ResponseWriter, status int, errType, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorDetail{
			Message:   message,
			Type:      errType,
			RequestID: requestID,
		},
	})
}
