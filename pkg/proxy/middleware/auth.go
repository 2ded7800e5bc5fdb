package middleware

import (
	"log/slog"
	"net/http"

	"mercator-hq/ganymede/pkg/security/signature"
)

// AuthMiddleware verifies the signature the fleet router attaches to every
// dispatched request. Requests that fail verification are refused with 401
// before any admission accounting happens.
//
// The caller decides whether to install this middleware at all: when the
// worker runs unsecured the chain is built without it.
//
// Example usage:
//
//	handler = AuthMiddleware(verifier)(handler)
func AuthMiddleware(verifier *signature.Verifier) func(http.Handler) http.Handler {
	logger := slog.Default().With("component", "proxy.auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sig := signature.FromRequest(r)
			if err := verifier.Verify(sig); err != nil {
				requestID := GetRequestID(r.Context())
				logger.Warn("request signature rejected",
					"request_id", requestID,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				writeError(w, http.StatusUnauthorized, "invalid_signature",
					"request signature verification failed", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
