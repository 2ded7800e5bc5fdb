package logging

import (
	"context"
	"log/slog"
	"strings"
)

// sensitiveKeys are attribute-key fragments whose values must never reach
// log output intact. The worker handles two secrets: the master auth token
// echoed in status reports and the request signatures on inbound traffic.
var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token",
	"api_key", "apikey",
	"authorization",
	"signature",
	"private_key",
}

// ScrubHandler is a slog.Handler middleware that redacts sensitive attribute
// values before they reach the wrapped handler. Keys are matched
// case-insensitively on substring, so "auth_token", "AuthToken", and
// "reporting_token" are all caught.
type ScrubHandler struct {
	inner slog.Handler
}

// NewScrubHandler wraps a handler with secret scrubbing.
func NewScrubHandler(inner slog.Handler) *ScrubHandler {
	return &ScrubHandler{inner: inner}
}

// Enabled reports whether the wrapped handler handles records at the level.
func (h *ScrubHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle scrubs the record's attributes and forwards it.
func (h *ScrubHandler) Handle(ctx context.Context, r slog.Record) error {
	scrubbed := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		scrubbed.AddAttrs(scrubAttr(a))
		return true
	})
	return h.inner.Handle(ctx, scrubbed)
}

// WithAttrs scrubs the bound attributes and forwards them.
func (h *ScrubHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = scrubAttr(a)
	}
	return &ScrubHandler{inner: h.inner.WithAttrs(out)}
}

// WithGroup forwards the group to the wrapped handler.
func (h *ScrubHandler) WithGroup(name string) slog.Handler {
	return &ScrubHandler{inner: h.inner.WithGroup(name)}
}

// scrubAttr redacts a single attribute, descending into groups.
func scrubAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		out := make([]slog.Attr, len(members))
		for i, m := range members {
			out[i] = scrubAttr(m)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, Redact(a.Value.String()))
	}
	return a
}

// isSensitiveKey checks if a key name indicates sensitive data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// Redact masks a secret, keeping a short prefix for identification.
func Redact(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "***"
	}
	return value[:4] + "***"
}
