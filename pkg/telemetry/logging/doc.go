// Package logging provides structured logging with secret scrubbing.
//
// # Overview
//
// The logging package configures Go's standard log/slog package to provide:
//   - Structured logging with JSON and text formats
//   - Automatic scrubbing of secrets (auth tokens, request signatures)
//   - Context-aware logging with request IDs and endpoint metadata
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	// At worker startup: install the default logger
//	logger, err := logging.Setup(cfg.Telemetry.Logging)
//
//	// Per component
//	log := logging.Component("admission.controller")
//	log.Info("request admitted",
//	    "request_id", "req-123",
//	    "workload", 50.0,
//	)
//
//	// Per request: pull correlation fields from the context
//	logging.FromContext(ctx).Info("forwarding to backend")
//
// # Secret Scrubbing
//
// Attribute values whose keys look sensitive are masked before reaching the
// handler, keeping a four-character prefix for identification:
//
//	log.Info("report sent", "auth_token", "mtok-8f2a91cc")
//	// => auth_token=mtok***
//
// Scrubbing is keyed on attribute names (token, signature, authorization,
// and similar), not on value patterns. Request and response bodies are never
// logged, so no content-level redaction is attempted.
package logging
