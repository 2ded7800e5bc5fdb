// Package proxy provides the worker's HTTP surface: the proxy listener that
// fronts the backend and the ops listener for metrics and probes.
//
// The proxy listener carries model traffic. Every request runs the same
// pipeline: recovery, access logging, request id, signature verification,
// then block rules, admission, the concurrency gate, and finally the
// forwarder, which relays the backend response verbatim. Payloads are opaque
// end to end; the worker inspects paths and auth headers, never bodies.
//
// The ops listener lives on a separate port so that the proxy port keeps the
// property "every non-blocked path reaches the backend". It serves
// /metrics, /healthz, /readyz, /statusz, and /version.
//
// # Architecture
//
//   - Server: listener lifecycle, TLS, graceful shutdown
//   - OpsServer: metrics, probes, status report, build info
//   - Handler: the admission pipeline around the forwarder
//   - Forwarder: pooled transport, streaming relay
//   - Blocklist: compiled glob rules over request paths
//   - Middleware: recovery, logging, request id, signature auth
package proxy
