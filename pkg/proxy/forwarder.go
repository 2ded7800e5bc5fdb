package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/security/signature"
	"mercator-hq/ganymede/pkg/telemetry/tracing"
)

// hopByHopHeaders are connection-scoped and never forwarded in either
// direction.
var hopByHopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Forwarder relays requests to the backend and backend responses to the
// client, byte for byte.
type Forwarder struct {
	backend *url.URL
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewForwarder creates a forwarder for the configured backend. The
// transport pools connections; there is exactly one upstream host.
func NewForwarder(cfg config.BackendConfig) (*Forwarder, error) {
	backend, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", cfg.URL, err)
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.Pool.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Pool.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.Pool.MaxConnsPerHost,
		IdleConnTimeout:     cfg.Pool.IdleConnTimeout,
		DisableCompression:  false,
		ForceAttemptHTTP2:   true,
	}

	// No client timeout: it would cut long streams. The per-request
	// context carries the ceiling instead.
	return &Forwarder{
		backend: backend,
		client:  &http.Client{Transport: transport},
		timeout: cfg.RequestTimeout,
		logger:  slog.Default().With("component", "proxy.forwarder"),
	}, nil
}

// Forward relays one request. The response is written directly to w: status
// and headers verbatim, body streamed with per-chunk flushing when the
// backend streams. Returns a *BackendError or *BackendTimeoutError only
// when nothing has been written to w yet; once relay starts, disconnects
// are logged and swallowed since no status can be changed anymore.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	var cancel context.CancelFunc
	if f.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	out, err := f.buildRequest(ctx, r)
	if err != nil {
		return &BackendError{Cause: err}
	}

	resp, err := f.client.Do(out)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && r.Context().Err() == nil {
			return &BackendTimeoutError{Timeout: f.timeout, Cause: err}
		}
		return &BackendError{Cause: err}
	}
	defer resp.Body.Close()
	tracing.SetBackendStatus(trace.SpanFromContext(ctx), resp.StatusCode)

	f.relay(w, r, resp)
	return nil
}

// buildRequest rebuilds the inbound request against the backend base URL,
// preserving method, path, query, headers, and body. Hop-by-hop and router
// auth headers are stripped.
func (f *Forwarder) buildRequest(ctx context.Context, r *http.Request) (*http.Request, error) {
	target := *f.backend
	target.Path = joinPath(f.backend.Path, r.URL.Path)
	target.RawQuery = r.URL.RawQuery

	out, err := http.NewRequestWithContext(ctx, r.Method, target.String(), r.Body)
	if err != nil {
		return nil, err
	}
	out.ContentLength = r.ContentLength

	out.Header = r.Header.Clone()
	for _, name := range hopByHopHeaders {
		out.Header.Del(name)
	}
	signature.StripHeaders(out.Header)
	// Overwrites any inbound traceparent, so the backend continues from
	// the proxy span rather than its parent.
	tracing.Inject(ctx, out.Header)

	return out, nil
}

// relay copies the backend response to the client.
func (f *Forwarder) relay(w http.ResponseWriter, r *http.Request, resp *http.Response) {
	header := w.Header()
	for name, values := range resp.Header {
		if isHopByHop(name) {
			continue
		}
		for _, value := range values {
			header.Add(name, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	streamed := isStreamed(resp)
	written, err := f.copyBody(w, resp, streamed)
	if err != nil {
		// The status line is long gone; all that is left is to note how
		// the relay ended.
		f.logger.Debug("response relay interrupted",
			"path", r.URL.Path,
			"status", resp.StatusCode,
			"streamed", streamed,
			"bytes_written", written,
			"error", err,
		)
	}
}

// copyBody relays the response body. Streamed responses are flushed after
// every read so tokens reach the client as the backend emits them.
func (f *Forwarder) copyBody(w http.ResponseWriter, resp *http.Response, streamed bool) (int64, error) {
	flusher, canFlush := w.(http.Flusher)
	if streamed && canFlush {
		flusher.Flush()
	}

	var written int64
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			wn, writeErr := w.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, writeErr
			}
			if streamed && canFlush {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, readErr
		}
	}
}

// isStreamed reports whether the backend response should be relayed with
// per-chunk flushing: event streams, NDJSON, chunked transfer encoding, or
// a body of unknown length.
func isStreamed(resp *http.Response) bool {
	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "text/event-stream") ||
		strings.HasPrefix(contentType, "application/x-ndjson") {
		return true
	}
	for _, enc := range resp.TransferEncoding {
		if enc == "chunked" {
			return true
		}
	}
	return resp.ContentLength < 0
}

func isHopByHop(name string) bool {
	for _, h := range hopByHopHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}

// joinPath joins the backend base path with the request path, collapsing
// the joining slash.
func joinPath(base, request string) string {
	switch {
	case base == "" || base == "/":
		return request
	case strings.HasSuffix(base, "/") && strings.HasPrefix(request, "/"):
		return base + strings.TrimPrefix(request, "/")
	case !strings.HasSuffix(base, "/") && !strings.HasPrefix(request, "/"):
		return base + "/" + request
	default:
		return base + request
	}
}
