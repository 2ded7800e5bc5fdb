package proxy

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/ganymede/pkg/admission"
	"mercator-hq/ganymede/pkg/gate"
	"mercator-hq/ganymede/pkg/proxy/middleware"
	"mercator-hq/ganymede/pkg/security/signature"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
	"mercator-hq/ganymede/pkg/telemetry/tracing"
)

// Handler runs the traffic pipeline: block rules, admission, the
// concurrency gate, then the forwarder. It is mounted as the catch-all
// route on the proxy listener; by the time a request arrives here the
// middleware chain has already assigned a request id and verified the
// signature.
type Handler struct {
	admission *admission.Controller
	gate      *gate.Gate
	blocklist *Blocklist
	forwarder *Forwarder
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewHandler creates the pipeline handler. A nil collector disables
// metrics recording.
func NewHandler(ctrl *admission.Controller, g *gate.Gate, blocklist *Blocklist, fwd *Forwarder, collector *metrics.Collector) *Handler {
	return &Handler{
		admission: ctrl,
		gate:      g,
		blocklist: blocklist,
		forwarder: fwd,
		collector: collector,
		logger:    slog.Default().With("component", "proxy.handler"),
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := tracing.Extract(r.Context(), r.Header)
	ctx, span := tracing.StartSpan(ctx, "proxy.request")
	defer span.End()
	r = r.WithContext(ctx)

	requestID := middleware.GetRequestID(ctx)
	path := r.URL.Path

	cost := signature.FromRequest(r).DeclaredCost()
	tracing.SetRequestAttributes(span, requestID, cost)

	// Blocked paths are refused before admission and leave no trace in
	// load accounting.
	if pattern, blocked := h.blocklist.Match(path); blocked {
		h.logger.Warn("path blocked",
			"request_id", requestID,
			"path", path,
			"pattern", pattern,
		)
		h.collector.RecordBlocked(pattern)
		tracing.SetDecision(span, "blocked", 0)
		WriteError(w, http.StatusForbidden, ErrorTypeBlocked,
			fmt.Sprintf("path %q is not served by this worker", path), requestID)
		return
	}

	if cost <= 0 {
		h.collector.RecordDefaultCost()
	}
	decision, err := h.admission.Admit(requestID, cost)
	if err != nil {
		h.refuse(w, span, err, requestID)
		return
	}
	h.collector.RecordDecision(metrics.OutcomeAdmitted)
	h.collector.ObserveProjectedWait(decision.ProjectedWait)
	tracing.SetDecision(span, metrics.OutcomeAdmitted, decision.ProjectedWait)
	// Exactly one release on every exit path below: success, backend
	// error, timeout, panic, client disconnect.
	defer decision.Lease.Release()

	gateStart := time.Now()
	if err := h.gate.Acquire(ctx); err != nil {
		// The client gave up while queued for the backend. There is
		// nobody left to answer.
		h.logger.Debug("client left the gate queue",
			"request_id", requestID,
			"path", path,
			"error", err,
		)
		tracing.SetError(span, err)
		return
	}
	gateWait := time.Since(gateStart)
	h.collector.ObserveGateWait(gateWait)
	tracing.SetGateWait(span, gateWait)
	defer h.gate.Release()

	if err := h.forwarder.Forward(w, r); err != nil {
		tracing.SetError(span, err)
		var timeout *BackendTimeoutError
		if errors.As(err, &timeout) {
			h.logger.Error("backend timed out",
				"request_id", requestID,
				"path", path,
				"timeout", timeout.Timeout,
			)
			WriteError(w, http.StatusGatewayTimeout, ErrorTypeTimeout,
				timeout.Error(), requestID)
			return
		}
		h.logger.Error("backend request failed",
			"request_id", requestID,
			"path", path,
			"error", err,
		)
		WriteError(w, http.StatusBadGateway, ErrorTypeBadGateway,
			"backend request failed", requestID)
	}
}

// refuse maps an admission error to its response. The controller already
// logged the decision; only unexpected errors are logged here.
func (h *Handler) refuse(w http.ResponseWriter, span trace.Span, err error, requestID string) {
	var notReady *admission.NotReadyError
	if errors.As(err, &notReady) {
		h.collector.RecordDecision(metrics.OutcomeNotReady)
		tracing.SetDecision(span, metrics.OutcomeNotReady, 0)
		WriteError(w, http.StatusServiceUnavailable, ErrorTypeNotReady,
			notReady.Error(), requestID)
		return
	}

	var overCapacity *admission.OverCapacityError
	if errors.As(err, &overCapacity) {
		h.collector.RecordDecision(metrics.OutcomeOverCapacity)
		h.collector.ObserveProjectedWait(overCapacity.ProjectedWait)
		tracing.SetDecision(span, metrics.OutcomeOverCapacity, overCapacity.ProjectedWait)
		retryAfter := int(math.Ceil(overCapacity.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		WriteError(w, http.StatusTooManyRequests, ErrorTypeOverCapacity,
			overCapacity.Error(), requestID)
		return
	}

	h.logger.Error("admission failed",
		"request_id", requestID,
		"error", err,
	)
	tracing.SetError(span, err)
	WriteError(w, http.StatusInternalServerError, ErrorTypeInternal,
		"admission failed", requestID)
}
