package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

// Reporter delivers status reports to the autoscaler endpoint. One
// background goroutine sends on the heartbeat interval and on coalesced
// Notify triggers; nothing in the traffic path ever waits on it.
type Reporter struct {
	builder     *Builder
	url         string
	interval    time.Duration
	sendTimeout time.Duration
	client      *http.Client
	collector   *metrics.Collector
	logger      *slog.Logger

	notify   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu        sync.Mutex
	sent      int64
	failures  int64
	lastError string
}

// NewReporter creates a reporter. An empty endpoint URL logs each report
// locally instead of sending it. A nil collector disables send metrics.
func NewReporter(builder *Builder, cfg config.ReportingConfig, collector *metrics.Collector) *Reporter {
	return &Reporter{
		builder:     builder,
		url:         cfg.URL,
		interval:    cfg.Interval,
		sendTimeout: cfg.SendTimeout,
		client:      &http.Client{Timeout: cfg.SendTimeout},
		collector:   collector,
		logger:      slog.Default().With("component", "report.reporter"),
		notify:      make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// Start launches the delivery loop.
func (r *Reporter) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.run(ctx)

	r.logger.Info("status reporting started",
		"endpoint", r.url,
		"interval", r.interval,
		"send_timeout", r.sendTimeout,
	)
}

// Notify requests an out-of-cycle report after a load change. Non-blocking;
// while one trigger is pending further calls fold into it.
func (r *Reporter) Notify() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Stop terminates the delivery loop and waits for it to finish. A report in
// flight completes; pending triggers are dropped.
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}

// Counters returns how many reports were delivered and how many deliveries
// failed.
func (r *Reporter) Counters() (sent, failures int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent, r.failures
}

// SendTerminal delivers the final report for a fatal exit. Synchronous and
// best-effort: a delivery failure is logged, never returned, because the
// process is about to exit either way.
func (r *Reporter) SendTerminal(errMsg string) {
	rep := r.builder.Terminal(errMsg)

	if r.url == "" {
		r.logger.Error("terminal report (no endpoint configured)",
			"worker_id", rep.ID,
			"error_msg", rep.ErrorMsg,
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.sendTimeout)
	defer cancel()

	if err := r.post(ctx, rep); err != nil {
		r.logger.Warn("terminal report delivery failed", "error", err)
		return
	}
	r.logger.Info("terminal report delivered", "error_msg", rep.ErrorMsg)
}

func (r *Reporter) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
		case <-r.notify:
		}
		r.send(ctx)
	}
}

// send builds and delivers one report. The watermark advances only on
// success.
func (r *Reporter) send(ctx context.Context) {
	rep := r.builder.Build()

	if r.url == "" {
		r.logger.Debug("status report (no endpoint configured)",
			"cur_load", rep.CurLoad,
			"new_load", rep.NewLoad,
			"rej_load", rep.RejLoad,
			"max_perf", rep.MaxPerf,
			"num_working", rep.NumRequestsWorking,
		)
		r.builder.Commit()
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()

	if err := r.post(sendCtx, rep); err != nil {
		r.mu.Lock()
		r.failures++
		failures := r.failures
		r.lastError = err.Error()
		r.mu.Unlock()

		r.logger.Warn("status report delivery failed",
			"endpoint", r.url,
			"failures", failures,
			"error", err,
		)
		return
	}

	r.builder.Commit()

	r.mu.Lock()
	r.sent++
	r.mu.Unlock()

	r.logger.Debug("status report delivered",
		"cur_load", rep.CurLoad,
		"new_load", rep.NewLoad,
		"cur_perf", rep.CurPerf,
	)
}

// post delivers one report. Every attempt lands in the send metrics,
// terminal reports included.
func (r *Reporter) post(ctx context.Context, rep *StatusReport) (err error) {
	start := time.Now()
	defer func() {
		r.collector.RecordReportSend(err == nil, time.Since(start))
	}()

	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("report endpoint answered %d", resp.StatusCode)
	}
	return nil
}
