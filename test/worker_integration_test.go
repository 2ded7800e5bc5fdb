//go:build integration

package test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/ganymede/internal/backendtest"
	"mercator-hq/ganymede/pkg/admission"
	"mercator-hq/ganymede/pkg/capacity"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/gate"
	"mercator-hq/ganymede/pkg/proxy"
	"mercator-hq/ganymede/pkg/report"
	"mercator-hq/ganymede/pkg/security/signature"
	"mercator-hq/ganymede/pkg/workload"
)

// These tests assemble the worker the way the run command does and drive it
// over real HTTP: fake backend, calibrated estimator, admission, gate,
// blocklist, forwarder, and the full middleware chain.

const completionText = "the quick brown fox"

// worker is one fully assembled proxy pipeline behind an httptest listener.
type worker struct {
	backend   *backendtest.Server
	ledger    *workload.Ledger
	estimator *capacity.Estimator
	url       string
	client    *http.Client
}

// workerOptions tunes startWorker. The zero value yields an unsecured worker
// calibrated at 100 units/s with a ten second wait ceiling and a default
// cost of 50.
type workerOptions struct {
	security     config.SecurityConfig
	verifier     *signature.Verifier
	uncalibrated bool
}

func startWorker(t *testing.T, opts workerOptions) *worker {
	t.Helper()

	backend := backendtest.New()
	t.Cleanup(backend.Close)
	backend.SetCompletion(completionText, 64)

	if opts.verifier == nil {
		opts.security.Unsecured = true
	}

	backendCfg := config.BackendConfig{
		URL:            backend.URL(),
		HealthPath:     "/health",
		AllowParallel:  true,
		MaxConcurrent:  4,
		RequestTimeout: 30 * time.Second,
	}

	ledger := workload.NewLedger()

	bench, err := capacity.NewFixedBenchmark(100)
	if err != nil {
		t.Fatalf("NewFixedBenchmark: %v", err)
	}
	estimator := capacity.NewEstimator(bench, time.Minute, nil)
	if !opts.uncalibrated {
		if _, err := estimator.Calibrate(context.Background()); err != nil {
			t.Fatalf("Calibrate: %v", err)
		}
	}

	ctrl := admission.New(ledger, estimator, config.AdmissionConfig{
		MaxWaitTime: 10 * time.Second,
		DefaultCost: 50,
	})

	blocklist, err := proxy.NewBlocklist([]string{"/admin/*"})
	if err != nil {
		t.Fatalf("NewBlocklist: %v", err)
	}
	fwd, err := proxy.NewForwarder(backendCfg)
	if err != nil {
		t.Fatalf("NewForwarder: %v", err)
	}
	pipeline := proxy.NewHandler(ctrl, gate.FromConfig(backendCfg), blocklist, fwd, nil)

	srv, err := proxy.NewServer(config.ProxyConfig{
		ListenAddress:     "127.0.0.1:0",
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
		ShutdownTimeout:   5 * time.Second,
	}, opts.security, pipeline, opts.verifier, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &worker{
		backend:   backend,
		ledger:    ledger,
		estimator: estimator,
		url:       ts.URL,
		client:    ts.Client(),
	}
}

// completionRequest builds a POST to the traffic route carrying a declared
// cost, the way the fleet router submits work.
func completionRequest(t *testing.T, baseURL string, cost float64) *http.Request {
	t.Helper()
	body := strings.NewReader(`{"prompt":"integration","max_tokens":16}`)
	req, err := http.NewRequest(http.MethodPost, baseURL+"/v1/completions", body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signature.HeaderCost, strconv.FormatFloat(cost, 'f', -1, 64))
	return req
}

func doRequest(t *testing.T, client *http.Client, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return resp, string(b)
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWorkerEndToEnd(t *testing.T) {
	w := startWorker(t, workerOptions{})

	t.Run("liveness probe", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, w.url+"/ping", nil)
		if err != nil {
			t.Fatalf("building request: %v", err)
		}
		resp, body := doRequest(t, w.client, req)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if body != "pong" {
			t.Errorf("body = %q, want %q", body, "pong")
		}
	})

	t.Run("admitted request reaches the backend", func(t *testing.T) {
		resp, body := doRequest(t, w.client, completionRequest(t, w.url, 40))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d (body %q)", resp.StatusCode, http.StatusOK, body)
		}
		if !strings.Contains(body, completionText) {
			t.Errorf("response does not carry the backend completion: %q", body)
		}
		if got := w.backend.Completions(); got != 1 {
			t.Errorf("backend completions = %d, want 1", got)
		}
	})

	t.Run("blocked path never reaches the backend", func(t *testing.T) {
		before := w.backend.Completions()
		req, err := http.NewRequest(http.MethodPost, w.url+"/admin/reload", nil)
		if err != nil {
			t.Fatalf("building request: %v", err)
		}
		resp, body := doRequest(t, w.client, req)
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("status = %d, want %d (body %q)", resp.StatusCode, http.StatusForbidden, body)
		}
		if got := w.backend.Completions(); got != before {
			t.Errorf("backend completions = %d, want %d", got, before)
		}
	})

	t.Run("oversized request is rejected with a retry hint", func(t *testing.T) {
		// 100 units/s under a 10s wait ceiling admits at most 1000 units
		// at once.
		resp, body := doRequest(t, w.client, completionRequest(t, w.url, 5000))
		if resp.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("status = %d, want %d (body %q)", resp.StatusCode, http.StatusTooManyRequests, body)
		}
		if resp.Header.Get("Retry-After") == "" {
			t.Error("Retry-After header not set on rejection")
		}
	})

	t.Run("load drains after completion", func(t *testing.T) {
		snap := w.ledger.Snapshot()
		if snap.CurLoad != 0 {
			t.Errorf("cur load = %v after all requests finished, want 0", snap.CurLoad)
		}
		if snap.NumWorking != 0 {
			t.Errorf("working = %d, want 0", snap.NumWorking)
		}
	})
}

func TestWorkerRejectsBeforeCalibration(t *testing.T) {
	w := startWorker(t, workerOptions{uncalibrated: true})

	resp, body := doRequest(t, w.client, completionRequest(t, w.url, 40))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d (body %q)", resp.StatusCode, http.StatusServiceUnavailable, body)
	}
	if got := w.backend.Completions(); got != 0 {
		t.Errorf("backend completions = %d, want 0", got)
	}

	// Calibration opens admission without a restart.
	if _, err := w.estimator.Calibrate(context.Background()); err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	resp, body = doRequest(t, w.client, completionRequest(t, w.url, 40))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status after calibration = %d, want %d (body %q)", resp.StatusCode, http.StatusOK, body)
	}
}

func TestWorkerSignatureVerification(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshaling public key: %v", err)
	}
	pubPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	secCfg := config.SecurityConfig{PublicKey: pubPEM}
	verifier, err := signature.NewVerifier(secCfg)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	w := startWorker(t, workerOptions{security: secCfg, verifier: verifier})

	// sign attaches the auth headers the fleet router sends, covering
	// cost, endpoint, reqnum, and url.
	sign := func(t *testing.T, req *http.Request, cost, endpoint, reqnum, workerURL string) {
		t.Helper()
		msg := strings.Join([]string{cost, endpoint, reqnum, workerURL}, "\n")
		digest := sha256.Sum256([]byte(msg))
		sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
		if err != nil {
			t.Fatalf("signing request: %v", err)
		}
		req.Header.Set(signature.HeaderSignature, base64.StdEncoding.EncodeToString(sig))
		req.Header.Set(signature.HeaderCost, cost)
		req.Header.Set(signature.HeaderEndpoint, endpoint)
		req.Header.Set(signature.HeaderReqnum, reqnum)
		req.Header.Set(signature.HeaderURL, workerURL)
	}

	newCompletion := func(t *testing.T) *http.Request {
		t.Helper()
		req, err := http.NewRequest(http.MethodPost, w.url+"/v1/completions", strings.NewReader(`{"prompt":"hi"}`))
		if err != nil {
			t.Fatalf("building request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	t.Run("unsigned request is refused", func(t *testing.T) {
		resp, body := doRequest(t, w.client, newCompletion(t))
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d (body %q)", resp.StatusCode, http.StatusUnauthorized, body)
		}
		if got := w.backend.Completions(); got != 0 {
			t.Errorf("backend completions = %d, want 0", got)
		}
	})

	t.Run("signed request is admitted", func(t *testing.T) {
		req := newCompletion(t)
		sign(t, req, "40", "completions", "1", "http://worker.test:3000")
		resp, body := doRequest(t, w.client, req)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d (body %q)", resp.StatusCode, http.StatusOK, body)
		}
		if !strings.Contains(body, completionText) {
			t.Errorf("response does not carry the backend completion: %q", body)
		}
	})

	t.Run("tampered cost invalidates the signature", func(t *testing.T) {
		before := w.backend.Completions()
		req := newCompletion(t)
		sign(t, req, "40", "completions", "2", "http://worker.test:3000")
		req.Header.Set(signature.HeaderCost, "1")
		resp, body := doRequest(t, w.client, req)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d (body %q)", resp.StatusCode, http.StatusUnauthorized, body)
		}
		if got := w.backend.Completions(); got != before {
			t.Errorf("backend completions = %d, want %d", got, before)
		}
	})

	t.Run("liveness stays open", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, w.url+"/ping", nil)
		if err != nil {
			t.Fatalf("building request: %v", err)
		}
		resp, body := doRequest(t, w.client, req)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d (body %q)", resp.StatusCode, http.StatusOK, body)
		}
	})
}

func TestWorkerStatusReporting(t *testing.T) {
	w := startWorker(t, workerOptions{})

	var mu sync.Mutex
	var reports []report.StatusReport
	controller := httptest.NewServer(http.HandlerFunc(func(wr http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("report Content-Type = %q, want application/json", ct)
		}
		var rep report.StatusReport
		if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
			http.Error(wr, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		reports = append(reports, rep)
		mu.Unlock()
		wr.WriteHeader(http.StatusOK)
	}))
	defer controller.Close()

	reportingCfg := config.ReportingConfig{
		URL:         controller.URL,
		AuthToken:   "master-token",
		Interval:    50 * time.Millisecond,
		SendTimeout: 2 * time.Second,
	}
	workerCfg := config.WorkerConfig{
		ID:          "worker-itest",
		ExternalURL: "http://worker.test:3000",
		DataDir:     t.TempDir(),
	}
	disk := report.NewDiskProbe(workerCfg.DataDir, time.Minute)
	builder := report.NewBuilder(workerCfg, reportingCfg, 10*time.Second, w.ledger, w.estimator, disk)
	reporter := report.NewReporter(builder, reportingCfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reporter.Start(ctx)
	defer reporter.Stop()
	w.ledger.OnChange(reporter.Notify)

	resp, body := doRequest(t, w.client, completionRequest(t, w.url, 40))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", resp.StatusCode, http.StatusOK, body)
	}

	// The watermark protocol delivers each accepted unit in exactly one
	// successful report, so the new_load fields must sum to the admitted
	// cost once that report lands.
	var carrying report.StatusReport
	waitFor(t, 3*time.Second, "a status report carrying the admitted load", func() bool {
		mu.Lock()
		defer mu.Unlock()
		var total float64
		for _, rep := range reports {
			if rep.NewLoad > 0 {
				carrying = rep
			}
			total += rep.NewLoad
		}
		return total == 40
	})

	if carrying.ID != "worker-itest" {
		t.Errorf("report id = %q, want %q", carrying.ID, "worker-itest")
	}
	if carrying.MToken != "master-token" {
		t.Errorf("report mtoken = %q, want %q", carrying.MToken, "master-token")
	}
	if carrying.URL != "http://worker.test:3000" {
		t.Errorf("report url = %q, want %q", carrying.URL, "http://worker.test:3000")
	}
	if carrying.Version != report.ProtocolVersion {
		t.Errorf("report version = %d, want %d", carrying.Version, report.ProtocolVersion)
	}
	if carrying.MaxPerf != 100 {
		t.Errorf("report max_perf = %v, want 100", carrying.MaxPerf)
	}
	if carrying.MaxCapacity != 1000 {
		t.Errorf("report max_capacity = %v, want 1000", carrying.MaxCapacity)
	}
	if carrying.NumRequestsReceived < 1 {
		t.Errorf("report num_requests_received = %d, want >= 1", carrying.NumRequestsReceived)
	}
}
