package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/proxy/middleware"
	"mercator-hq/ganymede/pkg/security/signature"
	securitytls "mercator-hq/ganymede/pkg/security/tls"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

// Server is the HTTP listener carrying backend traffic.
type Server struct {
	config       config.ProxyConfig
	security     config.SecurityConfig
	pipeline     *Handler
	verifier     *signature.Verifier
	collector    *metrics.Collector
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates the proxy server. verifier may be nil only when the
// security config says unsecured; in that mode requests are forwarded
// without signature checks. A nil collector disables request metrics.
func NewServer(cfg config.ProxyConfig, securityCfg config.SecurityConfig, pipeline *Handler, verifier *signature.Verifier, collector *metrics.Collector) (*Server, error) {
	if verifier == nil && !securityCfg.Unsecured {
		return nil, fmt.Errorf("no signature verifier and security.unsecured is false")
	}
	return &Server{
		config:       cfg,
		security:     securityCfg,
		pipeline:     pipeline,
		verifier:     verifier,
		collector:    collector,
		shutdownChan: make(chan struct{}),
		isRunning:    false,
	}, nil
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	// No ReadTimeout or WriteTimeout: either would cut long generation
	// streams. ReadHeaderTimeout still bounds slow-header clients and the
	// forwarder carries the per-request backend ceiling.
	s.httpServer = &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		MaxHeaderBytes:    s.config.MaxHeaderBytes,
	}

	if s.security.TLS.Enabled {
		// The certificate comes from a reloader so fleet rotation on disk
		// takes effect without restarting the listener.
		tlsConfig, err := securitytls.ServerConfig(ctx, s.security.TLS)
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting proxy server",
			"address", s.config.ListenAddress,
			"tls_enabled", s.security.TLS.Enabled,
			"unsecured", s.verifier == nil,
		)

		var err error
		if s.security.TLS.Enabled {
			// Empty paths: the certificate is served via TLSConfig.GetCertificate.
			err = s.httpServer.ListenAndServeTLS("", "")
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server. In-flight requests get
// ShutdownTimeout to finish; their leases release as each relay ends.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("proxy server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// The platform liveness probe. Answered locally; everything else is
	// the pipeline's business.
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	// Catch-all: every other path goes through signature verification,
	// block rules, admission, the gate, and the forwarder. Auth wraps the
	// traffic route only; the liveness probe arrives unsigned.
	var traffic http.Handler = s.pipeline
	if s.verifier != nil {
		traffic = middleware.AuthMiddleware(s.verifier)(traffic)
	}
	mux.Handle("/", traffic)

	var handler http.Handler = mux

	// Logging middleware
	handler = middleware.LoggingMiddleware(handler)

	// Metrics middleware
	handler = middleware.MetricsMiddleware(s.collector)(handler)

	// Request ID middleware
	handler = middleware.RequestIDMiddleware(handler)

	// Recovery middleware (outermost)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler, routes and middleware
// included. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}
