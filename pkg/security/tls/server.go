package tls

import (
	"context"
	"crypto/tls"
	"fmt"

	"mercator-hq/ganymede/pkg/config"
)

// ServerConfig builds the listener's TLS configuration. The certificate is
// served through a reloader so an in-place rotation takes effect without a
// restart; the reloader stops with ctx. Returns nil when TLS is disabled.
func ServerConfig(ctx context.Context, cfg config.TLSConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.CertFile == "" {
		return nil, fmt.Errorf("TLS cert file not specified")
	}
	if cfg.KeyFile == "" {
		return nil, fmt.Errorf("TLS key file not specified")
	}

	reloader := NewCertificateReloader(cfg)
	if err := reloader.Start(ctx); err != nil {
		return nil, err
	}

	return &tls.Config{
		MinVersion:     minTLSVersion(cfg.MinVersion),
		GetCertificate: reloader.GetCertificate,
	}, nil
}

// minTLSVersion maps the config string to the crypto/tls constant. Unknown
// values were rejected by config validation; 1.3 is the fallback.
func minTLSVersion(v string) uint16 {
	if v == "1.2" {
		return tls.VersionTLS12
	}
	return tls.VersionTLS13
}
