package tls

import (
	"context"
	"crypto/tls"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/config"
)

func TestServerConfigDisabled(t *testing.T) {
	cfg, err := ServerConfig(context.Background(), config.TLSConfig{Enabled: false})
	if err != nil {
		t.Fatalf("ServerConfig() error = %v", err)
	}
	if cfg != nil {
		t.Error("ServerConfig() should return nil when TLS is disabled")
	}
}

func TestServerConfigMissingFiles(t *testing.T) {
	_, err := ServerConfig(context.Background(), config.TLSConfig{Enabled: true})
	if err == nil {
		t.Error("ServerConfig() should fail without a cert file")
	}

	_, err = ServerConfig(context.Background(), config.TLSConfig{Enabled: true, CertFile: "cert.pem"})
	if err == nil {
		t.Error("ServerConfig() should fail without a key file")
	}
}

func TestServerConfig(t *testing.T) {
	now := time.Now()
	certFile, keyFile := writeCertPair(t, t.TempDir(), 1, now.Add(-time.Hour), now.Add(90*24*time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := ServerConfig(ctx, config.TLSConfig{
		Enabled:        true,
		CertFile:       certFile,
		KeyFile:        keyFile,
		MinVersion:     "1.3",
		ReloadInterval: time.Minute,
	})
	if err != nil {
		t.Fatalf("ServerConfig() error = %v", err)
	}

	if cfg.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x, want TLS 1.3", cfg.MinVersion)
	}
	if cfg.GetCertificate == nil {
		t.Fatal("GetCertificate is nil")
	}

	cert, err := cfg.GetCertificate(nil)
	if err != nil {
		t.Fatalf("GetCertificate() error = %v", err)
	}
	if len(cert.Certificate) == 0 {
		t.Error("certificate chain is empty")
	}
}

func TestMinTLSVersion(t *testing.T) {
	tests := []struct {
		in   string
		want uint16
	}{
		{"1.2", tls.VersionTLS12},
		{"1.3", tls.VersionTLS13},
		{"", tls.VersionTLS13},
		{"bogus", tls.VersionTLS13},
	}
	for _, tt := range tests {
		if got := minTLSVersion(tt.in); got != tt.want {
			t.Errorf("minTLSVersion(%q) = %x, want %x", tt.in, got, tt.want)
		}
	}
}
