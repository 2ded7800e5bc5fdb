package signature

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"

	"mercator-hq/ganymede/pkg/config"
)

// Verifier checks request signatures against the fleet router's RSA public
// key.
type Verifier struct {
	key *rsa.PublicKey
}

// NewVerifier loads the router public key from the security configuration.
// A key file wins over an inline key when both are set.
func NewVerifier(cfg config.SecurityConfig) (*Verifier, error) {
	var pemData []byte
	switch {
	case cfg.PublicKeyFile != "":
		data, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key file: %w", err)
		}
		pemData = data
	case cfg.PublicKey != "":
		pemData = []byte(cfg.PublicKey)
	default:
		return nil, fmt.Errorf("no public key configured")
	}

	key, err := ParsePublicKey(pemData)
	if err != nil {
		return nil, err
	}
	return &Verifier{key: key}, nil
}

// ParsePublicKey parses a PEM-encoded RSA public key in either PKIX
// ("PUBLIC KEY") or PKCS#1 ("RSA PUBLIC KEY") form.
func ParsePublicKey(pemData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in public key data")
	}

	if parsed, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is %T, expected RSA", parsed)
		}
		return key, nil
	}

	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return key, nil
}

// Verify checks that sig's signature covers sig's message. It returns a
// *Error describing the rejection, or nil for a valid signature.
func (v *Verifier) Verify(sig Signature) error {
	if sig.Signature == "" {
		return &Error{Reason: "missing signature header"}
	}

	raw, err := base64.StdEncoding.DecodeString(sig.Signature)
	if err != nil {
		return &Error{Reason: "signature is not valid base64", Cause: err}
	}

	digest := sha256.Sum256(sig.Message())
	if err := rsa.VerifyPKCS1v15(v.key, crypto.SHA256, digest[:], raw); err != nil {
		return &Error{Reason: "signature does not match", Cause: err}
	}
	return nil
}
