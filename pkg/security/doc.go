/*
Package security holds the worker's trust boundary: request signature
verification and transport security for the proxy listener.

# Request Signatures

The fleet router signs every request it dispatches. The signature
subpackage verifies those signatures before a request reaches admission:

	verifier, err := signature.NewVerifier(cfg.Security)
	if err != nil {
		log.Fatal(err)
	}

	if err := verifier.Verify(sig); err != nil {
		// reject the request
	}

Verification is disabled only by the explicit security.unsecured setting,
intended for local development against a bare backend.

# TLS

The tls subpackage builds the listener's TLS configuration and keeps the
serving certificate current while the fleet rotates it on disk:

	tlsConfig, err := tls.ServerConfig(ctx, cfg.Security.TLS)
	if err != nil {
		log.Fatal(err)
	}
*/
package security
