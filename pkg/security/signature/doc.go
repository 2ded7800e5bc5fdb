// Package signature verifies that incoming requests were dispatched by the
// fleet router.
//
// The router signs every request it routes: the declared cost, logical
// endpoint, monotonic request number, and target worker URL travel in
// X-Auth-* headers together with an RSA signature over those values. The
// worker holds only the router's public key; a request whose signature does
// not verify was not routed here and is rejected before admission.
//
// The cost header is the one signed value the worker interprets. Everything
// else in the request, including the body, is opaque and forwarded
// untouched; the auth headers themselves are stripped before forwarding.
package signature
