// Package tls builds the proxy listener's TLS configuration and keeps the
// serving certificate current while the fleet rotates it on disk.
package tls
