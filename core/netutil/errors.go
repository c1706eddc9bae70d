package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/url"
)

var errNotReplayable = errors.New("netutil: request body cannot be replayed")

// ShouldRetry reports whether err is a transient dial or timeout failure
// worth another attempt. Context cancellation is never retried.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch Kind(err) {
	case KindTimeout, KindDial:
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		//nolint:staticcheck // Temporary still flags ECONNRESET-style failures.
		return netErr.Temporary()
	}
	return false
}

// Failure kinds returned by Kind.
const (
	KindTimeout = "timeout"
	KindDNS     = "dns"
	KindDial    = "dial"
	KindTLS     = "tls"
	KindUnknown = "unknown"
)

// Kind classifies a network error for logging.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindDial
	}

	var alertErr tls.AlertError
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &alertErr) || errors.As(err, &certErr) {
		return KindTLS
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return KindTimeout
	}
	return KindUnknown
}
