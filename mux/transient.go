package mux

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// ConnectivityError is the default transient-error predicate. It reports true
// for failures that indicate the remote end was unreachable rather than that
// the request itself was invalid: timeouts, DNS failures, refused or reset
// connections, and unreachable hosts or networks. For these, serving a
// previously fetched value is preferable to surfacing the error.
func ConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Covers *net.OpError, *net.DNSError and *url.Error.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.ETIMEDOUT):
		return true
	}
	return false
}

// NeverTransient treats every producer error as terminal, disabling the
// fallback-value policy entirely.
func NeverTransient(error) bool {
	return false
}
