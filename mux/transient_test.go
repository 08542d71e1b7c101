package mux

import (
	"context"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestConnectivityError(t *testing.T) {
	transient := []error{
		context.DeadlineExceeded,
		&net.DNSError{Err: "no such host", Name: "example.com", IsNotFound: true},
		&net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
		&url.Error{Op: "Get", URL: "http://example.com", Err: &net.OpError{Op: "dial", Err: syscall.ETIMEDOUT}},
		syscall.ECONNRESET,
		errors.Wrap(syscall.EHOSTUNREACH, "fetching config"),
	}
	for _, err := range transient {
		assert.True(t, ConnectivityError(err), "%v", err)
	}

	terminal := []error{
		nil,
		errors.New("decode failed"),
		io.ErrUnexpectedEOF,
		context.Canceled,
	}
	for _, err := range terminal {
		assert.False(t, ConnectivityError(err), "%v", err)
	}
}

func TestNeverTransient(t *testing.T) {
	assert.False(t, NeverTransient(errBoom))
	assert.False(t, NeverTransient(nil))
}
