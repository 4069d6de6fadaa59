package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrTimeout indicates the exchange exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrNetworkUnavailable indicates a connection-level failure before any
	// response was received.
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrNotConfigured is returned by the NotConfigured transport.
	ErrNotConfigured = errors.New("transport not configured")
)

// Retryable reports whether err is a transient transport failure worth
// retrying.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetworkUnavailable)
}

// classify maps an http.Client error onto the transport error taxonomy.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
}
