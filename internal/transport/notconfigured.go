package transport

import (
	"context"
	"net/http"
)

// NotConfigured is the capability-absent Transport variant. It satisfies the
// interface for wiring code that may run without a usable network layer and
// fails every exchange with ErrNotConfigured.
type NotConfigured struct{}

func (NotConfigured) Send(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error) {
	return nil, ErrNotConfigured
}
