package transport

import (
	"context"
	"net/http"
)

// Response is the outcome of a single completed HTTP exchange. The body has
// been fully read by the time a Response is returned.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NoContent reports whether the response carries no body to decode.
func (r *Response) NoContent() bool {
	return r.Status == http.StatusNoContent || len(r.Body) == 0
}

// Transport performs one network exchange. Deadlines and cancellation arrive
// through ctx; retry and auth policy live above this interface.
type Transport interface {
	Send(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error)
}
