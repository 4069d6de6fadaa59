package request

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dvcrn/httpkit/internal/transport"
)

// HTTPError is a completed exchange with a non-2xx status. The executor only
// special-cases 401 (refresh-and-retry once) and 5xx (backoff retries); every
// other status surfaces as an HTTPError on the first occurrence.
type HTTPError struct {
	Status int
	Header http.Header
	Body   []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.Status)
}

func httpError(resp *transport.Response) *HTTPError {
	return &HTTPError{Status: resp.Status, Header: resp.Header, Body: resp.Body}
}

// DecodeJSON unmarshals a response body into out. No-content responses (204 or
// an empty body) leave out untouched instead of failing to parse.
func DecodeJSON(resp *transport.Response, out interface{}) error {
	if resp.NoContent() {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
