package request

import (
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single transport attempt when the spec does not
	// set its own.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRetries is the number of backoff retries after the first
	// attempt.
	DefaultMaxRetries = 2
	// NoRetries disables backoff retries for a spec.
	NoRetries = -1
)

// RequestSpec describes one logical request. It is immutable once constructed;
// the executor derives per-attempt copies (e.g. with a fresh Authorization
// header) and never mutates the original.
type RequestSpec struct {
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
	Timeout time.Duration // zero means DefaultTimeout
	// MaxRetries caps backoff retries. Zero means DefaultMaxRetries; use
	// NoRetries to disable retrying entirely.
	MaxRetries int
	// SkipAuth skips Authorization header injection and 401 refresh handling,
	// e.g. for login and refresh calls themselves.
	SkipAuth bool
}

// NewSpec returns a spec with defaults applied.
func NewSpec(method, url string) RequestSpec {
	return RequestSpec{
		Method: method,
		URL:    url,
		Header: http.Header{},
	}
}

func (s RequestSpec) timeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

func (s RequestSpec) maxRetries() int {
	if s.MaxRetries == NoRetries {
		return 0
	}
	if s.MaxRetries == 0 {
		return DefaultMaxRetries
	}
	return s.MaxRetries
}
