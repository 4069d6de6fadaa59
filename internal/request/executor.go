package request

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvcrn/httpkit/internal/auth"
	"github.com/dvcrn/httpkit/internal/credentials"
	"github.com/dvcrn/httpkit/internal/transport"
)

const (
	defaultBackoffBase = 1 * time.Second
	defaultBackoffCap  = 5 * time.Second
)

// Refresher exchanges the stored refresh token for a new token pair.
type Refresher interface {
	Refresh(ctx context.Context) (auth.TokenPair, error)
}

// Executor issues one logical request: it applies the spec's timeout per
// attempt, injects the current access token, retries transient failures with
// capped exponential backoff, and on a first-attempt 401 refreshes the token
// and retries exactly once.
type Executor struct {
	store       credentials.Store
	transport   transport.Transport
	refresher   Refresher
	logger      zerolog.Logger
	backoffBase time.Duration
	backoffCap  time.Duration
}

func NewExecutor(store credentials.Store, tr transport.Transport, refresher Refresher, logger zerolog.Logger) *Executor {
	return &Executor{
		store:       store,
		transport:   tr,
		refresher:   refresher,
		logger:      logger,
		backoffBase: defaultBackoffBase,
		backoffCap:  defaultBackoffCap,
	}
}

// SetBackoff overrides the retry delay schedule. The delay for attempt n is
// min(base<<n, cap).
func (e *Executor) SetBackoff(base, ceiling time.Duration) {
	e.backoffBase = base
	e.backoffCap = ceiling
}

// Execute runs the spec to completion. Non-2xx outcomes are returned as
// *HTTPError; transport failures surface as transport.ErrTimeout or
// transport.ErrNetworkUnavailable after retries are exhausted.
func (e *Executor) Execute(ctx context.Context, spec RequestSpec) (*transport.Response, error) {
	return e.execute(ctx, spec, 0)
}

func (e *Executor) execute(ctx context.Context, spec RequestSpec, attempt int) (*transport.Response, error) {
	resp, err := e.send(ctx, spec)
	if err != nil {
		if transport.Retryable(err) && attempt < spec.maxRetries() {
			e.logger.Warn().
				Err(err).
				Str("method", spec.Method).
				Str("url", spec.URL).
				Int("attempt", attempt).
				Msg("Transient failure, retrying after backoff")
			if werr := e.backoff(ctx, attempt); werr != nil {
				return nil, werr
			}
			return e.execute(ctx, spec, attempt+1)
		}
		return nil, err
	}

	// A 401 on the very first attempt triggers one refresh-and-retry. The
	// retried request is never refreshed again; a second 401 surfaces as-is.
	if resp.Status == http.StatusUnauthorized && !spec.SkipAuth && attempt == 0 && e.refresher != nil {
		if _, rerr := e.refresher.Refresh(ctx); rerr != nil {
			e.logger.Warn().
				Err(rerr).
				Str("url", spec.URL).
				Msg("Token refresh after 401 failed, surfacing original response")
			return nil, httpError(resp)
		}
		return e.execute(ctx, spec, attempt+1)
	}

	if resp.Status >= 500 {
		if attempt < spec.maxRetries() {
			e.logger.Warn().
				Int("status", resp.Status).
				Str("method", spec.Method).
				Str("url", spec.URL).
				Int("attempt", attempt).
				Msg("Server error, retrying after backoff")
			if werr := e.backoff(ctx, attempt); werr != nil {
				return nil, werr
			}
			return e.execute(ctx, spec, attempt+1)
		}
		return nil, httpError(resp)
	}

	if resp.Status >= 400 {
		return nil, httpError(resp)
	}

	return resp, nil
}

// send performs one transport attempt under the spec's deadline. The header
// copy keeps the caller's spec immutable across retries.
func (e *Executor) send(ctx context.Context, spec RequestSpec) (*transport.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, spec.timeout())
	defer cancel()

	header := http.Header{}
	for k, vs := range spec.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}

	if !spec.SkipAuth {
		token, ok, err := e.store.Get(credentials.KeyAccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to read access token: %w", err)
		}
		if ok && token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	return e.transport.Send(callCtx, spec.Method, spec.URL, header, spec.Body)
}

// delayFor returns min(base<<attempt, cap).
func (e *Executor) delayFor(attempt int) time.Duration {
	delay := e.backoffBase << attempt
	if delay <= 0 || delay > e.backoffCap {
		delay = e.backoffCap
	}
	return delay
}

func (e *Executor) backoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(e.delayFor(attempt))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
