package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvcrn/httpkit/internal/credentials"
	"github.com/dvcrn/httpkit/internal/transport"
)

type transportFunc func(ctx context.Context, method, url string, header http.Header, body []byte) (*transport.Response, error)

func (f transportFunc) Send(ctx context.Context, method, url string, header http.Header, body []byte) (*transport.Response, error) {
	return f(ctx, method, url, header, body)
}

func refreshSuccessBody(t *testing.T, accessToken, refreshToken string) []byte {
	t.Helper()
	b, err := json.Marshal(refreshResponse{AccessToken: accessToken, RefreshToken: refreshToken})
	require.NoError(t, err)
	return b
}

func newTestStore(t *testing.T, refreshToken string) *credentials.MemoryStore {
	t.Helper()
	store := credentials.NewMemoryStore()
	if refreshToken != "" {
		require.NoError(t, store.Set(credentials.KeyRefreshToken, refreshToken))
	}
	return store
}

func TestRefresh_Success(t *testing.T) {
	store := newTestStore(t, "refresh-1")

	tr := transportFunc(func(ctx context.Context, method, url string, header http.Header, body []byte) (*transport.Response, error) {
		assert.Equal(t, http.MethodPost, method)
		assert.Equal(t, "https://api.test/auth/refresh", url)
		assert.Equal(t, "application/json", header.Get("Content-Type"))

		var req refreshRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "refresh-1", req.RefreshToken)

		return &transport.Response{Status: http.StatusOK, Body: refreshSuccessBody(t, "access-2", "refresh-2")}, nil
	})

	c := NewCoordinator(store, tr, "https://api.test/auth/refresh", zerolog.Nop())
	pair, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", pair.AccessToken)
	assert.Equal(t, "refresh-2", pair.RefreshToken)

	access, _, _ := store.Get(credentials.KeyAccessToken)
	refresh, _, _ := store.Get(credentials.KeyRefreshToken)
	assert.Equal(t, "access-2", access)
	assert.Equal(t, "refresh-2", refresh)
}

func TestRefresh_NoRefreshTokenFailsFast(t *testing.T) {
	var calls atomic.Int32
	tr := transportFunc(func(ctx context.Context, method, url string, header http.Header, body []byte) (*transport.Response, error) {
		calls.Add(1)
		return &transport.Response{Status: http.StatusOK}, nil
	})

	c := NewCoordinator(newTestStore(t, ""), tr, "https://api.test/auth/refresh", zerolog.Nop())
	_, err := c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Equal(t, int32(0), calls.Load())
}

func TestRefresh_NonRotatingServerKeepsStoredRefreshToken(t *testing.T) {
	store := newTestStore(t, "refresh-1")
	tr := transportFunc(func(ctx context.Context, method, url string, header http.Header, body []byte) (*transport.Response, error) {
		return &transport.Response{Status: http.StatusOK, Body: refreshSuccessBody(t, "access-2", "")}, nil
	})

	c := NewCoordinator(store, tr, "https://api.test/auth/refresh", zerolog.Nop())
	pair, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", pair.RefreshToken)

	refresh, _, _ := store.Get(credentials.KeyRefreshToken)
	assert.Equal(t, "refresh-1", refresh)
}

func TestRefresh_FailureLeavesStoreUntouched(t *testing.T) {
	store := newTestStore(t, "refresh-1")
	require.NoError(t, store.Set(credentials.KeyAccessToken, "access-1"))

	tr := transportFunc(func(ctx context.Context, method, url string, header http.Header, body []byte) (*transport.Response, error) {
		return &transport.Response{Status: http.StatusUnauthorized, Body: []byte(`{"error":"invalid_grant"}`)}, nil
	})

	c := NewCoordinator(store, tr, "https://api.test/auth/refresh", zerolog.Nop())
	_, err := c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrRefreshFailed)

	access, _, _ := store.Get(credentials.KeyAccessToken)
	refresh, _, _ := store.Get(credentials.KeyRefreshToken)
	assert.Equal(t, "access-1", access)
	assert.Equal(t, "refresh-1", refresh)
}

func TestRefresh_TransportErrorWrappedAsRefreshFailed(t *testing.T) {
	tr := transportFunc(func(ctx context.Context, method, url string, header http.Header, body []byte) (*transport.Response, error) {
		return nil, transport.ErrNetworkUnavailable
	})

	c := NewCoordinator(newTestStore(t, "refresh-1"), tr, "https://api.test/auth/refresh", zerolog.Nop())
	_, err := c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrRefreshFailed)
}

func TestRefresh_SingleFlight(t *testing.T) {
	const callers = 8

	store := newTestStore(t, "refresh-1")
	release := make(chan struct{})
	var calls atomic.Int32

	tr := transportFunc(func(ctx context.Context, method, url string, header http.Header, body []byte) (*transport.Response, error) {
		calls.Add(1)
		<-release
		return &transport.Response{Status: http.StatusOK, Body: refreshSuccessBody(t, "access-2", "refresh-2")}, nil
	})

	c := NewCoordinator(store, tr, "https://api.test/auth/refresh", zerolog.Nop())

	var wg sync.WaitGroup
	results := make([]TokenPair, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Refresh(context.Background())
		}(i)
	}

	// Give every caller time to attach to the in-flight refresh, then let it
	// complete.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "expected exactly one refresh call")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "access-2", results[i].AccessToken)
	}
}

func TestRefresh_NewAttemptAllowedAfterFailure(t *testing.T) {
	store := newTestStore(t, "refresh-1")
	var calls atomic.Int32

	tr := transportFunc(func(ctx context.Context, method, url string, header http.Header, body []byte) (*transport.Response, error) {
		if calls.Add(1) == 1 {
			return &transport.Response{Status: http.StatusInternalServerError}, nil
		}
		return &transport.Response{Status: http.StatusOK, Body: refreshSuccessBody(t, "access-2", "refresh-2")}, nil
	})

	c := NewCoordinator(store, tr, "https://api.test/auth/refresh", zerolog.Nop())

	_, err := c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrRefreshFailed)

	pair, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", pair.AccessToken)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRefresh_CallerCancellationDoesNotAbortSharedRefresh(t *testing.T) {
	store := newTestStore(t, "refresh-1")
	started := make(chan struct{})

	tr := transportFunc(func(ctx context.Context, method, url string, header http.Header, body []byte) (*transport.Response, error) {
		close(started)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return &transport.Response{Status: http.StatusOK, Body: refreshSuccessBody(t, "access-2", "refresh-2")}, nil
		}
	})

	c := NewCoordinator(store, tr, "https://api.test/auth/refresh", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	pair, err := c.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", pair.AccessToken)
}
