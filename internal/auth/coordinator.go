package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/dvcrn/httpkit/internal/credentials"
	"github.com/dvcrn/httpkit/internal/transport"
)

const refreshTimeout = 10 * time.Second

var (
	// ErrNoRefreshToken means the credential store holds no refresh token, so
	// a refresh cannot even be attempted.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrRefreshFailed means the refresh attempt did not produce new tokens.
	// Stored credentials are left untouched; escalating to a sign-out is the
	// caller's decision.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// Coordinator performs access-token refreshes with a single-flight guarantee:
// concurrent callers share one refresh call and one outcome. The singleflight
// key is cleared before any waiter is released, so the next 401 after a failed
// refresh starts a fresh attempt.
type Coordinator struct {
	store      credentials.Store
	transport  transport.Transport
	refreshURL string
	logger     zerolog.Logger
	group      singleflight.Group
}

func NewCoordinator(store credentials.Store, tr transport.Transport, refreshURL string, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:      store,
		transport:  tr,
		refreshURL: refreshURL,
		logger:     logger,
	}
}

// Refresh exchanges the stored refresh token for a new token pair. All callers
// arriving while a refresh is in flight attach to it and receive its result.
func (c *Coordinator) Refresh(ctx context.Context) (TokenPair, error) {
	v, err, shared := c.group.Do("refresh", func() (interface{}, error) {
		// The refresh outcome is shared by every attached waiter, so it must
		// not die with whichever caller happened to start it. It runs under
		// its own deadline instead.
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return c.doRefresh(refreshCtx)
	})
	if err != nil {
		return TokenPair{}, err
	}
	if shared {
		c.logger.Debug().Msg("attached to in-flight token refresh")
	}
	return v.(TokenPair), nil
}

func (c *Coordinator) doRefresh(ctx context.Context) (TokenPair, error) {
	refreshToken, ok, err := c.store.Get(credentials.KeyRefreshToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to read refresh token: %w", err)
	}
	if !ok || refreshToken == "" {
		return TokenPair{}, ErrNoRefreshToken
	}

	c.logger.Info().Msg("🔄 Refreshing access token...")

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	resp, err := c.transport.Send(ctx, http.MethodPost, c.refreshURL, header, body)
	if err != nil {
		c.logger.Error().Err(err).Msg("❌ Token refresh request failed")
		return TokenPair{}, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if resp.Status < 200 || resp.Status > 299 {
		c.logger.Error().Int("status", resp.Status).Msg("❌ Token refresh rejected")
		return TokenPair{}, fmt.Errorf("%w: refresh endpoint returned status %d", ErrRefreshFailed, resp.Status)
	}

	var tokenResp refreshResponse
	if err := json.Unmarshal(resp.Body, &tokenResp); err != nil {
		return TokenPair{}, fmt.Errorf("%w: failed to decode refresh response: %v", ErrRefreshFailed, err)
	}
	if tokenResp.AccessToken == "" {
		return TokenPair{}, fmt.Errorf("%w: refresh response missing access token", ErrRefreshFailed)
	}

	// Servers running in fixed (non-rotating) mode omit the refresh token;
	// the stored one stays valid.
	newRefreshToken := tokenResp.RefreshToken
	if newRefreshToken == "" {
		newRefreshToken = refreshToken
	}

	// The refresh token is written first so a reader of the new access token
	// always observes a complete pair.
	if err := c.store.Set(credentials.KeyRefreshToken, newRefreshToken); err != nil {
		return TokenPair{}, fmt.Errorf("%w: failed to persist refresh token: %v", ErrRefreshFailed, err)
	}
	if err := c.store.Set(credentials.KeyAccessToken, tokenResp.AccessToken); err != nil {
		return TokenPair{}, fmt.Errorf("%w: failed to persist access token: %v", ErrRefreshFailed, err)
	}

	c.logger.Info().Msg("✅ Access token refreshed successfully")

	return TokenPair{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}
