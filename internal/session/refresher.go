package session

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// ErrRefreshFailed means the session could not be exchanged for a new bearer
// token. It is client-local: callers should send the user back to sign-in
// rather than retry in a loop.
var ErrRefreshFailed = errors.New("session refresh failed")

// Provider mints a new bearer token for a still-valid session. Implemented
// by the API client against POST /auth/refresh.
type Provider interface {
	RefreshToken(ctx context.Context, sessionToken string) (string, error)
}

// Refresher exchanges the stored session for a fresh bearer token.
// Concurrent callers share a single provider call.
type Refresher struct {
	store    Store
	provider Provider
	group    singleflight.Group
}

func NewRefresher(store Store, provider Provider) *Refresher {
	return &Refresher{store: store, provider: provider}
}

// Refresh returns the new bearer token and writes it to the store. On any
// failure the store keeps its previous token untouched.
func (r *Refresher) Refresh(ctx context.Context) (string, error) {
	result, err, _ := r.group.Do("refresh", func() (any, error) {
		sessionToken, ok := r.store.SessionToken()
		if !ok {
			return "", fmt.Errorf("%w: no active session", ErrRefreshFailed)
		}

		token, err := r.provider.RefreshToken(ctx, sessionToken)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}

		if err := r.store.SetToken(token); err != nil {
			return "", fmt.Errorf("%w: persist token: %w", ErrRefreshFailed, err)
		}

		return token, nil
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}
