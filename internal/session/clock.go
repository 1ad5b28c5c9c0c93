// Package session keeps a client's bearer token alive: a durable token
// store, pure expiry arithmetic, a coalesced refresh service, and a
// cancellable scheduler that renews the token before it lapses.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultRefreshThreshold is how close to expiry a token must be before it
// is worth renewing.
const DefaultRefreshThreshold = 12 * time.Hour

// IsExpired reports whether the bearer token has lapsed. Tokens that cannot
// be decoded or carry no expiry claim count as expired: a token we cannot
// reason about must not be trusted.
func IsExpired(token string, now time.Time) bool {
	expiresAt, ok := expiryOf(token)
	if !ok {
		return true
	}
	return !expiresAt.After(now)
}

// ShouldRefresh reports whether the token is still valid but inside the
// refresh window. An expired token is never flagged: its session is already
// lost and only re-authentication helps.
func ShouldRefresh(token string, now time.Time, threshold time.Duration) bool {
	if IsExpired(token, now) {
		return false
	}
	expiresAt, _ := expiryOf(token)
	return expiresAt.Sub(now) <= threshold
}

// expiryOf decodes the exp claim without verifying the signature. Only the
// server verifies tokens; the client just reads the timestamps it was given.
func expiryOf(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	expiresAt, err := claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return time.Time{}, false
	}

	return expiresAt.Time, true
}
