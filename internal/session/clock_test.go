package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func tokenExpiringAt(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	return signedToken(t, jwt.MapClaims{"sub": "u1", "exp": expiresAt.Unix()})
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		token   string
		expired bool
	}{
		{"future expiry", tokenExpiringAt(t, now.Add(time.Hour)), false},
		{"past expiry", tokenExpiringAt(t, now.Add(-time.Second)), true},
		{"expiry equals now", tokenExpiringAt(t, now), true},
		{"no exp claim", signedToken(t, jwt.MapClaims{"sub": "u1"}), true},
		{"malformed token", "not.a.token", true},
		{"empty token", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, IsExpired(tt.token, now))
		})
	}
}

func TestShouldRefresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	threshold := 12 * time.Hour

	tests := []struct {
		name    string
		token   string
		refresh bool
	}{
		{"well before threshold", tokenExpiringAt(t, now.Add(48 * time.Hour)), false},
		{"just outside threshold", tokenExpiringAt(t, now.Add(threshold + time.Minute)), false},
		{"inside threshold", tokenExpiringAt(t, now.Add(threshold - time.Minute)), true},
		{"exactly at threshold", tokenExpiringAt(t, now.Add(threshold)), true},
		{"already expired", tokenExpiringAt(t, now.Add(-time.Minute)), false},
		{"malformed", "garbage", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.refresh, ShouldRefresh(tt.token, now, threshold))
		})
	}
}

// A token is never simultaneously expired and refresh-worthy.
func TestExpiredAndRefreshMutuallyExclusive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	offsets := []time.Duration{-time.Hour, -time.Second, 0, time.Second, 6 * time.Hour, 12 * time.Hour, 72 * time.Hour}
	for _, offset := range offsets {
		token := tokenExpiringAt(t, now.Add(offset))
		if IsExpired(token, now) {
			assert.False(t, ShouldRefresh(token, now, 12*time.Hour), "offset %v", offset)
		}
	}
}
