package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, store Store, provider *stubProvider, now time.Time) *Scheduler {
	t.Helper()
	scheduler := NewScheduler(store, NewRefresher(store, provider), SchedulerOptions{
		CheckInterval:    time.Hour, // ticks are driven manually in tests
		RefreshThreshold: 12 * time.Hour,
	})
	scheduler.now = func() time.Time { return now }
	return scheduler
}

func TestTickSkipsExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store := NewMemoryStore()
	require.NoError(t, store.SetToken(tokenExpiringAt(t, now.Add(-time.Hour))))
	require.NoError(t, store.SetSessionToken("session-1"))

	provider := &stubProvider{token: "unused"}
	newTestScheduler(t, store, provider, now).Tick()

	assert.Zero(t, provider.calls.Load(), "expired token must never trigger a refresh")
}

func TestTickSkipsFreshToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store := NewMemoryStore()
	require.NoError(t, store.SetToken(tokenExpiringAt(t, now.Add(48*time.Hour))))
	require.NoError(t, store.SetSessionToken("session-1"))

	provider := &stubProvider{token: "unused"}
	newTestScheduler(t, store, provider, now).Tick()

	assert.Zero(t, provider.calls.Load())
}

func TestTickSkipsWithoutToken(t *testing.T) {
	store := NewMemoryStore()
	provider := &stubProvider{token: "unused"}
	newTestScheduler(t, store, provider, time.Now().UTC()).Tick()

	assert.Zero(t, provider.calls.Load())
}

// Token issued at T0 with a 72h lifetime: at T0+60h it is inside the 12h
// warning window, so one tick performs exactly one refresh and the store
// ends up holding the later-expiring token.
func TestTickRefreshesInsideWarningWindow(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := issuedAt.Add(60 * time.Hour)

	oldToken := signedToken(t, jwt.MapClaims{
		"sub": "u1",
		"iat": issuedAt.Unix(),
		"exp": issuedAt.Add(72 * time.Hour).Unix(),
	})
	newToken := tokenExpiringAt(t, now.Add(72*time.Hour))

	store := NewMemoryStore()
	require.NoError(t, store.SetToken(oldToken))
	require.NoError(t, store.SetSessionToken("session-1"))

	provider := &stubProvider{token: newToken}
	newTestScheduler(t, store, provider, now).Tick()

	assert.Equal(t, int64(1), provider.calls.Load())

	stored, ok := store.Token()
	require.True(t, ok)
	assert.Equal(t, newToken, stored)
	assert.False(t, ShouldRefresh(stored, now, 12*time.Hour), "renewed token is outside the warning window")
}

func TestTickSurvivesRefreshFailure(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	oldToken := tokenExpiringAt(t, now.Add(6*time.Hour))

	store := NewMemoryStore()
	require.NoError(t, store.SetToken(oldToken))
	require.NoError(t, store.SetSessionToken("session-1"))

	provider := &stubProvider{err: assert.AnError}
	scheduler := newTestScheduler(t, store, provider, now)

	scheduler.Tick()
	scheduler.Tick()

	assert.Equal(t, int64(2), provider.calls.Load(), "each tick retries independently")
	stored, _ := store.Token()
	assert.Equal(t, oldToken, stored)
}

func TestSchedulerStartStop(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store := NewMemoryStore()
	require.NoError(t, store.SetToken(tokenExpiringAt(t, now.Add(6*time.Hour))))
	require.NoError(t, store.SetSessionToken("session-1"))

	provider := &stubProvider{token: tokenExpiringAt(t, now.Add(72*time.Hour))}
	scheduler := NewScheduler(store, NewRefresher(store, provider), SchedulerOptions{
		CheckInterval:    time.Hour,
		RefreshThreshold: 12 * time.Hour,
	})
	scheduler.now = func() time.Time { return now }

	scheduler.Start()
	scheduler.Start() // idempotent
	scheduler.Stop()
	scheduler.Stop() // idempotent

	// The immediate tick at Start ran before Stop returned.
	assert.Equal(t, int64(1), provider.calls.Load())

	callsAfterStop := provider.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, callsAfterStop, provider.calls.Load(), "no tick may fire after Stop returns")
}
