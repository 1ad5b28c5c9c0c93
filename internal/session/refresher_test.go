package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	mu    sync.Mutex
	token string
	err   error
	delay time.Duration
	calls atomic.Int64
}

func (p *stubProvider) RefreshToken(_ context.Context, _ string) (string, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	return p.token, nil
}

func TestRefreshSuccessWritesStore(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.SetSessionToken("session-1"))

	provider := &stubProvider{token: "new-bearer"}
	refresher := NewRefresher(store, provider)

	token, err := refresher.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-bearer", token)

	stored, ok := store.Token()
	require.True(t, ok)
	assert.Equal(t, "new-bearer", stored)
}

func TestRefreshFailureLeavesStoreUnchanged(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.SetToken("old-bearer"))
	require.NoError(t, store.SetSessionToken("session-1"))

	provider := &stubProvider{err: errors.New("provider rejected session")}
	refresher := NewRefresher(store, provider)

	_, err := refresher.Refresh(context.Background())
	require.ErrorIs(t, err, ErrRefreshFailed)

	stored, ok := store.Token()
	require.True(t, ok)
	assert.Equal(t, "old-bearer", stored)
}

func TestRefreshWithoutSessionFails(t *testing.T) {
	store := NewMemoryStore()
	provider := &stubProvider{token: "unused"}
	refresher := NewRefresher(store, provider)

	_, err := refresher.Refresh(context.Background())
	require.ErrorIs(t, err, ErrRefreshFailed)
	assert.Zero(t, provider.calls.Load())
}

func TestConcurrentRefreshesCoalesce(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.SetSessionToken("session-1"))

	provider := &stubProvider{token: "shared-bearer", delay: 50 * time.Millisecond}
	refresher := NewRefresher(store, provider)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := refresher.Refresh(context.Background())
			assert.NoError(t, err)
			results[i] = token
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), provider.calls.Load(), "concurrent callers must share one provider call")
	for _, token := range results {
		assert.Equal(t, "shared-bearer", token)
	}
}
