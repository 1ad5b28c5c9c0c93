package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenhub", "tokens.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, ok := store.Token()
	assert.False(t, ok)
	assert.Empty(t, store.AuthHeader().Get("Authorization"))

	require.NoError(t, store.SetToken("bearer-1"))
	require.NoError(t, store.SetSessionToken("session-1"))

	token, ok := store.Token()
	require.True(t, ok)
	assert.Equal(t, "bearer-1", token)
	assert.Equal(t, "Bearer bearer-1", store.AuthHeader().Get("Authorization"))

	activity, ok := store.LastActivity()
	require.True(t, ok)
	assert.False(t, activity.IsZero())

	// A second store on the same path sees the persisted state.
	reloaded, err := NewFileStore(path)
	require.NoError(t, err)

	token, ok = reloaded.Token()
	require.True(t, ok)
	assert.Equal(t, "bearer-1", token)
	sessionToken, ok := reloaded.SessionToken()
	require.True(t, ok)
	assert.Equal(t, "session-1", sessionToken)
}

func TestFileStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SetToken("bearer-1"))
	require.NoError(t, store.Clear())

	_, ok := store.Token()
	assert.False(t, ok)
	_, ok = store.LastActivity()
	assert.False(t, ok)

	reloaded, err := NewFileStore(path)
	require.NoError(t, err)
	_, ok = reloaded.Token()
	assert.False(t, ok)
}

func TestFileStoreCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, ok := store.Token()
	assert.False(t, ok)
}

func TestMemoryStoreAuthHeader(t *testing.T) {
	store := NewMemoryStore()
	assert.Empty(t, store.AuthHeader())

	require.NoError(t, store.SetToken("bearer-9"))
	assert.Equal(t, "Bearer bearer-9", store.AuthHeader().Get("Authorization"))

	require.NoError(t, store.Clear())
	assert.Empty(t, store.AuthHeader())
}
