package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenhub/internal/session"
)

func TestSignInSeedsStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/signin", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "ana@example.com", body["email"])

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]string{
				"token":         "jwt-abc",
				"session_token": "sess-xyz",
			},
		})
	}))
	defer server.Close()

	store := session.NewMemoryStore()
	c, err := New(server.URL, store)
	require.NoError(t, err)

	require.NoError(t, c.SignIn(context.Background(), "ana@example.com", "password123"))

	token, ok := store.Token()
	require.True(t, ok)
	assert.Equal(t, "jwt-abc", token)

	sessionToken, ok := store.SessionToken()
	require.True(t, ok)
	assert.Equal(t, "sess-xyz", sessionToken)
}

func TestRefreshTokenDoesNotTouchStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "sess-xyz", body["session_token"])

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"token": "jwt-new"},
		})
	}))
	defer server.Close()

	store := session.NewMemoryStore()
	c, err := New(server.URL, store)
	require.NoError(t, err)

	token, err := c.RefreshToken(context.Background(), "sess-xyz")
	require.NoError(t, err)
	assert.Equal(t, "jwt-new", token)

	_, ok := store.Token()
	assert.False(t, ok, "refresh provider must not write the store itself")
}

func TestAuthHeaderAttached(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer jwt-abc", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"email": "ana@example.com"},
		})
	}))
	defer server.Close()

	store := session.NewMemoryStore()
	require.NoError(t, store.SetToken("jwt-abc"))

	c, err := New(server.URL, store)
	require.NoError(t, err)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", me["email"])
}

func TestSignOutClearsStoreEvenOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "UpstreamError",
			"message": "database unavailable",
		})
	}))
	defer server.Close()

	store := session.NewMemoryStore()
	require.NoError(t, store.SetToken("jwt-abc"))
	require.NoError(t, store.SetSessionToken("sess-xyz"))

	c, err := New(server.URL, store)
	require.NoError(t, err)

	err = c.SignOut(context.Background())
	assert.Error(t, err)

	_, ok := store.Token()
	assert.False(t, ok)
	_, ok = store.SessionToken()
	assert.False(t, ok)
}

func TestFailureEnvelopeSurfacesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "AuthError",
			"message": "Invalid token",
		})
	}))
	defer server.Close()

	c, err := New(server.URL, session.NewMemoryStore())
	require.NoError(t, err)

	_, err = c.Me(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid token")
	assert.Contains(t, err.Error(), "401")
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://files.example.com", session.NewMemoryStore())
	assert.Error(t, err)
}
