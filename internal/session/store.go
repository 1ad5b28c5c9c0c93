package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store holds the client's credentials between requests. Implementations
// must be safe for concurrent use; writes are last-writer-wins.
type Store interface {
	// SetToken persists the bearer token and stamps the activity time.
	SetToken(token string) error
	// Token returns the stored bearer token, with an explicit absence flag.
	Token() (string, bool)
	// SetSessionToken persists the durable refresh credential.
	SetSessionToken(token string) error
	// SessionToken returns the refresh credential.
	SessionToken() (string, bool)
	// LastActivity returns when a token was last written.
	LastActivity() (time.Time, bool)
	// Clear wipes both tokens and the activity stamp.
	Clear() error
	// AuthHeader returns an Authorization fragment to merge into outgoing
	// requests: empty when no token is stored.
	AuthHeader() http.Header
}

type storedState struct {
	Token          string    `json:"token,omitempty"`
	SessionToken   string    `json:"session_token,omitempty"`
	LastActivityAt time.Time `json:"last_activity_at,omitempty"`
}

// FileStore persists credentials as a JSON file so a restarted client keeps
// its session, mirroring durable browser storage.
type FileStore struct {
	mu    sync.Mutex
	path  string
	state storedState
	now   func() time.Time
}

func NewFileStore(path string) (*FileStore, error) {
	store := &FileStore{path: path, now: time.Now}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}

	if err := json.Unmarshal(raw, &store.state); err != nil {
		// A corrupt token file means re-authentication, not a crash.
		store.state = storedState{}
	}

	return store, nil
}

func (s *FileStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Token = token
	s.state.LastActivityAt = s.now().UTC()
	return s.persist()
}

func (s *FileStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token, s.state.Token != ""
}

func (s *FileStore) SetSessionToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.SessionToken = token
	return s.persist()
}

func (s *FileStore) SessionToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SessionToken, s.state.SessionToken != ""
}

func (s *FileStore) LastActivity() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastActivityAt, !s.state.LastActivityAt.IsZero()
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = storedState{}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func (s *FileStore) AuthHeader() http.Header {
	header := http.Header{}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Token != "" {
		header.Set("Authorization", "Bearer "+s.state.Token)
	}
	return header
}

func (s *FileStore) persist() error {
	encoded, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(s.path, encoded, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// MemoryStore is the in-process Store used by tests and short-lived tools.
type MemoryStore struct {
	mu    sync.Mutex
	state storedState
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Token = token
	s.state.LastActivityAt = s.now().UTC()
	return nil
}

func (s *MemoryStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token, s.state.Token != ""
}

func (s *MemoryStore) SetSessionToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SessionToken = token
	return nil
}

func (s *MemoryStore) SessionToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SessionToken, s.state.SessionToken != ""
}

func (s *MemoryStore) LastActivity() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastActivityAt, !s.state.LastActivityAt.IsZero()
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = storedState{}
	return nil
}

func (s *MemoryStore) AuthHeader() http.Header {
	header := http.Header{}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Token != "" {
		header.Set("Authorization", "Bearer "+s.state.Token)
	}
	return header
}
