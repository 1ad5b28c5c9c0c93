// Package client is the HTTP client used by the keep-alive CLI. It signs in,
// attaches the stored bearer token to every call, and acts as the refresh
// provider for the session scheduler.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"screenhub/internal/session"
)

type Client struct {
	baseURL    string
	store      session.Store
	httpClient *http.Client
}

func New(baseURL string, store session.Store) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url scheme")
	}

	return &Client{
		baseURL:    baseURL,
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type credentialsData struct {
	Token        string `json:"token"`
	SessionToken string `json:"session_token"`
}

type refreshData struct {
	Token string `json:"token"`
}

// SignIn authenticates and seeds the token store with both the bearer token
// and the durable session token.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	var data credentialsData
	err := c.call(ctx, http.MethodPost, "/auth/signin", map[string]string{
		"email":    email,
		"password": password,
	}, &data)
	if err != nil {
		return err
	}

	if err := c.store.SetSessionToken(data.SessionToken); err != nil {
		return fmt.Errorf("persist session token: %w", err)
	}
	if err := c.store.SetToken(data.Token); err != nil {
		return fmt.Errorf("persist bearer token: %w", err)
	}
	return nil
}

// RefreshToken implements session.Provider against POST /auth/refresh.
// It returns the new bearer token and leaves persistence to the refresher.
func (c *Client) RefreshToken(ctx context.Context, sessionToken string) (string, error) {
	var data refreshData
	err := c.call(ctx, http.MethodPost, "/auth/refresh", map[string]string{
		"session_token": sessionToken,
	}, &data)
	if err != nil {
		return "", err
	}
	return data.Token, nil
}

// SignOut revokes the server-side session and wipes the local store whether
// or not the server call succeeded: local credentials must not outlive an
// attempted logout.
func (c *Client) SignOut(ctx context.Context) error {
	sessionToken, ok := c.store.SessionToken()
	if !ok {
		return c.store.Clear()
	}

	callErr := c.call(ctx, http.MethodPost, "/auth/signout", map[string]string{
		"session_token": sessionToken,
	}, nil)

	if err := c.store.Clear(); err != nil {
		return err
	}
	return callErr
}

// Me fetches the identity behind the stored bearer token.
func (c *Client) Me(ctx context.Context) (map[string]string, error) {
	var data map[string]string
	if err := c.call(ctx, http.MethodGet, "/auth/me", nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// RemoveFromWatchlist deletes a movie from the caller's watchlist and
// returns the server's outcome message.
func (c *Client) RemoveFromWatchlist(ctx context.Context, movieID string) (string, error) {
	var data map[string]string
	if err := c.call(ctx, http.MethodDelete, "/api/watchlist/"+url.PathEscape(movieID), nil, &data); err != nil {
		return "", err
	}
	return data["message"], nil
}

func (c *Client) call(ctx context.Context, method, path string, payload any, into any) error {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range c.store.AuthHeader() {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var parsed envelope
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("%s %s: status %d: decode response: %w", method, path, resp.StatusCode, err)
	}

	if !parsed.Success {
		message := parsed.Message
		if message == "" {
			message = parsed.Error
		}
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, message)
	}

	if into != nil && parsed.Data != nil {
		if err := json.Unmarshal(parsed.Data, into); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}

	return nil
}
