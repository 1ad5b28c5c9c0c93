// Package docstore is a thin client for the hosted document database that
// holds the movie catalogue and watchlist entries. The provider is a black
// box exposing list/get/create/delete over JSON; queries are serialized
// strings in the provider's own dialect.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	endpoint   string
	projectID  string
	apiKey     string
	httpClient *http.Client
}

func New(endpoint, projectID, apiKey string) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse docstore endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid docstore endpoint scheme")
	}
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("missing docstore credentials")
	}

	return &Client{
		endpoint:   endpoint,
		projectID:  projectID,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Query is a serialized filter in the provider's dialect.
type Query string

func Equal(field string, value string) Query {
	return Query(fmt.Sprintf(`equal(%q, [%q])`, field, value))
}

func Search(field string, value string) Query {
	return Query(fmt.Sprintf(`search(%q, [%q])`, field, value))
}

func Limit(n int) Query {
	return Query(fmt.Sprintf(`limit(%s)`, strconv.Itoa(n)))
}

type listResponse struct {
	Total     int               `json:"total"`
	Documents []json.RawMessage `json:"documents"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (c *Client) ListDocuments(ctx context.Context, collection string, queries []Query) ([]json.RawMessage, error) {
	values := url.Values{}
	for _, query := range queries {
		values.Add("queries[]", string(query))
	}

	endpoint := c.collectionURL(collection)
	if encoded := values.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var parsed listResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode document list: %w", err)
	}

	return parsed.Documents, nil
}

func (c *Client) GetDocument(ctx context.Context, collection, documentID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, c.documentURL(collection, documentID), nil)
}

func (c *Client) CreateDocument(ctx context.Context, collection, documentID string, data any) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]any{
		"documentId": documentID,
		"data":       data,
	})
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	return c.do(ctx, http.MethodPost, c.collectionURL(collection), payload)
}

func (c *Client) DeleteDocument(ctx context.Context, collection, documentID string) error {
	_, err := c.do(ctx, http.MethodDelete, c.documentURL(collection, documentID), nil)
	return err
}

// ErrNotFound reports a missing document or collection.
var ErrNotFound = fmt.Errorf("document not found")

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) (json.RawMessage, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build docstore request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Project", c.projectID)
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("docstore request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read docstore response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var parsed errorResponse
		if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
			return nil, fmt.Errorf("docstore error: status %d: %s", resp.StatusCode, parsed.Message)
		}
		return nil, fmt.Errorf("docstore error: status %d", resp.StatusCode)
	}

	return json.RawMessage(body), nil
}

func (c *Client) collectionURL(collection string) string {
	return fmt.Sprintf("%s/collections/%s/documents", c.endpoint, url.PathEscape(collection))
}

func (c *Client) documentURL(collection, documentID string) string {
	return fmt.Sprintf("%s/collections/%s/documents/%s", c.endpoint, url.PathEscape(collection), url.PathEscape(documentID))
}
