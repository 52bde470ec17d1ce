// Package fetch provides the authenticated upstream byte-fetch for document payloads.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sentinel errors callers use to distinguish failure modes. The resource
// layer never masks these: "not authenticated" and "not found" must stay
// distinguishable to the consuming view.
var (
	ErrUnauthorized = errors.New("upstream rejected credentials")
	ErrNotFound     = errors.New("document not found upstream")
)

// Client fetches original document bytes from the document service.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a fetch client. token may be empty for unauthenticated
// upstreams; baseURL must not have a trailing slash.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchDocument returns the binary payload for the document id. Fetch and
// auth failures propagate to the caller untouched; no resource is created on
// error.
func (c *Client) FetchDocument(ctx context.Context, id string) ([]byte, error) {
	url := fmt.Sprintf("%s/documents/%s/content", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch document %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("fetch document %s: %w", id, ErrUnauthorized)
	case http.StatusNotFound:
		return nil, fmt.Errorf("fetch document %s: %w", id, ErrNotFound)
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch document %s: upstream returned %d: %s", id, resp.StatusCode, string(b))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch document %s: read body: %w", id, err)
	}
	return data, nil
}
