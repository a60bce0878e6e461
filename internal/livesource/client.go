// Package livesource fetches the current state of catalog entries from the
// catalog's HTTP API. The arbitration stage uses it to refresh candidate titles
// before asking the similarity oracle.
package livesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/services"
)

// entryResponse is the JSON document served at GET {base}/entries/{id}.
type entryResponse struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Name           string `json:"name"`
	Creator        string `json:"creator"`
	URL            string `json:"url"`
	LastModifiedAt string `json:"last_modified_at"`
}

// Client reads entries from the live catalog API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the FetchedAt clock.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a client for baseURL. apiKey is optional and sent as a bearer token.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("live source base url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse live source url: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FetchEntity returns the live snapshot of entry id. A missing entry is
// reported as services.ErrNotFound; transport and server failures as
// services.ErrCollaboratorUnavailable.
func (c *Client) FetchEntity(ctx context.Context, id string) (catalog.LiveEntity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return catalog.LiveEntity{}, errors.New("entry id must not be empty")
	}
	endpoint := c.baseURL + "/entries/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return catalog.LiveEntity{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return catalog.LiveEntity{}, services.Wrap(services.ErrCollaboratorUnavailable, "live_source", "fetch entity",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return catalog.LiveEntity{}, services.Wrap(services.ErrNotFound, "live_source", "fetch entity", "entry "+id, nil)
	case resp.StatusCode != http.StatusOK:
		return catalog.LiveEntity{}, services.Wrap(services.ErrCollaboratorUnavailable, "live_source", "fetch entity",
			fmt.Sprintf("live source returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	var payload entryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return catalog.LiveEntity{}, services.Wrap(services.ErrCollaboratorUnavailable, "live_source", "fetch entity", "decode response", err)
	}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = strings.TrimSpace(payload.Name)
	}
	return catalog.LiveEntity{
		ID:             id,
		Title:          title,
		Creator:        strings.TrimSpace(payload.Creator),
		URL:            strings.TrimSpace(payload.URL),
		LastModifiedAt: parseTimestamp(payload.LastModifiedAt),
		FetchedAt:      c.now().UTC(),
	}, nil
}

func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
