// Package tokenlist fetches a third-party aggregator token list over HTTP.
// The endpoint returns a flat JSON array of token entries; the fetch is
// idempotent and cheap, so callers re-run it per search without a retry
// wrapper.
package tokenlist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint is the Jupiter strict token list.
const DefaultEndpoint = "https://token.jup.ag/strict"

// Entry is one token in the aggregator list.
type Entry struct {
	Address  string   `json:"address"`
	Name     string   `json:"name"`
	Symbol   string   `json:"symbol"`
	Decimals uint8    `json:"decimals"`
	Tags     []string `json:"tags,omitempty"`
}

// Client fetches and filters the aggregator token list.
type Client struct {
	endpoint string
	client   *http.Client
}

// Option configures Client.
type Option func(*Client)

// WithEndpoint overrides the list URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a token list client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads the full token list. Entries without an address are skipped.
func (c *Client) Fetch(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch token list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token list status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token list: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode token list: %w", err)
	}

	out := entries[:0]
	for _, e := range entries {
		if e.Address == "" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Filter returns entries whose symbol, name, or address contains the query
// (case-insensitive substring, client-side).
func Filter(entries []Entry, query string) []Entry {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var out []Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Symbol), query) ||
			strings.Contains(strings.ToLower(e.Name), query) ||
			strings.Contains(strings.ToLower(e.Address), query) {
			out = append(out, e)
		}
	}
	return out
}
