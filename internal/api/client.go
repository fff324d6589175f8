// Package api is the client of the remote Extractio HTTP API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/extractio/extractio/internal/cache"
	"github.com/extractio/extractio/internal/media"
	"github.com/extractio/extractio/internal/web"
)

const (
	RequestTimeout  = 15 * time.Second
	MaxResponseSize = 1 * 1024 * 1024 // 1MB
)

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = RequestTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// SessionFetcher requests a new session token.
func (c *Client) SessionFetcher() cache.Fetcher {
	return func(ctx context.Context) (cache.Payload, error) {
		return c.get(ctx, "", "session")
	}
}

func (c *Client) TrendFetcher(token string) cache.Fetcher {
	return func(ctx context.Context) (cache.Payload, error) {
		return c.get(ctx, token, "trend")
	}
}

func (c *Client) MediaFetcher(token string, loc media.Locator) cache.Fetcher {
	return func(ctx context.Context) (cache.Payload, error) {
		return c.get(ctx, token, "media", string(loc.Platform), loc.Identifier)
	}
}

func (c *Client) RelatedFetcher(token string, loc media.Locator) cache.Fetcher {
	return func(ctx context.Context) (cache.Payload, error) {
		return c.get(ctx, token, "related", string(loc.Platform), loc.Identifier)
	}
}

// get performs one GET and unwraps the envelope. A non-2xx answer is
// returned as a Payload with that status and no error; the cache manager
// turns it into a failed fetch.
func (c *Client) get(ctx context.Context, token string, segments ...string) (cache.Payload, error) {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	endpoint := c.baseURL + "/" + strings.Join(escaped, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return cache.Payload{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", web.NextUserAgent())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return cache.Payload{}, fmt.Errorf("get %s: %w", segments[0], err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseSize))
		return cache.Payload{Status: resp.StatusCode}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return cache.Payload{}, fmt.Errorf("read %s: %w", segments[0], err)
	}
	if len(body) > MaxResponseSize {
		return cache.Payload{}, fmt.Errorf("read %s: response exceeds %d bytes", segments[0], MaxResponseSize)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return cache.Payload{}, fmt.Errorf("decode %s envelope: %w", segments[0], err)
	}
	if env.Status == 0 {
		env.Status = resp.StatusCode
	}
	return cache.Payload{Status: env.Status, Data: env.Data}, nil
}
