package matchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lcaweb/internal/catalog"
	"lcaweb/internal/domain"
)

// CatalogPayload is the body of GET /api/materials.
type CatalogPayload struct {
	Version   int64                   `json:"version"`
	Materials []domain.MaterialRecord `json:"materials"`
}

// ClientConfig configures a remote service client.
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit rate.Limit
	Burst     int
}

// Client calls a remote match service. The catalog is fetched once and
// refetched only when a match response reports a different version.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter

	mu      sync.Mutex
	catalog *catalog.Catalog
}

var _ Service = (*Client)(nil)

// NewClient creates a reusable client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = rate.Every(200 * time.Millisecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(cfg.RateLimit, cfg.Burst),
	}
}

// Match posts req. Transport errors, non-2xx statuses and error bodies all
// come back wrapped in ErrService.
func (c *Client) Match(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: marshal request: %w", ErrService, err)
	}
	var resp Response
	if err := c.do(ctx, http.MethodPost, "/api/match", bytes.NewReader(body), &resp); err != nil {
		return Response{}, err
	}
	if resp.Error != "" {
		return Response{}, fmt.Errorf("%w: %s", ErrService, resp.Error)
	}

	c.mu.Lock()
	if c.catalog != nil && c.catalog.Version() != resp.CatalogVersion {
		c.catalog = nil
	}
	c.mu.Unlock()
	return resp, nil
}

// Catalog returns the cached remote catalog, fetching it when missing.
func (c *Client) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	c.mu.Lock()
	cached := c.catalog
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	var payload CatalogPayload
	if err := c.do(ctx, http.MethodGet, "/api/materials", nil, &payload); err != nil {
		return nil, err
	}
	cat := catalog.New(payload.Version, payload.Materials)

	c.mu.Lock()
	c.catalog = cat
	c.mu.Unlock()
	return cat, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit: %w", ErrService, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", ErrService, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrService, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure Response
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &failure) == nil && failure.Error != "" {
			return fmt.Errorf("%w: status %d: %s", ErrService, resp.StatusCode, failure.Error)
		}
		return fmt.Errorf("%w: status %d", ErrService, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrService, path, err)
	}
	return nil
}
