// Package exchangerate provides rate providers for currency normalization.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/port"
)

const defaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// Config holds rate client configuration
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client fetches conversion rates from the exchangerate-api v4 endpoint.
// The upstream serves latest rates only; responses are cached per base
// currency so one submission burst doesn't hammer the API. A missing or
// failing rate is an error, never a defaulted value.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cacheTTL   time.Duration
	logger     *zap.Logger

	mu        sync.RWMutex
	cache     map[string]ratesResponse
	fetchedAt map[string]time.Time
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// NewClient creates a new rate client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cacheTTL:   cfg.CacheTTL,
		logger:     logger,
		cache:      make(map[string]ratesResponse),
		fetchedAt:  make(map[string]time.Time),
	}
}

// Rate returns the conversion rate from one currency to another
func (c *Client) Rate(ctx context.Context, from, to string, at time.Time) (decimal.Decimal, error) {
	rates, err := c.ratesFor(ctx, from)
	if err != nil {
		return decimal.Zero, err
	}

	rate, ok := rates.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for %s->%s", from, to)
	}

	return decimal.NewFromFloat(rate), nil
}

func (c *Client) ratesFor(ctx context.Context, base string) (ratesResponse, error) {
	c.mu.RLock()
	cached, ok := c.cache[base]
	fetchedAt := c.fetchedAt[base]
	c.mu.RUnlock()

	if ok && time.Since(fetchedAt) < c.cacheTTL {
		return cached, nil
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ratesResponse{}, fmt.Errorf("build rate request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Rate fetch failed", zap.String("base", base), zap.Error(err))
		return ratesResponse{}, fmt.Errorf("fetch rates for %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ratesResponse{}, fmt.Errorf("rate API returned status %d for %s", resp.StatusCode, base)
	}

	var rates ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&rates); err != nil {
		return ratesResponse{}, fmt.Errorf("decode rate response: %w", err)
	}

	c.mu.Lock()
	c.cache[base] = rates
	c.fetchedAt[base] = time.Now()
	c.mu.Unlock()

	c.logger.Info("Rates refreshed", zap.String("base", base), zap.Int("count", len(rates.Rates)))
	return rates, nil
}

// Verify interface compliance
var _ port.RateProvider = (*Client)(nil)
