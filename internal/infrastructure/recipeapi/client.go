// Package recipeapi is the HTTP client of the recipe retrieval and lookup service
package recipeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alchemorsel/ingrediate/internal/infrastructure/config"
	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
	"github.com/alchemorsel/ingrediate/pkg/healthcheck"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Client implements outbound.RecipeRetriever and outbound.RecipeLookup
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *healthcheck.CircuitBreaker
	logger  *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithCircuitBreaker guards every call with breaker
func WithCircuitBreaker(breaker *healthcheck.CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = breaker
	}
}

// BreakerConfig derives circuit breaker settings from cfg. Unknown
// identifiers and cancelled requests do not count against the upstream.
func BreakerConfig(cfg config.RecipeAPIConfig, logger *zap.Logger) healthcheck.CircuitBreakerConfig {
	breakerCfg := healthcheck.DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold > 0 {
		breakerCfg.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.BreakerTimeout > 0 {
		breakerCfg.Timeout = cfg.BreakerTimeout
	}
	breakerCfg.IsSuccessful = func(err error) bool {
		return err == nil ||
			errors.Is(err, outbound.ErrNotFound) ||
			errors.Is(err, context.Canceled)
	}
	breakerCfg.OnStateChange = func(name string, from, to healthcheck.CircuitBreakerState) {
		logger.Warn("Recipe API circuit breaker changed state",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}
	return breakerCfg
}

var (
	_ outbound.RecipeRetriever = (*Client)(nil)
	_ outbound.RecipeLookup    = (*Client)(nil)
)

// NewClient creates a new recipe API client
func NewClient(cfg config.RecipeAPIConfig, logger *zap.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	logger.Info("Recipe API client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.Duration("timeout", timeout))

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("recipe-api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindByIngredients returns the raw results for the given ingredients.
// Entries are decoded one by one; an entry that does not decode is returned
// empty, so normalization drops it without failing the batch.
func (c *Client) FindByIngredients(ctx context.Context, ingredients []string) ([]outbound.RawResult, error) {
	query := url.Values{}
	query.Set("ingredients", strings.Join(ingredients, ","))
	endpoint := c.baseURL + "/recipes/findByIngredients?" + query.Encode()

	var entries []json.RawMessage
	if err := c.get(ctx, endpoint, &entries); err != nil {
		return nil, err
	}

	results := make([]outbound.RawResult, len(entries))
	malformed := 0
	for i, entry := range entries {
		var result outbound.RawResult
		if err := json.Unmarshal(entry, &result); err != nil {
			malformed++
			c.logger.Warn("Skipping undecodable recipe result",
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		results[i] = result
	}

	c.logger.Debug("Retrieved recipes",
		zap.Strings("ingredients", ingredients),
		zap.Int("results", len(results)),
		zap.Int("malformed", malformed))
	return results, nil
}

// GetRecipe returns the record with the given identifier, or
// outbound.ErrNotFound
func (c *Client) GetRecipe(ctx context.Context, id string) (*outbound.RecipeRecord, error) {
	endpoint := c.baseURL + "/recipes/" + url.PathEscape(id)

	var record outbound.RecipeRecord
	if err := c.get(ctx, endpoint, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	if c.breaker == nil {
		return c.do(ctx, endpoint, out)
	}
	return c.breaker.Execute(func() error {
		return c.do(ctx, endpoint, out)
	})
}

func (c *Client) do(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return outbound.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Recipe API returned an error",
			zap.String("endpoint", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return fmt.Errorf("recipe API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
