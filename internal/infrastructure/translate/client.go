// Package translate is the HTTP client of a LibreTranslate-compatible
// translation service
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alchemorsel/ingrediate/internal/infrastructure/config"
	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client implements outbound.Translator. Calls are throttled by a token
// bucket shared by every batch of the process.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger

	throttleWait metric.Float64Histogram
}

var _ outbound.Translator = (*Client)(nil)

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

// NewClient creates a new translation client. A non-positive
// requests_per_second disables throttling.
func NewClient(cfg config.TranslationConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	// The global meter provider is a no-op until telemetry is initialised
	throttleWait, _ := otel.Meter("github.com/alchemorsel/ingrediate/translate").Float64Histogram(
		"translate.client.throttle.wait",
		metric.WithUnit("s"),
		metric.WithDescription("Time spent waiting for the translation rate limiter"),
	)

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.Named("translate-client"),

		throttleWait: throttleWait,
	}
}

// Translate translates text into the language with the given code
func (c *Client) Translate(ctx context.Context, text, targetCode string) (string, error) {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	c.throttleWait.Record(ctx, time.Since(waitStart).Seconds())

	body, err := json.Marshal(translateRequest{
		Q:      text,
		Source: "auto",
		Target: targetCode,
		Format: "html",
		APIKey: c.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var decoded translateResponse
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(raw))
		if decodeErr == nil && decoded.Error != "" {
			message = decoded.Error
		}
		c.logger.Warn("Translation service returned an error",
			zap.Int("status", resp.StatusCode),
			zap.String("target", targetCode),
			zap.String("error", message))
		return "", fmt.Errorf("translation service returned status %d: %s", resp.StatusCode, message)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	return decoded.TranslatedText, nil
}
