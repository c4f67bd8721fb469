package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jllopis/specforge/pkg/errors"
	"github.com/jllopis/specforge/pkg/resilience"
)

const (
	// DefaultTavilyURL is the Tavily search endpoint.
	DefaultTavilyURL = "https://api.tavily.com/search"

	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 2.0
	defaultBurst     = 4
)

// TavilyConfig configures a TavilySearcher.
type TavilyConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// RateLimit is the sustained requests per second; Burst the bucket size.
	RateLimit float64
	Burst     int
	Retry     resilience.RetryConfig
}

// TavilySearcher implements Searcher against the Tavily REST API.
type TavilySearcher struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewTavily creates a Tavily searcher. The API key is required.
func NewTavily(cfg TavilyConfig) (*TavilySearcher, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New(errors.CodeConfigError, "tavily api key required", nil).
			WithContext("setting", "search.api_key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTavilyURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = resilience.DefaultRetryConfig()
	}
	return &TavilySearcher{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		retry:      cfg.Retry,
	}, nil
}

// Name implements Searcher.
func (t *TavilySearcher) Name() string { return "tavily" }

type tavilyRequest struct {
	Query
	IncludeAnswer bool `json:"include_answer"`
}

// Search implements Searcher. Rate limiting applies to every attempt;
// 429 and 5xx responses are retried.
func (t *TavilySearcher) Search(ctx context.Context, q Query) (*Response, error) {
	body, err := json.Marshal(tavilyRequest{Query: q})
	if err != nil {
		return nil, errors.New(errors.CodeSearchError, "encode tavily request", err)
	}

	return resilience.Retry(ctx, t.retry, func(ctx context.Context) (*Response, error) {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		return t.do(ctx, body)
	})
}

func (t *TavilySearcher) do(ctx context.Context, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.New(errors.CodeSearchError, "build tavily request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, errors.New(errors.CodeSearchError, "tavily request failed", err).WithRecoverable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, errors.New(errors.CodeSearchError,
			fmt.Sprintf("tavily returned status %d", resp.StatusCode),
			fmt.Errorf("%s", bytes.TrimSpace(msg))).
			WithContext("status", resp.StatusCode).
			WithRecoverable(resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.New(errors.CodeSearchError, "decode tavily response", err)
	}
	return &out, nil
}

var _ Searcher = (*TavilySearcher)(nil)
