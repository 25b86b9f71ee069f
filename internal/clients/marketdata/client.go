// Package marketdata provides a client for the market data service
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/openfolio/folio/internal/common"
	"github.com/openfolio/folio/internal/models"
)

const (
	DefaultBaseURL   = "https://marketdata.openfolio.dev/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second

	defaultMaxRetries = 3
	defaultBackoff    = 1 * time.Second
	quoteCacheTTL     = 5 * time.Minute
	fxCacheTTL        = 1 * time.Hour
)

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	maxRetries int

	mu         sync.Mutex
	quoteCache map[string]cachedQuote
	fxCache    map[string]cachedRate
}

type cachedQuote struct {
	quote   *models.PriceQuote
	fetched time.Time
}

type cachedRate struct {
	rate    float64
	fetched time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries bounds retries on rate-limited responses
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// NewClient creates a new market data client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     common.NewSilentLogger(),
		maxRetries: defaultMaxRetries,
		quoteCache: make(map[string]cachedQuote),
		fxCache:    make(map[string]cachedRate),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string

	retryAfter time.Duration // provider cool-down hint from Retry-After
}

func (e *APIError) Error() string {
	return fmt.Sprintf("market data API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// IsRateLimited reports whether the error is a provider rate-limit signal.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// get performs a rate-limited GET request with bounded retries on 429s.
// The provider's Retry-After cool-down hint is honored when present,
// otherwise a doubling backoff is used.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	backoff := defaultBackoff

	for attempt := 0; ; attempt++ {
		err := c.getOnce(ctx, path, params, result)
		if err == nil {
			return nil
		}

		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.IsRateLimited() || attempt >= c.maxRetries {
			return err
		}

		wait := backoff
		if hint := apiErr.retryAfter; hint > 0 {
			wait = hint
		}
		c.logger.Warn().
			Str("endpoint", path).
			Int("attempt", attempt+1).
			Dur("wait", wait).
			Msg("Rate limited by market data provider — backing off")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}

func (c *Client) getOnce(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("Market data API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
				apiErr.retryAfter = time.Duration(secs) * time.Second
			}
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// GetPrice retrieves the current price for a symbol. Responses are cached
// briefly; forceRefresh bypasses the cache. Returns nil (no error) when the
// provider has no data for the symbol.
func (c *Client) GetPrice(ctx context.Context, symbol string, forceRefresh bool) (*models.PriceQuote, error) {
	if !forceRefresh {
		c.mu.Lock()
		cached, ok := c.quoteCache[symbol]
		c.mu.Unlock()
		if ok && time.Since(cached.fetched) < quoteCacheTTL {
			return cached.quote, nil
		}
	}

	var resp priceResponse
	if err := c.get(ctx, fmt.Sprintf("/price/%s", url.PathEscape(symbol)), nil, &resp); err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	quote := &models.PriceQuote{
		Symbol:           symbol,
		Price:            resp.Price,
		Currency:         resp.Currency,
		Sector:           resp.Sector,
		Country:          resp.Country,
		FiftyTwoWeekHigh: resp.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  resp.FiftyTwoWeekLow,
		Timestamp:        time.Now(),
	}

	c.mu.Lock()
	c.quoteCache[symbol] = cachedQuote{quote: quote, fetched: time.Now()}
	c.mu.Unlock()

	return quote, nil
}

type priceResponse struct {
	Symbol           string  `json:"symbol"`
	Price            float64 `json:"price"`
	Currency         string  `json:"currency"`
	Sector           string  `json:"sector,omitempty"`
	Country          string  `json:"country,omitempty"`
	FiftyTwoWeekHigh float64 `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  float64 `json:"fifty_two_week_low,omitempty"`
}

// GetHistoricalPrices retrieves the dated closing price map for a symbol.
// Keys are "YYYY-MM-DD" dates plus provider range keys ("1W", "1M", "1Y",
// "YTD") which date-based lookups ignore.
func (c *Client) GetHistoricalPrices(ctx context.Context, symbol string) (models.PriceHistory, error) {
	var prices models.PriceHistory
	if err := c.get(ctx, fmt.Sprintf("/history/%s", url.PathEscape(symbol)), nil, &prices); err != nil {
		return nil, err
	}
	return prices, nil
}

// GetSplits retrieves historical split events on or after the from date.
func (c *Client) GetSplits(ctx context.Context, symbol string, from string) ([]models.SplitEvent, error) {
	params := url.Values{}
	if from != "" {
		params.Set("from", from)
	}

	var events []models.SplitEvent
	if err := c.get(ctx, fmt.Sprintf("/splits/%s", url.PathEscape(symbol)), params, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetExchangeRate returns the conversion rate between two currencies.
func (c *Client) GetExchangeRate(ctx context.Context, from, to string) (float64, error) {
	if from == to {
		return 1, nil
	}

	key := from + "/" + to
	c.mu.Lock()
	cached, ok := c.fxCache[key]
	c.mu.Unlock()
	if ok && time.Since(cached.fetched) < fxCacheTTL {
		return cached.rate, nil
	}

	params := url.Values{}
	params.Set("from", from)
	params.Set("to", to)

	var resp struct {
		Rate float64 `json:"rate"`
	}
	if err := c.get(ctx, "/fx", params, &resp); err != nil {
		return 0, err
	}
	if resp.Rate <= 0 {
		return 0, fmt.Errorf("no exchange rate for %s", key)
	}

	c.mu.Lock()
	c.fxCache[key] = cachedRate{rate: resp.Rate, fetched: time.Now()}
	c.mu.Unlock()

	return resp.Rate, nil
}
