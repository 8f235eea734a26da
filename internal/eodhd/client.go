package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/krxdigest/internal/common"
	"github.com/ternarybob/krxdigest/internal/httpclient"
	"github.com/ternarybob/krxdigest/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the EODHD API.
	DefaultBaseURL = "https://eodhd.com/api"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10

	// DefaultSuffix is the EODHD exchange suffix for KOSPI listings.
	DefaultSuffix = ".KO"
)

// Client is an EODHD API client.
type Client struct {
	baseURL     string
	apiKey      string
	suffix      string
	httpClient  *http.Client
	logger      arbor.ILogger
	limiter     *rate.Limiter
	retry       common.RetryPolicy
	concurrency int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithConcurrency sets how many symbols a batch fetches at once.
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		c.concurrency = n
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(policy common.RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = policy
	}
}

// WithSuffix sets the exchange suffix used to key news lookups by code.
func WithSuffix(suffix string) ClientOption {
	return func(c *Client) {
		c.suffix = suffix
	}
}

// NewClient creates a new EODHD API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		suffix:      DefaultSuffix,
		httpClient:  httpclient.NewDefaultHTTPClient(DefaultTimeout),
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		retry:       common.NoRetry,
		concurrency: common.DefaultFetchConcurrency,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies the source.
func (c *Client) Name() string {
	return "eodhd"
}

// get performs a GET request to the API, retrying transient failures.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	return common.Retry(ctx, c.retry, func() error {
		return c.doGet(ctx, path, params, result)
	})
}

func (c *Client) doGet(ctx context.Context, path string, params url.Values, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return &RateLimitError{RetryAfter: time.Second}
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("api_token", c.apiKey)
	query.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("EODHD API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", path, models.ErrSymbolNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return httpclient.Classify(resp.StatusCode, &APIError{
			StatusCode: resp.StatusCode,
			Message:    httpclient.ReadErrorBody(resp),
			Endpoint:   path,
		})
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetEOD retrieves end-of-day bars for a symbol in ascending date order.
// Symbol format: TICKER.EXCHANGE (e.g., "005930.KO", "KS11.INDX")
func (c *Client) GetEOD(ctx context.Context, symbol string, opts ...QueryOption) ([]Bar, error) {
	params := &queryParams{Order: "a"}
	for _, opt := range opts {
		opt(params)
	}

	query := url.Values{}
	query.Set("period", "d")
	query.Set("order", params.Order)
	if !params.From.IsZero() {
		query.Set("from", params.From.Format(models.DateLayout))
	}
	if !params.To.IsZero() {
		query.Set("to", params.To.Format(models.DateLayout))
	}

	var result []Bar
	if err := c.get(ctx, "/eod/"+symbol, query, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetExchangeDetails retrieves exchange metadata including published holidays
// for the window [from, to].
func (c *Client) GetExchangeDetails(ctx context.Context, code string, from, to time.Time) (*ExchangeDetails, error) {
	query := url.Values{}
	if !from.IsZero() {
		query.Set("from", from.Format(models.DateLayout))
	}
	if !to.IsZero() {
		query.Set("to", to.Format(models.DateLayout))
	}

	var result ExchangeDetails
	if err := c.get(ctx, "/exchange-details/"+code, query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetNews retrieves articles tagged with one or more symbols.
func (c *Client) GetNews(ctx context.Context, symbols []string, opts ...QueryOption) ([]Article, error) {
	params := &queryParams{Limit: 50}
	for _, opt := range opts {
		opt(params)
	}

	query := url.Values{}
	query.Set("s", strings.Join(symbols, ","))
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if !params.From.IsZero() {
		query.Set("from", params.From.Format(models.DateLayout))
	}
	if !params.To.IsZero() {
		query.Set("to", params.To.Format(models.DateLayout))
	}

	var result []Article
	if err := c.get(ctx, "/news", query, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// FetchCloses implements interfaces.PriceSource using adjusted closes. EOD data
// is served per symbol, so the batch fans out over a bounded pool. Symbols without
// data, or whose retries are exhausted, are omitted.
func (c *Client) FetchCloses(ctx context.Context, symbols []string, from, to time.Time) (map[string]models.Series, error) {
	results := common.Gather(symbols, c.concurrency, func(symbol string) ([]Bar, error) {
		return c.GetEOD(ctx, symbol, WithDateRange(from, to))
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]models.Series, len(symbols))
	for _, r := range results {
		if r.Err != nil {
			if c.logger != nil {
				if errors.Is(r.Err, models.ErrSymbolNotFound) {
					c.logger.Debug().Str("symbol", r.Key).Msg("No price data for symbol")
				} else {
					c.logger.Warn().Err(r.Err).Str("symbol", r.Key).Msg("Price fetch failed, omitting symbol")
				}
			}
			continue
		}

		series := make(models.Series, len(r.Value))
		for _, b := range r.Value {
			d, err := time.Parse(models.DateLayout, b.Date)
			if err != nil {
				continue
			}
			price := b.AdjustedClose
			if price == 0 {
				price = b.Close
			}
			series[d] = price
		}
		if len(series) > 0 {
			out[r.Key] = series
		}
	}
	return out, nil
}

// Search implements interfaces.NewsSource keyed by the equity's exchange code.
func (c *Client) Search(ctx context.Context, q models.NewsQuery, max int) ([]models.NewsItem, error) {
	if q.Code == "" || max <= 0 {
		return nil, nil
	}

	articles, err := c.GetNews(ctx, []string{q.Code + c.suffix}, WithLimit(max))
	if errors.Is(err, models.ErrSymbolNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items := make([]models.NewsItem, 0, len(articles))
	for _, a := range articles {
		if len(items) == max {
			break
		}
		items = append(items, models.NewsItem{
			Headline:  strings.TrimSpace(a.Title),
			Link:      a.Link,
			Source:    "EODHD",
			Published: a.PublishedAt(),
		})
	}
	return items, nil
}
