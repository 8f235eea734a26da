package yahoo

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
	// DefaultBaseURL is the base URL for the Yahoo Finance API.
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5
)

// Client is a Yahoo Finance chart API client.
type Client struct {
	baseURL     string
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

// WithRetry sets the retry policy for transient failures.
func WithRetry(policy common.RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = policy
	}
}

// WithConcurrency sets how many symbols a batch fetches at once.
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		c.concurrency = n
	}
}

// NewClient creates a new Yahoo Finance client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
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
	return "yahoo"
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result *ChartResponse) error {
	return common.Retry(ctx, c.retry, func() error {
		return c.doGet(ctx, path, params, result)
	})
}

func (c *Client) doGet(ctx context.Context, path string, params url.Values, result *ChartResponse) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &RateLimitError{RetryAfter: time.Second}
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("Yahoo Finance API request")
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

// GetDailyCloses retrieves daily closes for a symbol between from and to (inclusive dates).
// Bars with a null close are skipped. Dates are trading dates in the exchange's offset.
func (c *Client) GetDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(models.DateOf(from).Unix(), 10))
	params.Set("period2", strconv.FormatInt(models.DateOf(to).AddDate(0, 0, 1).Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "history")

	path := "/v8/finance/chart/" + url.PathEscape(symbol)

	var resp ChartResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		if strings.EqualFold(resp.Chart.Error.Code, "Not Found") {
			return nil, fmt.Errorf("%s: %w", symbol, models.ErrSymbolNotFound)
		}
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Chart.Error.Description, Endpoint: path}
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, models.ErrSymbolNotFound)
	}

	result := resp.Chart.Result[0]
	var closes []*float64
	if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}

	offset := time.Duration(result.Meta.GMTOffset) * time.Second
	fromDate, toDate := models.DateOf(from), models.DateOf(to)

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		date := models.DateOf(time.Unix(ts, 0).UTC().Add(offset))
		if date.Before(fromDate) || date.After(toDate) {
			continue
		}
		bars = append(bars, Bar{Date: date, Close: *closes[i]})
	}
	return bars, nil
}

// FetchCloses implements interfaces.PriceSource. The chart API serves one symbol
// per request, so the batch fans out over a bounded pool. Symbols without data,
// or whose retries are exhausted, are omitted. Only context cancellation aborts the batch.
func (c *Client) FetchCloses(ctx context.Context, symbols []string, from, to time.Time) (map[string]models.Series, error) {
	results := common.Gather(symbols, c.concurrency, func(symbol string) ([]Bar, error) {
		return c.GetDailyCloses(ctx, symbol, from, to)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]models.Series, len(symbols))
	for _, r := range results {
		if errors.Is(r.Err, models.ErrSymbolNotFound) {
			if c.logger != nil {
				c.logger.Debug().Str("symbol", r.Key).Msg("No price data for symbol")
			}
			continue
		}
		if r.Err != nil {
			if c.logger != nil {
				c.logger.Warn().Err(r.Err).Str("symbol", r.Key).Msg("Price fetch failed, omitting symbol")
			}
			continue
		}
		if len(r.Value) == 0 {
			continue
		}

		series := make(models.Series, len(r.Value))
		for _, b := range r.Value {
			series[b.Date] = b.Close
		}
		out[r.Key] = series
	}
	return out, nil
}
