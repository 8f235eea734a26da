package krx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/krxdigest/internal/common"
	"github.com/ternarybob/krxdigest/internal/httpclient"
	"github.com/ternarybob/krxdigest/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the KRX Open API.
	DefaultBaseURL = "https://data-dbg.krx.co.kr/svc/apis"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 2

	stockDailyPath = "/sto/stk_bydd_trd"
	dateLayout     = "20060102"
)

// Client is a KRX Open API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	retry      common.RetryPolicy
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

// NewClient creates a new KRX API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: httpclient.NewDefaultHTTPClient(DefaultTimeout),
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		retry:      common.NoRetry,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs an authenticated GET request, retrying transient failures.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	return common.Retry(ctx, c.retry, func() error {
		return c.doGet(ctx, path, params, result)
	})
}

func (c *Client) doGet(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &RateLimitError{RetryAfter: time.Second}
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("AUTH_KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Str("params", params.Encode()).
			Msg("KRX API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

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

// GetDailyTrading retrieves the KOSPI daily trading report for a base date.
// Non-trading days return an empty slice.
func (c *Client) GetDailyTrading(ctx context.Context, date time.Time) ([]DailyTradingRow, error) {
	params := url.Values{}
	params.Set("basDd", date.Format(dateLayout))

	var result dailyTradingResponse
	if err := c.get(ctx, stockDailyPath, params, &result); err != nil {
		return nil, err
	}
	return result.OutBlock, nil
}

// FetchListings returns the raw ranking rows for a snapshot date.
func (c *Client) FetchListings(ctx context.Context, date time.Time) ([]models.ListingRow, error) {
	rows, err := c.GetDailyTrading(ctx, date)
	if err != nil {
		return nil, err
	}

	listings := make([]models.ListingRow, 0, len(rows))
	for _, r := range rows {
		listings = append(listings, models.ListingRow{
			Code:      strings.TrimSpace(string(r.Code)),
			Name:      strings.TrimSpace(string(r.Name)),
			Market:    strings.TrimSpace(string(r.Market)),
			MarketCap: strings.TrimSpace(string(r.MarketCap)),
		})
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("date", date.Format(models.DateLayout)).
			Int("rows", len(listings)).
			Msg("KRX listings fetched")
	}
	return listings, nil
}
