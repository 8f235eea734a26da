// Package googlenews searches Google News through its RSS search feed.
package googlenews

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed/rss"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/krxdigest/internal/common"
	"github.com/ternarybob/krxdigest/internal/httpclient"
	"github.com/ternarybob/krxdigest/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the RSS search endpoint.
	DefaultBaseURL = "https://news.google.com/rss/search"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 2
)

// APIError represents a non-200 response from the feed.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Google News error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Client is a Google News RSS client.
type Client struct {
	baseURL    string
	language   string
	region     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	retry      common.RetryPolicy
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom search endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLocale sets the hl/gl/ceid parameters, e.g. ("ko", "KR").
func WithLocale(language, region string) ClientOption {
	return func(c *Client) {
		if language != "" {
			c.language = language
		}
		if region != "" {
			c.region = region
		}
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

// NewClient creates a Google News client for the Korean edition by default.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		language:   "ko",
		region:     "KR",
		httpClient: httpclient.NewDefaultHTTPClient(DefaultTimeout),
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		retry:      common.NoRetry,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Search implements interfaces.NewsSource, querying by display name.
func (c *Client) Search(ctx context.Context, q models.NewsQuery, max int) ([]models.NewsItem, error) {
	query := strings.TrimSpace(q.Text)
	if query == "" || max <= 0 {
		return nil, nil
	}

	// Each attempt parses into a fresh feed; a partial body never leaks into the result
	var feed *rss.Feed
	err := common.Retry(ctx, c.retry, func() error {
		f, err := c.fetch(ctx, query)
		if err != nil {
			return err
		}
		feed = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	items := make([]models.NewsItem, 0, max)
	for _, it := range feed.Items {
		if len(items) == max {
			break
		}
		if it == nil {
			continue
		}
		var source string
		if it.Source != nil {
			source = cleanText(it.Source.Title)
		}
		headline := stripPublisher(cleanText(it.Title), source)
		if headline == "" {
			continue
		}
		item := models.NewsItem{
			Headline: headline,
			Link:     strings.TrimSpace(it.Link),
			Source:   source,
		}
		if it.PubDateParsed != nil {
			item.Published = *it.PubDateParsed
		}
		items = append(items, item)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("query", query).
			Int("items", len(items)).
			Msg("Google News search complete")
	}
	return items, nil
}

func (c *Client) fetch(ctx context.Context, query string) (*rss.Feed, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", c.language)
	params.Set("gl", c.region)
	params.Set("ceid", c.region+":"+c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.Classify(resp.StatusCode, &APIError{
			StatusCode: resp.StatusCode,
			Message:    httpclient.ReadErrorBody(resp),
			Endpoint:   c.baseURL,
		})
	}

	// Read the whole body first so a stalled transfer surfaces as a retryable network error
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	feed, err := (&rss.Parser{}).Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feed, nil
}

// cleanText drops any markup embedded in a feed field and collapses whitespace.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// stripPublisher removes the " - Publisher" suffix Google appends to titles.
func stripPublisher(title, source string) string {
	if source == "" {
		return title
	}
	if trimmed := strings.TrimSuffix(title, " - "+source); trimmed != "" {
		return trimmed
	}
	return title
}
