// Package slack posts messages and files through the Slack Web API.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/krxdigest/internal/common"
	"github.com/ternarybob/krxdigest/internal/httpclient"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Slack Web API base URL.
	DefaultBaseURL = "https://slack.com/api"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit stays under Slack's tier 3 limits.
	DefaultRateLimit = 1
)

// Client is a Slack Web API client authenticated with a bot token.
type Client struct {
	baseURL    string
	token      string
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

// NewClient creates a Slack client.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: httpclient.NewDefaultHTTPClient(DefaultTimeout),
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 3),
		retry:      common.NoRetry,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SendText posts a message with mrkdwn formatting.
func (c *Client) SendText(ctx context.Context, channel, text string) error {
	payload := postMessageRequest{Channel: channel, Text: text, Mrkdwn: true}
	var resp apiResponse
	if err := c.callJSON(ctx, "chat.postMessage", payload, &resp); err != nil {
		return err
	}

	if c.logger != nil {
		c.logger.Debug().Str("channel", channel).Int("length", len(text)).Msg("Slack message posted")
	}
	return nil
}

// UploadFile shares content in channel using the external upload flow:
// reserve an upload URL, send the bytes, then complete the upload into the channel.
func (c *Client) UploadFile(ctx context.Context, channel string, content []byte, filename string) error {
	form := url.Values{}
	form.Set("filename", filename)
	form.Set("length", strconv.Itoa(len(content)))

	var reserved uploadURLResponse
	if err := c.callForm(ctx, "files.getUploadURLExternal", form, &reserved); err != nil {
		return fmt.Errorf("reserve upload: %w", err)
	}
	if reserved.UploadURL == "" || reserved.FileID == "" {
		return &APIError{Method: "files.getUploadURLExternal", Code: "missing_upload_url"}
	}

	if err := c.sendBytes(ctx, reserved.UploadURL, content, filename); err != nil {
		return fmt.Errorf("upload bytes: %w", err)
	}

	complete := completeUploadRequest{
		Files:     []uploadedFile{{ID: reserved.FileID, Title: filename}},
		ChannelID: channel,
	}
	var done apiResponse
	if err := c.callJSON(ctx, "files.completeUploadExternal", complete, &done); err != nil {
		return fmt.Errorf("complete upload: %w", err)
	}

	if c.logger != nil {
		c.logger.Info().
			Str("channel", channel).
			Str("file", filename).
			Str("file_id", reserved.FileID).
			Int("bytes", len(content)).
			Msg("Slack file uploaded")
	}
	return nil
}

func (c *Client) callJSON(ctx context.Context, method string, payload interface{}, result okResponse) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", method, err)
	}
	return c.call(ctx, method, "application/json; charset=utf-8", body, result)
}

func (c *Client) callForm(ctx context.Context, method string, form url.Values, result okResponse) error {
	return c.call(ctx, method, "application/x-www-form-urlencoded", []byte(form.Encode()), result)
}

func (c *Client) call(ctx context.Context, method, contentType string, body []byte, result okResponse) error {
	return common.Retry(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return httpclient.Classify(resp.StatusCode, &APIError{
				Method:     method,
				StatusCode: resp.StatusCode,
				Code:       httpclient.ReadErrorBody(resp),
			})
		}

		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", method, err)
		}
		if !result.isOK() {
			apiErr := &APIError{Method: method, StatusCode: resp.StatusCode, Code: result.errorCode()}
			if apiErr.Code == "ratelimited" {
				return &common.TransientError{Err: apiErr}
			}
			return apiErr
		}
		return nil
	})
}

// sendBytes posts the file to the reserved upload URL as multipart form data.
func (c *Client) sendBytes(ctx context.Context, uploadURL string, content []byte, filename string) error {
	return common.Retry(ctx, c.retry, func() error {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			return fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(content); err != nil {
			return fmt.Errorf("failed to write form file: %w", err)
		}
		if err := writer.Close(); err != nil {
			return fmt.Errorf("failed to close form: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &buf)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode != http.StatusOK {
			return httpclient.Classify(resp.StatusCode, &APIError{
				Method:     "upload",
				StatusCode: resp.StatusCode,
				Code:       http.StatusText(resp.StatusCode),
			})
		}
		return nil
	})
}
