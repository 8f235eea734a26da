// Package yahoo provides a client for the Yahoo Finance chart API.
package yahoo

import (
	"fmt"
	"time"
)

// ChartResponse is the envelope of /v8/finance/chart/{symbol}.
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

// ChartResult holds one symbol's bars. Close values are null on halted days.
type ChartResult struct {
	Meta       ChartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// ChartMeta carries the exchange offset needed to map timestamps to trading dates.
type ChartMeta struct {
	Symbol               string `json:"symbol"`
	Currency             string `json:"currency"`
	ExchangeName         string `json:"exchangeName"`
	ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	GMTOffset            int64  `json:"gmtoffset"`
}

// ChartError is the error object Yahoo embeds in chart responses.
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Bar is one daily close.
type Bar struct {
	Date  time.Time
	Close float64
}

// APIError represents an error from the Yahoo Finance API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Yahoo Finance API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError represents a local rate limiter failure.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Yahoo Finance rate limit exceeded, retry after %v", e.RetryAfter)
}
