// Package eodhd provides a client for the EODHD (End of Day Historical Data) API,
// used as an alternative price and news source.
package eodhd

import (
	"fmt"
	"sort"
	"time"
)

// QueryOption represents an optional parameter for API queries.
type QueryOption func(*queryParams)

type queryParams struct {
	From  time.Time
	To    time.Time
	Order string // a (asc), d (desc)
	Limit int
}

// WithDateRange sets the date range for the query.
func WithDateRange(from, to time.Time) QueryOption {
	return func(p *queryParams) {
		p.From = from
		p.To = to
	}
}

// WithLimit sets the maximum number of results.
func WithLimit(limit int) QueryOption {
	return func(p *queryParams) {
		p.Limit = limit
	}
}

// Bar is one row of the /eod endpoint.
type Bar struct {
	Date          string  `json:"date"`
	Close         float64 `json:"close"`
	AdjustedClose float64 `json:"adjusted_close"`
	Volume        int64   `json:"volume"`
}

// ExchangeDetails is the /exchange-details/{code} response.
type ExchangeDetails struct {
	Code         string                     `json:"Code"`
	Name         string                     `json:"Name"`
	OperatingMIC string                     `json:"OperatingMIC"`
	Country      string                     `json:"Country"`
	Currency     string                     `json:"Currency"`
	Timezone     string                     `json:"Timezone"`
	IsOpen       bool                       `json:"isOpen"`
	Holidays     map[string]ExchangeHoliday `json:"ExchangeHolidays"` // keyed by index
}

// ExchangeHoliday is one published market closure.
type ExchangeHoliday struct {
	Name string `json:"Holiday"`
	Date string `json:"Date"` // YYYY-MM-DD
	Type string `json:"Type"` // "official", "bank", ...
}

// HolidayDates returns the parsed closure dates in ascending order.
// Entries with an unparseable date are skipped.
func (d *ExchangeDetails) HolidayDates() []time.Time {
	dates := make([]time.Time, 0, len(d.Holidays))
	for _, h := range d.Holidays {
		t, err := time.Parse("2006-01-02", h.Date)
		if err != nil {
			continue
		}
		dates = append(dates, t)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Article is one row of the /news endpoint.
type Article struct {
	Date    string   `json:"date"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Link    string   `json:"link"`
	Symbols []string `json:"symbols"`
	Tags    []string `json:"tags"`
}

// PublishedAt parses the article timestamp; EODHD mixes RFC3339 and plain dates.
func (a Article) PublishedAt() time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-07:00", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, a.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}

// APIError represents an error from the EODHD API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError represents a rate limit error.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("EODHD rate limit exceeded, retry after %v", e.RetryAfter)
}
