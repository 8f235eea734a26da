// Package krx provides a client for the KRX Open API daily trading endpoints.
package krx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DailyTradingRow is one listing from the KOSPI daily trading report.
// KRX returns every field as a string; numbers carry thousands separators.
type DailyTradingRow struct {
	BaseDate     flexString `json:"BAS_DD"`
	Code         flexString `json:"ISU_CD"`
	Name         flexString `json:"ISU_NM"`
	Market       flexString `json:"MKT_NM"`
	Section      flexString `json:"SECT_TP_NM"`
	Close        flexString `json:"TDD_CLSPRC"`
	ChangeRate   flexString `json:"FLUC_RT"`
	Volume       flexString `json:"ACC_TRDVOL"`
	MarketCap    flexString `json:"MKTCAP"`
	ListedShares flexString `json:"LIST_SHRS"`
}

type dailyTradingResponse struct {
	OutBlock []DailyTradingRow `json:"OutBlock_1"`
}

// flexString accepts a JSON string, number, or null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unexpected KRX value %s: %w", string(data), err)
	}
	*f = flexString(n.String())
	return nil
}

// APIError represents an error from the KRX API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("KRX API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError represents a local rate limiter failure.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("KRX rate limit exceeded, retry after %v", e.RetryAfter)
}
