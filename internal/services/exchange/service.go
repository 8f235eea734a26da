// Package exchange keeps the trading calendar in step with the holidays the
// exchange publishes through EODHD.
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/krxdigest/internal/common"
	"github.com/ternarybob/krxdigest/internal/eodhd"
)

// DefaultExchangeCode is EODHD's code for the Korea Exchange.
const DefaultExchangeCode = "KO"

// DetailsSource returns exchange metadata. Implemented by *eodhd.Client.
type DetailsSource interface {
	GetExchangeDetails(ctx context.Context, code string, from, to time.Time) (*eodhd.ExchangeDetails, error)
}

// Service refreshes a trading calendar from published exchange holidays.
type Service struct {
	source DetailsSource
	code   string
	logger arbor.ILogger
}

// NewService creates a holiday refresher for one exchange.
func NewService(source DetailsSource, exchangeCode string, logger arbor.ILogger) *Service {
	if exchangeCode == "" {
		exchangeCode = DefaultExchangeCode
	}
	return &Service{
		source: source,
		code:   exchangeCode,
		logger: logger,
	}
}

// Refresh adds the holidays published for the year around now to calendar.
// On failure the calendar keeps its configured holidays and the error is returned
// for the caller to log; a run can proceed without published holidays.
func (s *Service) Refresh(ctx context.Context, calendar *common.TradingCalendar, now time.Time) error {
	if s.source == nil {
		return fmt.Errorf("exchange details source not configured")
	}

	from := now.AddDate(0, -6, 0)
	to := now.AddDate(0, 6, 0)
	details, err := s.source.GetExchangeDetails(ctx, s.code, from, to)
	if err != nil {
		return fmt.Errorf("failed to fetch exchange details for %s: %w", s.code, err)
	}

	dates := details.HolidayDates()
	added := calendar.AddHolidays(dates...)

	s.logger.Info().
		Str("exchange", s.code).
		Int("published", len(dates)).
		Int("added", added).
		Int("total", len(calendar.Holidays)).
		Msg("Exchange holidays refreshed")

	return nil
}
