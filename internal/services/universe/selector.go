// Package universe selects the equities a run reports on from the exchange's
// market-cap ranking snapshot.
package universe

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/krxdigest/internal/common"
	"github.com/ternarybob/krxdigest/internal/interfaces"
	"github.com/ternarybob/krxdigest/internal/models"
)

// Options configure a Selector.
type Options struct {
	Size         int            // Number of equities to keep
	CodePattern  *regexp.Regexp // Codes not matching are dropped
	Suffix       string         // Appended to the code to form the price-source symbol
	LookbackDays int            // Calendar days to walk back when a snapshot is empty
	Calendar     *common.TradingCalendar
}

// Selector picks the top equities by market capitalisation.
type Selector struct {
	source interfaces.UniverseSource
	opts   Options
	logger arbor.ILogger
}

// NewSelector creates a selector over a universe source.
func NewSelector(source interfaces.UniverseSource, opts Options, logger arbor.ILogger) *Selector {
	if opts.Size <= 0 {
		opts.Size = 100
	}
	if opts.CodePattern == nil {
		opts.CodePattern = regexp.MustCompile(`^\d{6}$`)
	}
	if opts.Calendar == nil {
		opts.Calendar = &common.TradingCalendar{WorkingDays: common.DefaultWorkingDays()}
	}
	return &Selector{source: source, opts: opts, logger: logger}
}

// Select returns up to Size equities ranked by market cap on snapshotDate.
// If the snapshot is empty, earlier working days are tried within LookbackDays.
// Zero usable equities is models.ErrEmptyUniverse.
func (s *Selector) Select(ctx context.Context, snapshotDate time.Time) ([]models.Equity, error) {
	date := models.DateOf(snapshotDate)
	oldest := date.AddDate(0, 0, -s.opts.LookbackDays)

	for !date.Before(oldest) {
		if !s.opts.Calendar.IsWorkingDay(date) {
			date = date.AddDate(0, 0, -1)
			continue
		}

		rows, err := s.source.FetchListings(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch listings for %s: %w", date.Format(models.DateLayout), err)
		}

		equities := s.rank(rows)
		if len(equities) > 0 {
			s.logger.Info().
				Str("snapshot", date.Format(models.DateLayout)).
				Int("rows", len(rows)).
				Int("selected", len(equities)).
				Msg("Universe selected")
			if len(equities) < s.opts.Size {
				s.logger.Warn().
					Int("wanted", s.opts.Size).
					Int("selected", len(equities)).
					Msg("Universe smaller than requested")
			}
			return equities, nil
		}

		s.logger.Warn().
			Str("snapshot", date.Format(models.DateLayout)).
			Int("rows", len(rows)).
			Msg("Snapshot has no usable equities, trying the previous day")
		date = date.AddDate(0, 0, -1)
	}

	return nil, models.ErrEmptyUniverse
}

type candidate struct {
	row models.ListingRow
	cap decimal.Decimal
}

// rank normalises, filters and orders raw rows. Ties keep input order.
func (s *Selector) rank(rows []models.ListingRow) []models.Equity {
	candidates := make([]candidate, 0, len(rows))
	for _, r := range rows {
		code := strings.TrimSpace(r.Code)
		if !s.opts.CodePattern.MatchString(code) {
			continue
		}
		marketCap, ok := ParseMarketCap(r.MarketCap)
		if !ok {
			s.logger.Debug().Str("code", code).Str("market_cap", r.MarketCap).Msg("Dropping row with unparseable market cap")
			continue
		}
		r.Code = code
		candidates = append(candidates, candidate{row: r, cap: marketCap})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].cap.GreaterThan(candidates[j].cap)
	})

	if len(candidates) > s.opts.Size {
		candidates = candidates[:s.opts.Size]
	}

	equities := make([]models.Equity, len(candidates))
	for i, c := range candidates {
		equities[i] = models.Equity{
			Code:      c.row.Code,
			Name:      strings.TrimSpace(c.row.Name),
			MarketCap: c.cap,
			Symbol:    c.row.Code + s.opts.Suffix,
		}
	}
	return equities
}

// ParseMarketCap coerces a market-cap string, tolerating thousands separators
// and surrounding whitespace.
func ParseMarketCap(raw string) (decimal.Decimal, bool) {
	cleaned := strings.NewReplacer(",", "", " ", "", "_", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
