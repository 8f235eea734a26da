// Package prices loads closing prices and aligns them into one gap-free table.
package prices

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/krxdigest/internal/interfaces"
	"github.com/ternarybob/krxdigest/internal/models"
)

// Service fetches and aligns closing prices.
type Service struct {
	source interfaces.PriceSource
	logger arbor.ILogger
}

// NewService creates a price service over a price source.
func NewService(source interfaces.PriceSource, logger arbor.ILogger) *Service {
	return &Service{source: source, logger: logger}
}

// Load fetches the benchmark and the equities for [from, to] and aligns them.
// The benchmark column is named benchmarkName and comes first; equity columns
// follow in the order given. Equities without data are absent from the table.
func (s *Service) Load(ctx context.Context, benchmarkName, benchmarkSymbol string, symbols []string, from, to time.Time) (*models.PriceTable, error) {
	bench, err := s.source.FetchCloses(ctx, []string{benchmarkSymbol}, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch benchmark %s: %w", benchmarkSymbol, err)
	}
	benchSeries := bench[benchmarkSymbol]
	if len(benchSeries) == 0 {
		return nil, fmt.Errorf("%s: %w", benchmarkSymbol, models.ErrBenchmarkUnavailable)
	}

	series, err := s.source.FetchCloses(ctx, symbols, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch equity prices: %w", err)
	}

	var missing []string
	for _, sym := range symbols {
		if len(series[sym]) == 0 {
			missing = append(missing, sym)
		}
	}
	if len(missing) > 0 {
		s.logger.Debug().
			Strs("symbols", missing).
			Msg("Symbols without price data omitted")
	}

	table := Align(benchmarkName, benchSeries, symbols, series)

	s.logger.Info().
		Str("source", s.source.Name()).
		Int("requested", len(symbols)).
		Int("columns", len(table.Columns)).
		Int("rows", table.Len()).
		Msg("Prices aligned")

	return table, nil
}

// Align outer-joins the series on date, forward-fills each column and drops
// rows that still have a gap. Symbols with no series are left out. The result
// has no NaN cells.
func Align(benchmarkName string, benchmark models.Series, symbols []string, series map[string]models.Series) *models.PriceTable {
	columns := []string{benchmarkName}
	all := map[string]models.Series{benchmarkName: benchmark}
	seen := map[string]bool{benchmarkName: true}
	for _, sym := range symbols {
		if seen[sym] || len(series[sym]) == 0 {
			continue
		}
		seen[sym] = true
		columns = append(columns, sym)
		all[sym] = series[sym]
	}

	union := models.Series{}
	for _, s := range all {
		for d := range s {
			union[models.DateOf(d)] = 0
		}
	}
	dates := union.Dates()

	row := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		row[d] = i
	}

	full := models.NewPriceTable(dates, columns)
	for _, c := range columns {
		col := full.Values[c]
		for d, v := range all[c] {
			if !math.IsNaN(v) {
				col[row[models.DateOf(d)]] = v
			}
		}
		forwardFill(col)
	}

	return dropIncomplete(full)
}

func forwardFill(col []float64) {
	last := math.NaN()
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = last
		} else {
			last = v
		}
	}
}

func dropIncomplete(t *models.PriceTable) *models.PriceTable {
	var keep []int
	for i := range t.Dates {
		if t.RowComplete(i) {
			keep = append(keep, i)
		}
	}

	dates := make([]time.Time, len(keep))
	for j, i := range keep {
		dates[j] = t.Dates[i]
	}
	out := models.NewPriceTable(dates, t.Columns)
	for _, c := range t.Columns {
		for j, i := range keep {
			out.Values[c][j] = t.Values[c][i]
		}
	}
	return out
}
