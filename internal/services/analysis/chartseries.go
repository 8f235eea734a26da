package analysis

import (
	"time"

	"github.com/ternarybob/krxdigest/internal/models"
)

// PrepareChartSeries rebases the benchmark and each symbol over the window
// starting windowDays before targetDate. Every series is divided by its value
// on the window's first row, so the first point is exactly 1.0.
// Symbols not in the table, or whose first value is zero or not finite, are
// skipped. An unusable benchmark base leaves the series without dates.
func PrepareChartSeries(prices *models.PriceTable, benchmarkName string, symbols []string, targetDate time.Time, windowDays int) *models.ChartSeries {
	start := models.DateOf(targetDate).AddDate(0, 0, -windowDays)

	first := -1
	for i, d := range prices.Dates {
		if !d.Before(start) {
			first = i
			break
		}
	}

	out := &models.ChartSeries{Equities: make(map[string][]float64, len(symbols))}
	if first < 0 || !prices.HasColumn(benchmarkName) {
		return out
	}

	benchmark, ok := rebase(prices.Values[benchmarkName][first:])
	if !ok {
		return out
	}
	out.Dates = append([]time.Time(nil), prices.Dates[first:]...)
	out.Benchmark = benchmark
	for _, sym := range symbols {
		if !prices.HasColumn(sym) {
			continue
		}
		if values, ok := rebase(prices.Values[sym][first:]); ok {
			out.Equities[sym] = values
		}
	}
	return out
}

func rebase(values []float64) ([]float64, bool) {
	if len(values) == 0 {
		return nil, false
	}
	base := values[0]
	if base == 0 || !isFinite(base) {
		return nil, false
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v / base
	}
	return out, true
}
