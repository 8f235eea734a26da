// Package analysis holds the pure computations of a run: returns, the
// target-date gate, chart normalisation and message text.
package analysis

import (
	"github.com/ternarybob/krxdigest/internal/models"
)

// Returns computes simple day-over-day returns, price[i]/price[i-1] - 1.
// The first row of prices has no predecessor and produces no output row.
// The input must be aligned (no NaN).
func Returns(prices *models.PriceTable) *models.ReturnTable {
	if prices.Len() < 2 {
		return models.NewPriceTable(nil, prices.Columns)
	}

	out := models.NewPriceTable(prices.Dates[1:], prices.Columns)
	for _, c := range prices.Columns {
		in := prices.Values[c]
		col := out.Values[c]
		for i := 1; i < len(in); i++ {
			col[i-1] = in[i]/in[i-1] - 1
		}
	}
	return out
}
