package models

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical layout for civil trading dates.
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date in t's own location and returns
// that date as midnight UTC. All series and tables key on these values.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ListingRow is one raw row of the market-cap ranking snapshot.
// MarketCap is kept as the source string; coercion happens in the selector.
type ListingRow struct {
	Code      string
	Name      string
	Market    string
	MarketCap string
}

// Equity is a member of the selected universe.
type Equity struct {
	Code      string          `json:"code"`       // Exchange code, e.g. "005930"
	Name      string          `json:"name"`       // Display name
	MarketCap decimal.Decimal `json:"market_cap"` // Market capitalisation on the snapshot date
	Symbol    string          `json:"symbol"`     // Price-source symbol, e.g. "005930.KS"
}

// Series maps a trading date (see DateOf) to a closing price.
type Series map[time.Time]float64

// Dates returns the series dates in ascending order.
func (s Series) Dates() []time.Time {
	dates := make([]time.Time, 0, len(s))
	for d := range s {
		dates = append(dates, d)
	}
	sortDates(dates)
	return dates
}

// PriceTable is a date-indexed table with one column per symbol.
// Dates are strictly increasing and every column has len(Dates) values.
// Missing cells hold NaN until the table is aligned.
type PriceTable struct {
	Dates   []time.Time
	Columns []string
	Values  map[string][]float64
}

// NewPriceTable allocates an empty table for the given dates and columns, every cell NaN.
func NewPriceTable(dates []time.Time, columns []string) *PriceTable {
	t := &PriceTable{
		Dates:   dates,
		Columns: columns,
		Values:  make(map[string][]float64, len(columns)),
	}
	for _, c := range columns {
		col := make([]float64, len(dates))
		for i := range col {
			col[i] = math.NaN()
		}
		t.Values[c] = col
	}
	return t
}

// Len returns the number of rows.
func (t *PriceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Dates)
}

// HasColumn reports whether the table carries the named column.
func (t *PriceTable) HasColumn(name string) bool {
	_, ok := t.Values[name]
	return ok
}

// RowIndex returns the row index of date, or -1.
func (t *PriceTable) RowIndex(date time.Time) int {
	date = DateOf(date)
	for i, d := range t.Dates {
		if d.Equal(date) {
			return i
		}
	}
	return -1
}

// Value returns the cell at (row, column).
func (t *PriceTable) Value(row int, column string) float64 {
	return t.Values[column][row]
}

// RowComplete reports whether every column has a non-NaN value at row.
func (t *PriceTable) RowComplete(row int) bool {
	for _, c := range t.Columns {
		if math.IsNaN(t.Values[c][row]) {
			return false
		}
	}
	return true
}

// ReturnTable has the same layout as PriceTable; cells are simple returns.
type ReturnTable = PriceTable

func sortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}
