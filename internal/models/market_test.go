package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOf_UsesOwnLocation(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	// 2024-03-05 06:00 in Seoul is still 03-04 in UTC
	d := DateOf(time.Date(2024, 3, 5, 6, 0, 0, 0, seoul))
	assert.Equal(t, "2024-03-05", d.Format(DateLayout))
	assert.Equal(t, time.UTC, d.Location())
}

func TestSeries_DatesSorted(t *testing.T) {
	s := Series{
		time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC):  3,
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC): 1,
		time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC):  2,
	}
	dates := s.Dates()
	require.Len(t, dates, 3)
	assert.Equal(t, "2024-02-29", dates[0].Format(DateLayout))
	assert.Equal(t, "2024-03-05", dates[2].Format(DateLayout))
}

func TestPriceTable(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	table := NewPriceTable(dates, []string{"KOSPI", "005930.KS"})

	assert.Equal(t, 2, table.Len())
	assert.True(t, table.HasColumn("KOSPI"))
	assert.False(t, table.HasColumn("000660.KS"))
	assert.True(t, math.IsNaN(table.Value(0, "KOSPI")))
	assert.False(t, table.RowComplete(0))

	table.Values["KOSPI"][1] = 2640
	table.Values["005930.KS"][1] = 74500
	assert.True(t, table.RowComplete(1))

	assert.Equal(t, 1, table.RowIndex(time.Date(2024, 3, 5, 15, 30, 0, 0, time.UTC)))
	assert.Equal(t, -1, table.RowIndex(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)))

	var empty *PriceTable
	assert.Equal(t, 0, empty.Len())
}

func TestRunResult_Failed(t *testing.T) {
	r := &RunResult{Delivery: []DeliveryOutcome{
		{Kind: "summary"},
		{Kind: "news", Error: "channel_not_found"},
		{Kind: "document"},
	}}
	failed := r.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "news", failed[0].Kind)
}
