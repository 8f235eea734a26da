package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/krxdigest/internal/models"
)

// UniverseSource returns the raw market-cap ranking snapshot for a date.
type UniverseSource interface {
	// FetchListings returns every listed row for the snapshot date.
	// An empty slice with a nil error means the date has no snapshot (holiday, weekend).
	FetchListings(ctx context.Context, date time.Time) ([]models.ListingRow, error)
}

// PriceSource returns daily closing prices for a batch of symbols.
type PriceSource interface {
	// FetchCloses returns one series per symbol that has data in [from, to].
	// Symbols the source does not cover are omitted from the map; that is not an error.
	FetchCloses(ctx context.Context, symbols []string, from, to time.Time) (map[string]models.Series, error)

	// Name identifies the source in logs and symbol mapping ("yahoo", "eodhd").
	Name() string
}

// NewsSource searches headlines for one equity.
type NewsSource interface {
	// Search returns at most max items, newest first as ranked by the source.
	// Text sources search q.Text; symbol-keyed sources use q.Code. An empty result is valid.
	Search(ctx context.Context, q models.NewsQuery, max int) ([]models.NewsItem, error)
}
