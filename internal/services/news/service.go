// Package news gathers headlines for each outperformer.
package news

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/krxdigest/internal/interfaces"
	"github.com/ternarybob/krxdigest/internal/models"
)

// Service looks up news for outperformers, one sequential query each.
type Service struct {
	source    interfaces.NewsSource
	perEquity int
	logger    arbor.ILogger
}

// NewService creates a news service returning at most perEquity items per equity.
func NewService(source interfaces.NewsSource, perEquity int, logger arbor.ILogger) *Service {
	return &Service{source: source, perEquity: perEquity, logger: logger}
}

// PerEquity is the headline cap per equity.
func (s *Service) PerEquity() int {
	return s.perEquity
}

// Collect returns one entry per outperformer, in order. A failed lookup
// degrades to an empty entry; only context cancellation is returned.
func (s *Service) Collect(ctx context.Context, outperformers []models.Outperformer) ([]models.EquityNews, error) {
	out := make([]models.EquityNews, 0, len(outperformers))
	failed := 0

	for _, o := range outperformers {
		entry := models.EquityNews{Equity: o}
		if s.perEquity > 0 {
			items, err := s.source.Search(ctx, models.NewsQuery{Text: o.Name, Code: o.Code}, s.perEquity)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				failed++
				s.logger.Warn().Err(err).Str("symbol", o.Symbol).Str("name", o.Name).Msg("News lookup failed")
			}
			if len(items) > s.perEquity {
				items = items[:s.perEquity]
			}
			entry.Items = items
		}
		out = append(out, entry)
	}

	s.logger.Info().
		Int("equities", len(outperformers)).
		Int("failed", failed).
		Msg("News collected")
	return out, nil
}
