package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/ternarybob/krxdigest/internal/models"
)

// Evaluate gates on targetDate and classifies the day.
// A target date missing from returns is models.ErrNoDataForTarget.
// The benchmark is up when its return is >= 0. Outperformers are the
// non-benchmark columns with a strictly positive, finite return, in column order.
// A non-finite benchmark return (a zero close upstream) is models.ErrBenchmarkUnavailable.
func Evaluate(returns *models.ReturnTable, benchmarkName string, targetDate time.Time, equities []models.Equity) (*models.Evaluation, error) {
	target := models.DateOf(targetDate)
	row := returns.RowIndex(target)
	if row < 0 {
		return nil, fmt.Errorf("%s: %w", target.Format(models.DateLayout), models.ErrNoDataForTarget)
	}
	if !returns.HasColumn(benchmarkName) {
		return nil, fmt.Errorf("%s: %w", benchmarkName, models.ErrBenchmarkUnavailable)
	}

	bySymbol := make(map[string]models.Equity, len(equities))
	for _, e := range equities {
		bySymbol[e.Symbol] = e
	}

	benchReturn := returns.Value(row, benchmarkName)
	if !isFinite(benchReturn) {
		return nil, fmt.Errorf("%s return %v on %s: %w", benchmarkName, benchReturn, target.Format(models.DateLayout), models.ErrBenchmarkUnavailable)
	}
	eval := &models.Evaluation{
		TargetDate:      target,
		BenchmarkReturn: benchReturn,
		Direction:       models.DirectionDown,
	}
	if benchReturn >= 0 {
		eval.Direction = models.DirectionUp
	}

	for _, c := range returns.Columns {
		if c == benchmarkName {
			continue
		}
		r := returns.Value(row, c)
		if !isFinite(r) || r <= 0 {
			continue
		}
		eq := bySymbol[c]
		name := eq.Name
		if name == "" {
			name = c
		}
		eval.Outperformers = append(eval.Outperformers, models.Outperformer{
			Symbol: c,
			Code:   eq.Code,
			Name:   name,
			Return: r,
		})
	}

	return eval, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
