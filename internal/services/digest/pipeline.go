// Package digest runs one daily report end to end: universe, prices,
// evaluation, then summary, news digest and chart document deliveries.
package digest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/krxdigest/internal/interfaces"
	"github.com/ternarybob/krxdigest/internal/models"
	"github.com/ternarybob/krxdigest/internal/services/analysis"
	"github.com/ternarybob/krxdigest/internal/services/messaging"
	"github.com/ternarybob/krxdigest/internal/services/news"
	"github.com/ternarybob/krxdigest/internal/services/prices"
	"github.com/ternarybob/krxdigest/internal/services/universe"
)

// Gate modes.
const (
	GateClassify = "classify"  // report every day
	GateDownOnly = "down_only" // report only when the benchmark fell
)

// Delivery kinds recorded in models.DeliveryOutcome.
const (
	DeliverySummary  = "summary"
	DeliveryNews     = "news"
	DeliveryDocument = "document"
	DeliveryNoData   = "no_data"
)

// DefaultMessageLimit keeps digest messages under Slack's text limit.
const DefaultMessageLimit = 35000

// Options configure a Pipeline.
type Options struct {
	BenchmarkName   string
	BenchmarkTitle  string
	BenchmarkSymbol string
	GateMode        string
	LookbackDays    int
	ChartWindowDays int
	Channel         string
	OutputDir       string
	MessageLimit    int
}

// Pipeline wires the stages of a run together. Runs are sequential; callers
// serialise concurrent triggers.
type Pipeline struct {
	selector  *universe.Selector
	prices    *prices.Service
	news      *news.Service
	renderer  interfaces.ChartRenderer
	messenger interfaces.Messenger
	notifier  *messaging.OperatorNotifier
	opts      Options
	logger    arbor.ILogger
}

// NewPipeline creates a pipeline
func NewPipeline(
	selector *universe.Selector,
	priceService *prices.Service,
	newsService *news.Service,
	renderer interfaces.ChartRenderer,
	messenger interfaces.Messenger,
	notifier *messaging.OperatorNotifier,
	opts Options,
	logger arbor.ILogger,
) *Pipeline {
	if opts.GateMode == "" {
		opts.GateMode = GateClassify
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 60
	}
	if opts.ChartWindowDays <= 0 {
		opts.ChartWindowDays = 30
	}
	if opts.MessageLimit == 0 {
		opts.MessageLimit = DefaultMessageLimit
	}
	if opts.BenchmarkTitle == "" {
		opts.BenchmarkTitle = opts.BenchmarkName
	}
	if notifier == nil {
		notifier = messaging.NewOperatorNotifier(nil, "", logger)
	}
	return &Pipeline{
		selector:  selector,
		prices:    priceService,
		news:      newsService,
		renderer:  renderer,
		messenger: messenger,
		notifier:  notifier,
		opts:      opts,
		logger:    logger,
	}
}

// Run produces the report for targetDate.
//
// A returned error means the run stopped early: universe, prices or evaluation
// failed before anything was sent, or ctx was cancelled. A missing target
// date is not an error: one notice is sent and the result has RunStatusNoData.
// Delivery failures are recorded in the result and reported to the operator.
func (p *Pipeline) Run(ctx context.Context, targetDate time.Time) (*models.RunResult, error) {
	target := models.DateOf(targetDate)
	result := &models.RunResult{
		RunID:      uuid.New().String(),
		TargetDate: target,
	}
	logger := p.logger.WithCorrelationId(result.RunID)
	started := time.Now()

	logger.Info().
		Str("run_id", result.RunID).
		Str("target", target.Format(models.DateLayout)).
		Str("gate_mode", p.opts.GateMode).
		Msg("Digest run started")

	err := p.run(ctx, logger, result)
	if err != nil {
		result.Status = models.RunStatusFailed
		p.notifier.Notify(ctx, result.RunID, "run", err)
	}

	if failed := result.Failed(); len(failed) > 0 {
		kinds := make([]string, len(failed))
		for i, f := range failed {
			kinds[i] = f.Kind
		}
		logger.Warn().
			Str("run_id", result.RunID).
			Strs("failed", kinds).
			Msg("Digest run had delivery failures")
	}

	logger.Info().
		Str("run_id", result.RunID).
		Str("status", string(result.Status)).
		Int("deliveries", len(result.Delivery)).
		Int("failed_deliveries", len(result.Failed())).
		Str("report", result.ReportPath).
		Dur("elapsed", time.Since(started)).
		Msg("Digest run finished")

	return result, err
}

func (p *Pipeline) run(ctx context.Context, logger arbor.ILogger, result *models.RunResult) error {
	target := result.TargetDate

	// Universe: snapshot of the day before the target
	equities, err := p.selector.Select(ctx, target.AddDate(0, 0, -1))
	if err != nil {
		return fmt.Errorf("universe: %w", err)
	}

	symbols := make([]string, len(equities))
	for i, e := range equities {
		symbols[i] = e.Symbol
	}

	from := target.AddDate(0, 0, -p.opts.LookbackDays)
	to := target.AddDate(0, 0, 1)
	table, err := p.prices.Load(ctx, p.opts.BenchmarkName, p.opts.BenchmarkSymbol, symbols, from, to)
	if err != nil {
		return fmt.Errorf("prices: %w", err)
	}

	eval, err := analysis.Evaluate(analysis.Returns(table), p.opts.BenchmarkName, target, equities)
	if errors.Is(err, models.ErrNoDataForTarget) {
		logger.Info().
			Str("target", target.Format(models.DateLayout)).
			Int("rows", table.Len()).
			Msg("No data for target date, sending notice")
		result.Status = models.RunStatusNoData
		p.deliver(ctx, result, DeliveryNoData, func() error {
			return p.messenger.SendText(ctx, p.opts.Channel, analysis.FormatNoData(target))
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	result.Evaluation = eval

	logger.Info().
		Str("direction", string(eval.Direction)).
		Str("benchmark_return", analysis.FormatPercent(eval.BenchmarkReturn)).
		Int("outperformers", len(eval.Outperformers)).
		Msg("Target date evaluated")

	if p.opts.GateMode == GateDownOnly && eval.Direction == models.DirectionUp {
		logger.Info().Msg("Benchmark rose, report suppressed by gate mode")
		result.Status = models.RunStatusSkipped
		return nil
	}

	labels := analysis.Labels{Name: p.opts.BenchmarkName, Title: p.opts.BenchmarkTitle}

	p.deliver(ctx, result, DeliverySummary, func() error {
		return p.messenger.SendText(ctx, p.opts.Channel, analysis.FormatSummary(eval, labels))
	})

	if len(eval.Outperformers) == 0 {
		logger.Info().Msg("No outperformers, skipping news and document")
		result.Status = models.RunStatusNoOutperformers
		return nil
	}

	if err := p.sendNews(ctx, logger, result, eval); err != nil {
		return err
	}

	p.sendDocument(ctx, logger, result, eval, labels, table)

	result.Status = models.RunStatusCompleted
	return nil
}

func (p *Pipeline) sendNews(ctx context.Context, logger arbor.ILogger, result *models.RunResult, eval *models.Evaluation) error {
	if p.news == nil || p.news.PerEquity() <= 0 {
		logger.Debug().Msg("News digest disabled")
		return nil
	}

	items, err := p.news.Collect(ctx, eval.Outperformers)
	if err != nil {
		return fmt.Errorf("news: %w", err)
	}

	messages := analysis.FormatNewsDigest(result.TargetDate, p.news.PerEquity(), items, p.opts.MessageLimit)
	for _, text := range messages {
		text := text
		p.deliver(ctx, result, DeliveryNews, func() error {
			return p.messenger.SendText(ctx, p.opts.Channel, text)
		})
	}
	return nil
}

func (p *Pipeline) sendDocument(ctx context.Context, logger arbor.ILogger, result *models.RunResult, eval *models.Evaluation, labels analysis.Labels, table *models.PriceTable) {
	p.deliver(ctx, result, DeliveryDocument, func() error {
		symbols := make([]string, len(eval.Outperformers))
		for i, o := range eval.Outperformers {
			symbols[i] = o.Symbol
		}
		series := analysis.PrepareChartSeries(table, p.opts.BenchmarkName, symbols, result.TargetDate, p.opts.ChartWindowDays)

		doc := interfaces.ChartDocument{
			Title:          fmt.Sprintf("%s %s", result.TargetDate.Format(models.DateLayout), labels.Name),
			Cover:          analysis.FormatCover(eval, labels),
			BenchmarkLabel: labels.Name,
		}
		for _, o := range eval.Outperformers {
			values, ok := series.Equities[o.Symbol]
			if !ok {
				continue
			}
			doc.Charts = append(doc.Charts, interfaces.ChartPanel{
				Title:     o.Name,
				Dates:     series.Dates,
				Equity:    values,
				Benchmark: series.Benchmark,
			})
		}

		pdf, err := p.renderer.RenderDocument(doc)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}

		path, err := p.writeReport(result.TargetDate, pdf)
		if err != nil {
			return err
		}
		result.ReportPath = path

		logger.Info().
			Str("path", path).
			Int("charts", len(doc.Charts)).
			Int("bytes", len(pdf)).
			Msg("Report written")

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read report %s: %w", path, err)
		}
		return p.messenger.UploadFile(ctx, p.opts.Channel, content, filepath.Base(path))
	})
}

// ReportFilename names the document for a target date, e.g. report_20240305.pdf.
func ReportFilename(target time.Time) string {
	return "report_" + target.Format("20060102") + ".pdf"
}

func (p *Pipeline) writeReport(target time.Time, pdf []byte) (string, error) {
	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", p.opts.OutputDir, err)
	}
	path := filepath.Join(p.opts.OutputDir, ReportFilename(target))
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return path, nil
}

// deliver runs one outbound step, records its outcome and reports a failure
// to the operator. It never stops the run.
func (p *Pipeline) deliver(ctx context.Context, result *models.RunResult, kind string, send func() error) {
	outcome := models.DeliveryOutcome{Kind: kind}
	if err := send(); err != nil {
		outcome.Error = err.Error()
		p.notifier.Notify(ctx, result.RunID, kind, err)
	}
	result.Delivery = append(result.Delivery, outcome)
}
