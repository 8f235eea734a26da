package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/krxdigest/internal/common"
	"github.com/ternarybob/krxdigest/internal/eodhd"
	"github.com/ternarybob/krxdigest/internal/googlenews"
	"github.com/ternarybob/krxdigest/internal/httpclient"
	"github.com/ternarybob/krxdigest/internal/interfaces"
	"github.com/ternarybob/krxdigest/internal/krx"
	"github.com/ternarybob/krxdigest/internal/models"
	"github.com/ternarybob/krxdigest/internal/services/charts"
	"github.com/ternarybob/krxdigest/internal/services/digest"
	"github.com/ternarybob/krxdigest/internal/services/exchange"
	"github.com/ternarybob/krxdigest/internal/services/messaging"
	"github.com/ternarybob/krxdigest/internal/services/news"
	"github.com/ternarybob/krxdigest/internal/services/prices"
	"github.com/ternarybob/krxdigest/internal/services/scheduler"
	"github.com/ternarybob/krxdigest/internal/services/universe"
	"github.com/ternarybob/krxdigest/internal/slack"
	"github.com/ternarybob/krxdigest/internal/yahoo"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Sources
	UniverseSource interfaces.UniverseSource
	PriceSource    interfaces.PriceSource
	NewsSource     interfaces.NewsSource

	// Delivery
	Messenger interfaces.Messenger
	Renderer  *charts.Service
	Notifier  *messaging.OperatorNotifier

	Calendar  *common.TradingCalendar
	Holidays  *exchange.Service // nil unless report.refresh_holidays is set
	Pipeline  *digest.Pipeline
	Scheduler *scheduler.Service

	eod *eodhd.Client
}

// New wires every component from cfg. No network calls are made.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := a.initSources(); err != nil {
		return nil, err
	}
	if err := a.initServices(); err != nil {
		return nil, err
	}

	a.Scheduler = scheduler.NewService(a.scheduledRun, cfg.Location(), logger)

	logger.Debug().
		Str("prices", a.PriceSource.Name()).
		Str("news", cfg.News.Provider).
		Bool("dry_run", cfg.Slack.DryRun).
		Msg("Application initialized")

	return a, nil
}

func (a *App) initSources() error {
	cfg := a.Config
	retry := common.RetryPolicyFromConfig(cfg.Retry)

	a.UniverseSource = krx.NewClient(cfg.KRX.APIKey,
		krx.WithBaseURL(cfg.KRX.BaseURL),
		krx.WithHTTPClient(httpclient.NewDefaultHTTPClient(common.ParseDuration(cfg.KRX.Timeout, krx.DefaultTimeout))),
		krx.WithLogger(a.Logger),
		krx.WithRateLimit(cfg.KRX.RateLimit),
		krx.WithRetry(retry),
	)

	switch cfg.Prices.Provider {
	case "eodhd":
		a.PriceSource = a.eodClient()
	case "yahoo", "":
		a.PriceSource = yahoo.NewClient(
			yahoo.WithBaseURL(cfg.Yahoo.BaseURL),
			yahoo.WithHTTPClient(httpclient.NewDefaultHTTPClient(common.ParseDuration(cfg.Yahoo.Timeout, yahoo.DefaultTimeout))),
			yahoo.WithLogger(a.Logger),
			yahoo.WithRateLimit(cfg.Yahoo.RateLimit),
			yahoo.WithRetry(retry),
		)
	default:
		return fmt.Errorf("unknown price provider %q", cfg.Prices.Provider)
	}

	switch cfg.News.Provider {
	case "eodhd":
		a.NewsSource = a.eodClient()
	case "google", "":
		a.NewsSource = googlenews.NewClient(
			googlenews.WithBaseURL(cfg.News.BaseURL),
			googlenews.WithLocale(cfg.News.Language, cfg.News.Region),
			googlenews.WithHTTPClient(httpclient.NewDefaultHTTPClient(common.ParseDuration(cfg.News.Timeout, googlenews.DefaultTimeout))),
			googlenews.WithLogger(a.Logger),
			googlenews.WithRateLimit(cfg.News.RateLimit),
			googlenews.WithRetry(retry),
		)
	default:
		return fmt.Errorf("unknown news provider %q", cfg.News.Provider)
	}

	if cfg.Slack.DryRun {
		a.Messenger = messaging.NewLogMessenger(a.Logger)
	} else {
		a.Messenger = slack.NewClient(cfg.Slack.Token,
			slack.WithBaseURL(cfg.Slack.BaseURL),
			slack.WithHTTPClient(httpclient.NewDefaultHTTPClient(common.ParseDuration(cfg.Slack.Timeout, slack.DefaultTimeout))),
			slack.WithLogger(a.Logger),
			slack.WithRetry(retry),
		)
	}

	return nil
}

// eodClient returns the one EODHD client shared by prices, news and holidays.
func (a *App) eodClient() *eodhd.Client {
	if a.eod == nil {
		cfg := a.Config
		a.eod = eodhd.NewClient(cfg.EODHD.APIKey,
			eodhd.WithBaseURL(cfg.EODHD.BaseURL),
			eodhd.WithSuffix(cfg.EODHD.Suffix),
			eodhd.WithHTTPClient(httpclient.NewDefaultHTTPClient(common.ParseDuration(cfg.EODHD.Timeout, eodhd.DefaultTimeout))),
			eodhd.WithLogger(a.Logger),
			eodhd.WithRateLimit(cfg.EODHD.RateLimit),
			eodhd.WithRetry(common.RetryPolicyFromConfig(cfg.Retry)),
		)
	}
	return a.eod
}

func (a *App) initServices() error {
	cfg := a.Config

	calendar, err := common.NewTradingCalendar(cfg.Report.Holidays)
	if err != nil {
		return fmt.Errorf("failed to build trading calendar: %w", err)
	}
	a.Calendar = calendar
	if cfg.Report.RefreshHolidays {
		a.Holidays = exchange.NewService(a.eodClient(), cfg.EODHD.ExchangeCode, a.Logger)
	}
	codePattern, err := regexp.Compile(cfg.KRX.CodePattern)
	if err != nil {
		return fmt.Errorf("invalid krx.code_pattern: %w", err)
	}

	suffix, benchmarkSymbol := cfg.PriceSymbols()

	selector := universe.NewSelector(a.UniverseSource, universe.Options{
		Size:         cfg.Report.UniverseSize,
		CodePattern:  codePattern,
		Suffix:       suffix,
		LookbackDays: cfg.Report.SnapshotLookbackDays,
		Calendar:     calendar,
	}, a.Logger)

	fontPath := cfg.Report.FontPath
	if fontPath == "" {
		fontPath = charts.DiscoverFont(charts.DefaultFontCandidates...)
	}
	font, err := charts.LoadFont(fontPath)
	if err != nil {
		return err
	}
	if font == nil {
		if cfg.Report.RequireFont {
			return fmt.Errorf("no Hangul-capable font found, set report.font_path (searched %s)",
				strings.Join(charts.DefaultFontCandidates, ", "))
		}
		a.Logger.Warn().Msg("No report font found, Hangul names will not render in the PDF")
	} else {
		a.Logger.Debug().Str("font", fontPath).Msg("Report font loaded")
	}
	a.Renderer = charts.NewService(charts.Options{
		Rows:    cfg.Report.ChartRows,
		Columns: cfg.Report.ChartColumns,
		Font:    font,
	}, a.Logger)

	a.Notifier = messaging.NewOperatorNotifier(a.Messenger, cfg.Slack.OperatorChannel, a.Logger)

	a.Pipeline = digest.NewPipeline(
		selector,
		prices.NewService(a.PriceSource, a.Logger),
		news.NewService(a.NewsSource, cfg.Report.NewsPerEquity, a.Logger),
		a.Renderer,
		a.Messenger,
		a.Notifier,
		digest.Options{
			BenchmarkName:   cfg.Report.BenchmarkName,
			BenchmarkTitle:  cfg.Report.BenchmarkTitle,
			BenchmarkSymbol: benchmarkSymbol,
			GateMode:        cfg.Report.GateMode,
			LookbackDays:    cfg.Report.LookbackDays,
			ChartWindowDays: cfg.Report.ChartWindowDays,
			Channel:         cfg.Slack.Channel,
			OutputDir:       cfg.Report.OutputDir,
		},
		a.Logger,
	)

	return nil
}

// TargetDate resolves the configured target ("today" or "yesterday") at now
// in the exchange time zone.
func (a *App) TargetDate(now time.Time) time.Time {
	return common.ResolveTargetDate(now, a.Config.Location(), a.Config.Report.Target)
}

// RunOnce refreshes published holidays when enabled and executes one digest run for target.
func (a *App) RunOnce(ctx context.Context, target time.Time) (*models.RunResult, error) {
	a.RefreshHolidays(ctx, target)
	return a.Pipeline.Run(ctx, target)
}

// RefreshHolidays merges the exchange's published holidays around now into the
// calendar. Failures are logged and the configured holidays stay in effect.
func (a *App) RefreshHolidays(ctx context.Context, now time.Time) {
	if a.Holidays == nil {
		return
	}
	if err := a.Holidays.Refresh(ctx, a.Calendar, now); err != nil {
		a.Logger.Warn().Err(err).Msg("Holiday refresh failed, using configured holidays")
	}
}

func (a *App) scheduledRun(ctx context.Context) error {
	_, err := a.RunOnce(ctx, a.TargetDate(time.Now()))
	return err
}

// Close stops the scheduler if it was started.
func (a *App) Close() error {
	if a.Scheduler == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Scheduler.Stop(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		return err
	}
	return nil
}
