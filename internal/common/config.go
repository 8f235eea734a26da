package common

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Timezone    string          `toml:"timezone" validate:"required"`
	Report      ReportConfig    `toml:"report"`
	KRX         KRXConfig       `toml:"krx"`
	Prices      PricesConfig    `toml:"prices"`
	Yahoo       YahooConfig     `toml:"yahoo"`
	EODHD       EODHDConfig     `toml:"eodhd"`
	News        NewsConfig      `toml:"news"`
	Slack       SlackConfig     `toml:"slack"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Retry       RetryConfig     `toml:"retry"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ReportConfig controls the pipeline itself.
type ReportConfig struct {
	UniverseSize         int      `toml:"universe_size" validate:"min=1,max=1000"`
	BenchmarkName        string   `toml:"benchmark_name" validate:"required"`      // Column and label for the index, e.g. "KOSPI"
	BenchmarkTitle       string   `toml:"benchmark_title" validate:"required"`     // Headline name in messages, e.g. "코스피 지수"
	Target               string   `toml:"target" validate:"oneof=today yesterday"` // Which day a run evaluates
	GateMode             string   `toml:"gate_mode" validate:"oneof=classify down_only"`
	LookbackDays         int      `toml:"lookback_days" validate:"min=2"`       // Price window before the target date
	ChartWindowDays      int      `toml:"chart_window_days" validate:"min=1"`   // Calendar days shown per chart
	ChartRows            int      `toml:"chart_rows" validate:"min=1,max=6"`    // Grid rows per page
	ChartColumns         int      `toml:"chart_columns" validate:"min=1,max=6"` // Grid columns per page
	SnapshotLookbackDays int      `toml:"snapshot_lookback_days" validate:"min=0,max=14"`
	Holidays             []string `toml:"holidays" validate:"dive,datetime=2006-01-02"` // Exchange holidays skipped by the snapshot walk-back
	RefreshHolidays      bool     `toml:"refresh_holidays"`                             // Merge holidays published via EODHD exchange-details at startup
	RequireFont          bool     `toml:"require_font"`                                 // Fail startup when no Hangul-capable font is configured or found
	NewsPerEquity        int      `toml:"news_per_equity" validate:"min=0,max=20"`
	OutputDir            string   `toml:"output_dir" validate:"required"`
	FontPath             string   `toml:"font_path"` // Optional TTF used for chart titles (needed for Hangul names)
}

// ChartsPerPage returns the grid capacity of one document page.
func (r ReportConfig) ChartsPerPage() int {
	return r.ChartRows * r.ChartColumns
}

// KRXConfig holds the market-cap ranking API configuration.
type KRXConfig struct {
	BaseURL     string `toml:"base_url" validate:"required,url"`
	APIKey      string `toml:"api_key"`
	CodePattern string `toml:"code_pattern" validate:"required"` // Equity code filter, drops ETNs/preferred rows etc.
	Timeout     string `toml:"timeout"`
	RateLimit   int    `toml:"rate_limit" validate:"min=1"`
}

// PricesConfig selects the price source.
type PricesConfig struct {
	Provider string `toml:"provider" validate:"oneof=yahoo eodhd"`
}

// YahooConfig holds Yahoo Finance chart API configuration.
type YahooConfig struct {
	BaseURL         string `toml:"base_url" validate:"required,url"`
	Suffix          string `toml:"suffix"` // Appended to exchange codes, e.g. ".KS"
	BenchmarkSymbol string `toml:"benchmark_symbol" validate:"required"`
	Timeout         string `toml:"timeout"`
	RateLimit       int    `toml:"rate_limit" validate:"min=1"`
}

// EODHDConfig holds EODHD API configuration.
type EODHDConfig struct {
	BaseURL         string `toml:"base_url" validate:"required,url"`
	APIKey          string `toml:"api_key"`
	Suffix          string `toml:"suffix"`
	BenchmarkSymbol string `toml:"benchmark_symbol" validate:"required"`
	ExchangeCode    string `toml:"exchange_code"` // Exchange for holiday refresh, e.g. "KO"
	Timeout         string `toml:"timeout"`
	RateLimit       int    `toml:"rate_limit" validate:"min=1"`
}

// NewsConfig selects and configures the headline source.
type NewsConfig struct {
	Provider  string `toml:"provider" validate:"oneof=google eodhd"`
	BaseURL   string `toml:"base_url" validate:"required,url"` // Google News RSS search endpoint
	Language  string `toml:"language"`                         // hl parameter, e.g. "ko"
	Region    string `toml:"region"`                           // gl parameter, e.g. "KR"
	Timeout   string `toml:"timeout"`
	RateLimit int    `toml:"rate_limit" validate:"min=1"`
}

// SlackConfig holds messaging configuration.
type SlackConfig struct {
	BaseURL         string `toml:"base_url" validate:"required,url"`
	Token           string `toml:"token"`
	Channel         string `toml:"channel"`
	OperatorChannel string `toml:"operator_channel"` // Delivery failures and fatal errors; empty = log only
	Timeout         string `toml:"timeout"`
	DryRun          bool   `toml:"dry_run"` // Log messages instead of sending them
}

// SchedulerConfig controls `serve` mode.
type SchedulerConfig struct {
	Schedule string `toml:"schedule"` // 5-field cron, evaluated in Config.Timezone
}

// RetryConfig bounds retries for transient HTTP failures.
type RetryConfig struct {
	MaxAttempts     int    `toml:"max_attempts" validate:"min=1,max=10"`
	InitialInterval string `toml:"initial_interval"`
	MaxInterval     string `toml:"max_interval"`
}

type LoggingConfig struct {
	Level    string   `toml:"level"`     // "debug", "info", "warn", "error"
	Output   []string `toml:"output"`    // "stdout", "file"
	FilePath string   `toml:"file_path"` // Used when output includes "file"
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Timezone:    "Asia/Seoul",
		Report: ReportConfig{
			UniverseSize:         100,
			BenchmarkName:        "KOSPI",
			BenchmarkTitle:       "코스피 지수",
			Target:               "today",
			GateMode:             "classify",
			LookbackDays:         60,
			ChartWindowDays:      30,
			ChartRows:            2,
			ChartColumns:         3,
			SnapshotLookbackDays: 5,
			NewsPerEquity:        3,
			OutputDir:            "./reports",
			RequireFont:          true,
		},
		KRX: KRXConfig{
			BaseURL:     "https://data-dbg.krx.co.kr/svc/apis",
			CodePattern: `^\d{6}$`,
			Timeout:     "30s",
			RateLimit:   2,
		},
		Prices: PricesConfig{
			Provider: "yahoo",
		},
		Yahoo: YahooConfig{
			BaseURL:         "https://query1.finance.yahoo.com",
			Suffix:          ".KS",
			BenchmarkSymbol: "^KS11",
			Timeout:         "30s",
			RateLimit:       5,
		},
		EODHD: EODHDConfig{
			BaseURL:         "https://eodhd.com/api",
			Suffix:          ".KO",
			BenchmarkSymbol: "KS11.INDX",
			ExchangeCode:    "KO",
			Timeout:         "30s",
			RateLimit:       10,
		},
		News: NewsConfig{
			Provider:  "google",
			BaseURL:   "https://news.google.com/rss/search",
			Language:  "ko",
			Region:    "KR",
			Timeout:   "20s",
			RateLimit: 2,
		},
		Slack: SlackConfig{
			BaseURL: "https://slack.com/api",
			Timeout: "30s",
		},
		Scheduler: SchedulerConfig{
			Schedule: "0 18 * * 1-5", // Weekdays after the close has settled at the price source
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: "500ms",
			MaxInterval:     "5s",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   []string{"stdout"},
			FilePath: "./logs/krxdigest.log",
		},
	}
}

// LoadDotEnv loads .env files into the process environment.
// Existing variables win; missing files are ignored, unreadable or malformed ones are errors.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("KRXDIGEST_ENV"); env != "" {
		config.Environment = env
	}
	if tz := os.Getenv("KRXDIGEST_TIMEZONE"); tz != "" {
		config.Timezone = tz
	}

	// Report
	if size := os.Getenv("KRXDIGEST_UNIVERSE_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil {
			config.Report.UniverseSize = n
		}
	}
	if target := os.Getenv("KRXDIGEST_TARGET"); target != "" {
		config.Report.Target = strings.ToLower(target)
	}
	if mode := os.Getenv("KRXDIGEST_GATE_MODE"); mode != "" {
		config.Report.GateMode = strings.ToLower(mode)
	}
	if dir := os.Getenv("KRXDIGEST_OUTPUT_DIR"); dir != "" {
		config.Report.OutputDir = dir
	}
	if font := os.Getenv("KRXDIGEST_FONT_PATH"); font != "" {
		config.Report.FontPath = font
	}
	if require := os.Getenv("KRXDIGEST_REQUIRE_FONT"); require != "" {
		if b, err := strconv.ParseBool(require); err == nil {
			config.Report.RequireFont = b
		}
	}
	if refresh := os.Getenv("KRXDIGEST_REFRESH_HOLIDAYS"); refresh != "" {
		if b, err := strconv.ParseBool(refresh); err == nil {
			config.Report.RefreshHolidays = b
		}
	}

	// Providers
	if provider := os.Getenv("KRXDIGEST_PRICE_PROVIDER"); provider != "" {
		config.Prices.Provider = strings.ToLower(provider)
	}
	if provider := os.Getenv("KRXDIGEST_NEWS_PROVIDER"); provider != "" {
		config.News.Provider = strings.ToLower(provider)
	}

	// Secrets also accept their conventional unprefixed names
	if key := firstEnv("KRXDIGEST_KRX_API_KEY", "KRX_API_KEY"); key != "" {
		config.KRX.APIKey = key
	}
	if key := firstEnv("KRXDIGEST_EODHD_API_KEY", "EODHD_API_KEY"); key != "" {
		config.EODHD.APIKey = key
	}
	if token := firstEnv("KRXDIGEST_SLACK_TOKEN", "SLACK_BOT_TOKEN"); token != "" {
		config.Slack.Token = token
	}
	if channel := os.Getenv("KRXDIGEST_SLACK_CHANNEL"); channel != "" {
		config.Slack.Channel = channel
	}
	if channel := os.Getenv("KRXDIGEST_SLACK_OPERATOR_CHANNEL"); channel != "" {
		config.Slack.OperatorChannel = channel
	}
	if dry := os.Getenv("KRXDIGEST_DRY_RUN"); dry != "" {
		if b, err := strconv.ParseBool(dry); err == nil {
			config.Slack.DryRun = b
		}
	}

	if schedule := os.Getenv("KRXDIGEST_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}

	// Logging
	if level := os.Getenv("KRXDIGEST_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("KRXDIGEST_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks structural constraints on the configuration.
// Secrets are checked separately by RequireSecrets since dry runs do not need all of them.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if _, err := regexp.Compile(c.KRX.CodePattern); err != nil {
		return fmt.Errorf("invalid krx.code_pattern: %w", err)
	}
	if c.Scheduler.Schedule != "" {
		if err := ValidateSchedule(c.Scheduler.Schedule); err != nil {
			return err
		}
	}
	return nil
}

// RequireSecrets returns an error naming every credential a run needs but lacks.
func (c *Config) RequireSecrets() error {
	var missing []string
	if c.KRX.APIKey == "" {
		missing = append(missing, "KRX_API_KEY")
	}
	if (c.Prices.Provider == "eodhd" || c.News.Provider == "eodhd" || c.Report.RefreshHolidays) && c.EODHD.APIKey == "" {
		missing = append(missing, "EODHD_API_KEY")
	}
	if !c.Slack.DryRun {
		if c.Slack.Token == "" {
			missing = append(missing, "SLACK_BOT_TOKEN")
		}
		if c.Slack.Channel == "" {
			missing = append(missing, "KRXDIGEST_SLACK_CHANNEL")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateSchedule validates a 5-field cron expression.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}
	return nil
}

// Location returns the configured exchange time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PriceSymbols returns the code suffix and benchmark symbol for the active price provider.
func (c *Config) PriceSymbols() (suffix, benchmark string) {
	if c.Prices.Provider == "eodhd" {
		return c.EODHD.Suffix, c.EODHD.BenchmarkSymbol
	}
	return c.Yahoo.Suffix, c.Yahoo.BenchmarkSymbol
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ParseDuration parses a duration string, returning fallback when empty or invalid.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
