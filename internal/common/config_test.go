package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig_Valid(t *testing.T) {
	config := NewDefaultConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, 100, config.Report.UniverseSize)
	assert.Equal(t, 6, config.Report.ChartsPerPage())
	assert.Equal(t, "classify", config.Report.GateMode)

	suffix, benchmark := config.PriceSymbols()
	assert.Equal(t, ".KS", suffix)
	assert.Equal(t, "^KS11", benchmark)
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	local := filepath.Join(dir, "local.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
[report]
universe_size = 50
gate_mode = "down_only"

[prices]
provider = "eodhd"
`), 0644))
	require.NoError(t, os.WriteFile(local, []byte(`
[report]
universe_size = 20
`), 0644))

	config, err := LoadFromFiles(base, local)
	require.NoError(t, err)

	assert.Equal(t, 20, config.Report.UniverseSize)
	assert.Equal(t, "down_only", config.Report.GateMode)

	suffix, benchmark := config.PriceSymbols()
	assert.Equal(t, ".KO", suffix)
	assert.Equal(t, "KS11.INDX", benchmark)
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("KRX_API_KEY", "krx-secret")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("KRXDIGEST_SLACK_CHANNEL", "#market")
	t.Setenv("KRXDIGEST_GATE_MODE", "DOWN_ONLY")
	t.Setenv("KRXDIGEST_LOG_OUTPUT", "stdout, file")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "krx-secret", config.KRX.APIKey)
	assert.Equal(t, "xoxb-test", config.Slack.Token)
	assert.Equal(t, "#market", config.Slack.Channel)
	assert.Equal(t, "down_only", config.Report.GateMode)
	assert.Equal(t, []string{"stdout", "file"}, config.Logging.Output)
	assert.NoError(t, config.RequireSecrets())
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown gate mode", func(c *Config) { c.Report.GateMode = "up_only" }},
		{"unknown target", func(c *Config) { c.Report.Target = "tomorrow" }},
		{"zero universe", func(c *Config) { c.Report.UniverseSize = 0 }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"bad code pattern", func(c *Config) { c.KRX.CodePattern = "([" }},
		{"bad schedule", func(c *Config) { c.Scheduler.Schedule = "every day" }},
		{"bad holiday", func(c *Config) { c.Report.Holidays = []string{"2024/01/01"} }},
		{"unknown price provider", func(c *Config) { c.Prices.Provider = "bloomberg" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestRequireSecrets(t *testing.T) {
	config := NewDefaultConfig()
	err := config.RequireSecrets()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KRX_API_KEY")
	assert.Contains(t, err.Error(), "SLACK_BOT_TOKEN")

	config.KRX.APIKey = "k"
	config.Slack.DryRun = true
	assert.NoError(t, config.RequireSecrets())

	config.News.Provider = "eodhd"
	assert.ErrorContains(t, config.RequireSecrets(), "EODHD_API_KEY")

	config.News.Provider = "google"
	config.Report.RefreshHolidays = true
	assert.ErrorContains(t, config.RequireSecrets(), "EODHD_API_KEY")
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, ParseDuration("30s", time.Second))
	assert.Equal(t, 5*time.Second, ParseDuration("", 5*time.Second))
	assert.Equal(t, 5*time.Second, ParseDuration("-1s", 5*time.Second))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.env")
	require.NoError(t, os.WriteFile(good, []byte("KRXDIGEST_TEST_DOTENV=from-file\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("KRXDIGEST_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), good))
	assert.Equal(t, "from-file", os.Getenv("KRXDIGEST_TEST_DOTENV"))

	bad := filepath.Join(dir, "bad.env")
	require.NoError(t, os.WriteFile(bad, []byte("KRX_API_KEY=\"unterminated\n"), 0600))
	err := LoadDotEnv(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.env")
}
