package main

import (
	"fmt"
	"os"

	_ "time/tzdata"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/krxdigest/internal/common"
)

var (
	// Global flags
	configFiles []string
	logLevel    string

	// Global state, set by loadConfig
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:           "krxdigest",
	Short:         "Daily market-cap leaders digest for the Korea Exchange",
	Long:          `Selects the largest KOSPI listings, compares each with the index on the target day and posts a summary, a news digest and a chart report to Slack.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides config")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	defer common.RecoverWithCrashFile()

	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error().Err(err).Msg("Command failed")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// loadConfig runs the startup sequence shared by run and serve:
// .env -> config files -> env overrides -> CLI overrides -> validate -> logger -> banner.
func loadConfig(dryRun bool) error {
	if err := common.LoadDotEnv(); err != nil {
		return err
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("krxdigest.toml"); err == nil {
			configFiles = append(configFiles, "krxdigest.toml")
		} else if _, err := os.Stat("deployments/local/krxdigest.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/krxdigest.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return err
	}

	// Command-line overrides (highest priority)
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
	if dryRun {
		config.Slack.DryRun = true
	}

	if err := config.Validate(); err != nil {
		return err
	}

	logger = common.InitLogger(config)
	common.InstallCrashHandler(config)
	common.PrintBanner(config, logger)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Str("output_dir", config.Report.OutputDir).
		Msg("Resolved configuration (sanitized)")

	return config.RequireSecrets()
}
