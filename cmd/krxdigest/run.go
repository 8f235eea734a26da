package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/krxdigest/internal/app"
	"github.com/ternarybob/krxdigest/internal/common"
	"github.com/ternarybob/krxdigest/internal/models"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the digest once",
	Long:  `Runs one digest for the target date and exits. A day without market data sends a single notice and exits successfully.`,
	RunE:  runOnce,
}

var (
	runDate   string
	runDryRun bool
)

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "Target date YYYY-MM-DD (default: resolved from report.target)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Log messages and uploads instead of sending them")
}

func runOnce(cmd *cobra.Command, args []string) error {
	if err := loadConfig(runDryRun); err != nil {
		return err
	}

	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	target := application.TargetDate(time.Now())
	if runDate != "" {
		if target, err = common.ParseDate(runDate); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := application.RunOnce(ctx, target)
	if err != nil {
		return err
	}

	if result.Status == models.RunStatusNoData {
		logger.Info().Str("target", target.Format(models.DateLayout)).Msg("No market data for target date")
	}
	return nil
}
