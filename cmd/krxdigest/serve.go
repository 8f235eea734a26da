package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ternarybob/krxdigest/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the digest on the configured schedule",
	Long:  `Starts the cron scheduler and triggers a digest run at scheduler.schedule in the configured time zone until interrupted.`,
	RunE:  runServe,
}

var serveRunNow bool

func init() {
	serveCmd.Flags().BoolVar(&serveRunNow, "run-now", false, "Trigger one run immediately after starting")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(false); err != nil {
		return err
	}
	if config.Scheduler.Schedule == "" {
		return fmt.Errorf("scheduler.schedule is empty")
	}

	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	if err := application.Scheduler.Start(config.Scheduler.Schedule); err != nil {
		return err
	}

	if serveRunNow {
		go application.Scheduler.Trigger()
	}

	logger.Info().
		Str("schedule", config.Scheduler.Schedule).
		Str("timezone", config.Timezone).
		Msg("Scheduler ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, shutting down")
	return nil
}
