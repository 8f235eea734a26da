package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/krxdigest/internal/common"
)

// RunFunc executes one scheduled digest run.
type RunFunc func(ctx context.Context) error

// Status is a snapshot of the scheduler state.
type Status struct {
	Running    bool
	Processing bool
	LastRun    *time.Time
	LastError  string
	NextRun    *time.Time
}

// Service triggers digest runs on a cron schedule. At most one run executes
// at a time; a trigger that fires while a run is in progress is skipped.
type Service struct {
	cron   *cron.Cron
	run    RunFunc
	logger arbor.ILogger

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex // Protects the fields below
	isProcessing bool
	running      bool
	entryID      cron.EntryID
	lastRun      *time.Time
	lastError    string
}

// NewService creates a scheduler evaluating schedules in loc.
func NewService(run RunFunc, loc *time.Location, logger arbor.ILogger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cron:   cron.New(cron.WithLocation(loc)),
		run:    run,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers the 5-field cron expression and starts the scheduler.
func (s *Service) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if err := common.ValidateSchedule(schedule); err != nil {
		return err
	}

	id, err := s.cron.AddFunc(schedule, func() { s.Trigger() })
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entryID = id

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Str("next_run", s.cron.Entry(id).Next.Format(time.RFC3339)).
		Msg("Scheduler started")
	return nil
}

// Stop halts the scheduler, cancels an in-flight run and waits for it to return
// or for ctx to expire.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.cancel()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.logger.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Scheduler stop timed out waiting for the active run")
		return ctx.Err()
	}
}

// Trigger executes a run now. It returns false without running when another
// run is still in progress. Panics are recovered and recorded as errors.
func (s *Service) Trigger() bool {
	s.mu.Lock()
	if s.isProcessing {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous run still in progress, skipping this trigger")
		return false
	}
	s.isProcessing = true
	s.mu.Unlock()

	started := time.Now()
	s.logger.Info().Msg("🚀 Scheduled run started")

	err := common.SafeRun(s.logger, "digest run", func() error {
		return s.run(s.ctx)
	})

	finished := time.Now()
	s.mu.Lock()
	s.isProcessing = false
	s.lastRun = &finished
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().
			Err(err).
			Dur("duration", finished.Sub(started)).
			Msg("❌ Scheduled run failed")
	} else {
		s.logger.Info().
			Dur("duration", finished.Sub(started)).
			Msg("✅ Scheduled run completed")
	}
	return true
}

// IsRunning returns true if the cron loop is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the current scheduler state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:    s.running,
		Processing: s.isProcessing,
		LastRun:    s.lastRun,
		LastError:  s.lastError,
	}
	if s.running {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			st.NextRun = &next
		}
	}
	return st
}
