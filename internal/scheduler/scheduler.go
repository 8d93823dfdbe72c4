// Package scheduler triggers the recurring day and week window resets.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/go-co-op/gocron/v2"
)

// Resetter is the part of the score ledger the scheduler drives.
type Resetter interface {
	ResetWindow(ctx context.Context, window domain.Window) (domain.ResetResult, error)
}

// Sweeper is implemented by in-memory guards that need periodic pruning.
type Sweeper interface {
	Sweep() int
}

// Config selects when each window is reset.
type Config struct {
	DailyCron  string
	WeeklyCron string
	Location   *time.Location
	// Sweeper, if set, is pruned every SweepInterval.
	Sweeper       Sweeper
	SweepInterval time.Duration
}

// Scheduler runs window resets on cron schedules.
type Scheduler struct {
	cron     gocron.Scheduler
	resetter Resetter
	logger   *slog.Logger
	ctx      context.Context
}

// New builds a scheduler with the reset jobs registered but not started.
func New(resetter Resetter, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	cron, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	s := &Scheduler{
		cron:     cron,
		resetter: resetter,
		logger:   logger,
		ctx:      context.Background(),
	}

	jobs := []struct {
		window domain.Window
		expr   string
	}{
		{domain.WindowDay, cfg.DailyCron},
		{domain.WindowWeek, cfg.WeeklyCron},
	}
	for _, j := range jobs {
		if j.expr == "" {
			continue
		}
		window := j.window
		_, err := cron.NewJob(
			gocron.CronJob(j.expr, false),
			gocron.NewTask(func() { s.run(window) }),
			gocron.WithName("reset-"+string(window)),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = cron.Shutdown()
			return nil, fmt.Errorf("schedule %s reset %q: %w", window, j.expr, err)
		}
	}

	if cfg.Sweeper != nil && cfg.SweepInterval > 0 {
		sweeper := cfg.Sweeper
		_, err := cron.NewJob(
			gocron.DurationJob(cfg.SweepInterval),
			gocron.NewTask(func() {
				if n := sweeper.Sweep(); n > 0 {
					logger.Debug("guard sweep", "removed", n)
				}
			}),
			gocron.WithName("guard-sweep"),
		)
		if err != nil {
			_ = cron.Shutdown()
			return nil, fmt.Errorf("schedule guard sweep: %w", err)
		}
	}

	return s, nil
}

// Start begins firing jobs. Runs use ctx, so cancelling it stops in-flight
// resets between chunks.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("reset scheduler started", "jobs", len(s.cron.Jobs()))
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	s.logger.Info("reset scheduler stopped")
	return nil
}

// RunNow performs one reset of window synchronously.
func (s *Scheduler) RunNow(ctx context.Context, window domain.Window) (domain.ResetResult, error) {
	return s.resetter.ResetWindow(ctx, window)
}

func (s *Scheduler) run(window domain.Window) {
	start := time.Now()
	result, err := s.resetter.ResetWindow(s.ctx, window)
	if err != nil {
		s.logger.Error("scheduled window reset failed",
			"window", window,
			"succeeded", result.Succeeded,
			"total", result.Total,
			"error", err,
		)
		return
	}
	s.logger.Info("scheduled window reset complete",
		"window", window,
		"total", result.Total,
		"chunks", result.Chunks,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
