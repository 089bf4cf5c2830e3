package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/example/cardsync/internal/logging"
)

// Scheduler triggers Job on a standard five-field cron spec. Ticks that fire
// while a job is still running are skipped, so jobs never overlap.
type Scheduler struct {
	Spec     string
	Location *time.Location
	Job      func(ctx context.Context) error
	Log      *zap.Logger

	// RunOnStart runs the job once before waiting for the first tick.
	RunOnStart bool
}

// Next returns the first activation strictly after now.
func (s *Scheduler) Next(now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(s.Spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("cron spec %q: %w", s.Spec, err)
	}
	return sched.Next(now.In(s.location())), nil
}

// Run blocks until ctx is done. Job errors are logged, not returned: one
// failed run does not stop the schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Job == nil {
		return fmt.Errorf("scheduler: job is nil")
	}
	log := logging.OrNop(s.Log)

	c := cron.New(
		cron.WithLocation(s.location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(s.Spec, func() { s.tick(ctx, log) }); err != nil {
		return fmt.Errorf("cron spec %q: %w", s.Spec, err)
	}

	if s.RunOnStart {
		s.tick(ctx, log)
	}

	c.Start()
	if next, err := s.Next(time.Now()); err == nil {
		log.Info("scheduler started", zap.String("spec", s.Spec), zap.Time("next_run", next))
	}

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) tick(ctx context.Context, log *zap.Logger) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := s.Job(ctx); err != nil {
		log.Error("scheduled run failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return
	}
	log.Info("scheduled run finished", zap.Duration("took", time.Since(start)))
}

func (s *Scheduler) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}
