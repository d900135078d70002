package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Intervals configures how often each task runs. A zero interval leaves the
// task unscheduled.
type Intervals struct {
	Refresh    time.Duration
	CachePurge time.Duration
}

// Scheduler runs the Runner's tasks periodically on a gocron scheduler.
type Scheduler struct {
	cron      *gocron.Scheduler
	runner    *Runner
	intervals Intervals
	logger    *slog.Logger
	jobs      int
}

// New creates a Scheduler. Nothing runs until Start.
func New(runner *Runner, intervals Intervals, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:      gocron.NewScheduler(time.UTC),
		runner:    runner,
		intervals: intervals,
		logger:    logger,
	}
}

// Start registers the configured tasks and starts the scheduler. The first
// run of each task happens one interval after Start. A task never overlaps
// with its own previous run.
func (s *Scheduler) Start() error {
	for _, job := range []struct {
		task     TaskType
		interval time.Duration
	}{
		{TaskRefreshWeather, s.intervals.Refresh},
		{TaskPurgeCache, s.intervals.CachePurge},
	} {
		if job.interval <= 0 {
			s.logger.Info("scheduler: task disabled", "task", job.task)
			continue
		}
		task := job.task
		_, err := s.cron.Every(job.interval).SingletonMode().WaitForSchedule().Do(func() {
			_, _ = s.runner.Run(context.Background(), task)
		})
		if err != nil {
			return fmt.Errorf("scheduling %s: %w", task, err)
		}
		s.jobs++
		s.logger.Info("scheduler: task scheduled", "task", task, "interval", job.interval)
	}

	if s.jobs == 0 {
		return nil
	}
	s.cron.StartAsync()
	return nil
}

// Jobs returns the number of scheduled tasks.
func (s *Scheduler) Jobs() int {
	return s.jobs
}

// Stop stops the scheduler and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil && s.cron.IsRunning() {
		s.cron.Stop()
	}
}
