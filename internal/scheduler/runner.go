package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"skysense/internal/types"
)

// DefaultTaskTimeout bounds a single task execution.
const DefaultTaskTimeout = 30 * time.Second

// Refresher repeats the active weather search.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// CachePurger drops expired cached responses.
type CachePurger interface {
	PurgeExpired() int
}

// Runner dispatches tasks to the services that implement them. Either
// dependency may be nil, in which case its task is skipped.
type Runner struct {
	refresher Refresher
	purger    CachePurger
	timeout   time.Duration
	clock     types.Clock
	logger    *slog.Logger
}

// NewRunner creates a Runner. A non-positive timeout uses DefaultTaskTimeout.
func NewRunner(refresher Refresher, purger CachePurger, timeout time.Duration, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		refresher: refresher,
		purger:    purger,
		timeout:   timeout,
		clock:     types.RealClock{},
		logger:    logger,
	}
}

// Run executes task under the runner's timeout. Task failures are reported in
// the result and as the returned error; unknown tasks return an error only.
func (r *Runner) Run(ctx context.Context, task TaskType) (TaskResult, error) {
	if !task.Valid() {
		return TaskResult{Task: task}, fmt.Errorf("unknown task %q", task)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res := TaskResult{Task: task, StartedAt: r.clock.Now()}
	var err error
	switch task {
	case TaskRefreshWeather:
		err = r.refresh(ctx)
	case TaskPurgeCache:
		res.Purged = r.purge(ctx)
	}
	res.Duration = r.clock.Now().Sub(res.StartedAt)
	res.Successful = err == nil
	if err != nil {
		res.Error = err.Error()
		r.logger.WarnContext(ctx, "scheduled task failed",
			"task", task,
			"error", err,
		)
		return res, fmt.Errorf("%s: %w", task, err)
	}

	r.logger.DebugContext(ctx, "scheduled task complete",
		"task", task,
		"duration", res.Duration,
	)
	return res, nil
}

func (r *Runner) refresh(ctx context.Context) error {
	if r.refresher == nil {
		return nil
	}
	return r.refresher.Refresh(ctx)
}

func (r *Runner) purge(ctx context.Context) int {
	if r.purger == nil {
		return 0
	}
	n := r.purger.PurgeExpired()
	if n > 0 {
		r.logger.InfoContext(ctx, "purged expired cache entries", "count", n)
	}
	return n
}
