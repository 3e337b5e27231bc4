// Package schedule runs periodic application jobs on a gocron scheduler.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	appschedule "campusconnect/internal/app/schedule"
)

var ErrNoJobs = errors.New("schedule: no jobs registered")

type entry struct {
	job   appschedule.Job
	every time.Duration
}

// Runner fires each job on its interval, starting immediately. A job never
// overlaps with itself.
type Runner struct {
	Logger  *slog.Logger
	Timeout time.Duration

	entries []entry
}

func (r *Runner) Add(job appschedule.Job, every time.Duration) {
	r.entries = append(r.entries, entry{job: job, every: every})
}

// Run blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.entries) == 0 {
		return ErrNoJobs
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	for _, e := range r.entries {
		if e.every <= 0 {
			return fmt.Errorf("schedule: %s: interval must be positive", e.job.Name())
		}
		job := e.job
		if _, err := s.Every(e.every).Name(job.Name()).Do(func() { r.fire(ctx, job) }); err != nil {
			return fmt.Errorf("schedule: %s: %w", job.Name(), err)
		}
		r.logger().Info("job scheduled", "job", job.Name(), "every", e.every.String())
	}
	s.StartAsync()
	<-ctx.Done()
	s.Stop()
	return nil
}

func (r *Runner) fire(ctx context.Context, job appschedule.Job) {
	if ctx.Err() != nil {
		return
	}
	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	started := time.Now()
	if err := job.Run(runCtx); err != nil {
		r.logger().ErrorContext(ctx, "job failed", "job", job.Name(), "error", err)
		return
	}
	r.logger().DebugContext(ctx, "job finished", "job", job.Name(), "duration_ms", time.Since(started).Milliseconds())
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
