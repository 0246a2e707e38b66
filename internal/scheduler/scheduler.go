// Package scheduler runs the cron triggers of the workflow while `ftdocs ci
// watch` is active.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/ftdocs/internal/logfields"
)

// Task is the work run on every tick. ctx is canceled when the scheduler stops.
type Task func(ctx context.Context)

// Scheduler wraps a gocron scheduler.
type Scheduler struct {
	scheduler gocron.Scheduler

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler using the UTC clock, matching workflow cron semantics.
func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{scheduler: s, ctx: ctx, cancel: cancel}, nil
}

// ScheduleCron registers task for a five field cron expression. Overlapping
// ticks are skipped while the previous run is still active.
func (s *Scheduler) ScheduleCron(name, expr string, task Task) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(func() {
			slog.Info("Running scheduled trigger", logfields.Schedule(expr), slog.String("job", name))
			task(s.context())
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return job.ID().String(), nil
}

// NextRuns returns the next run time of every job keyed by job name.
func (s *Scheduler) NextRuns() map[string]time.Time {
	out := map[string]time.Time{}
	for _, j := range s.scheduler.Jobs() {
		if next, err := j.NextRun(); err == nil {
			out[j.Name()] = next
		}
	}
	return out
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler", slog.Int("jobs", len(s.scheduler.Jobs())))
	s.scheduler.Start()
}

// Stop cancels running tasks and waits for the scheduler to shut down.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	return s.scheduler.Shutdown()
}
