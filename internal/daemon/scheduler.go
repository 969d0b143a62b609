package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/Tiliavir/screen-time-tracker/internal/logfields"
)

// Scheduler wraps a gocron scheduler for the daemon's periodic jobs.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a scheduler. Options are passed to gocron, e.g.
// gocron.WithClock for tests.
func NewScheduler(opts ...gocron.SchedulerOption) (*Scheduler, error) {
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down and waits for running jobs.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleEvery runs fn every interval. A run that would overlap the
// previous one is skipped, so a slow probe never stacks up.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, fn func()) (string, error) {
	if interval <= 0 {
		return "", errors.New("interval must be positive")
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create %s job: %w", name, err)
	}
	slog.Debug("Scheduled job", logfields.Job(name), slog.Duration("interval", interval))
	return job.ID().String(), nil
}
