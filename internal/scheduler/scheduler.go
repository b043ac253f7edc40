package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher re-runs fulfilled operations so results reflect current conditions.
type Refresher interface {
	Refresh() error
}

// Scheduler periodically refreshes a session's fulfilled slots.
type Scheduler struct {
	scheduler *gocron.Scheduler
	target    Refresher
	interval  time.Duration
	log       *slog.Logger
}

// New creates a new Scheduler. A non-positive interval disables it.
func New(target Refresher, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		target:    target,
		interval:  interval,
		log:       logger,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Info("scheduler: refresh disabled")
		return nil
	}

	// First run is one interval from now.
	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Info("scheduler: refresh enabled", "interval", s.interval)
	return nil
}

func (s *Scheduler) run() {
	s.log.Debug("scheduler: running refresh job")
	if err := s.target.Refresh(); err != nil {
		s.log.Warn("scheduler: refresh skipped", "error", err)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}
