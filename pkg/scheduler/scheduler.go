package scheduler

import (
	"github.com/robfig/cron/v3"

	"github.com/slotwise/reservation-engine/pkg/logger"
)

// Scheduler runs the background jobs that keep webhook health and
// timeslot housekeeping moving without a caller waiting on them.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
}

// New creates a new scheduler.
func New(logger *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// AddJob registers a cron spec ("@every 1m", "0 2 * * *", ...) with a task.
func (s *Scheduler) AddJob(spec string, task func()) error {
	_, err := s.cron.AddFunc(spec, task)
	return err
}

// Start starts the scheduler's goroutine loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting background scheduler")
	s.cron.Start()
}

// Stop stops the scheduler and waits for any running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping background scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
}
