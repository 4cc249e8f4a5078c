// Package jobs runs the periodic maintenance tasks of the portal.
package jobs

import (
	"context"
	"fmt"
	"time"

	"anoa.com/clubportal/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Job is one scheduled task.
type Job interface {
	Name() string
	// Schedule is a cron expression ("@every 1m", "0 3 * * *"). Empty means the
	// job only runs on demand.
	Schedule() string
	Execute(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	timeout time.Duration
}

func NewScheduler(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout: timeout,
	}
}

// Register schedules job. A bad schedule is an error; nothing is scheduled.
func (s *Scheduler) Register(job Job) error {
	s.jobs = append(s.jobs, job)

	schedule := job.Schedule()
	if schedule == "" {
		logger.Info("jobs: [%s] registered on demand", job.Name())
		return nil
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.Run(job) }); err != nil {
		return fmt.Errorf("schedule %s with %q: %w", job.Name(), schedule, err)
	}
	logger.Info("jobs: [%s] scheduled with cron %s", job.Name(), schedule)
	return nil
}

// Run executes job once with the scheduler's timeout.
func (s *Scheduler) Run(job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := job.Execute(ctx); err != nil {
		logger.Error("jobs: [%s] failed: %v", job.Name(), err)
		return err
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("jobs: scheduler started with %d jobs", len(s.jobs))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("jobs: scheduler stopped")
}
