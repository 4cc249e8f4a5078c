package jobs

import (
	"context"
	"time"

	attendanceService "anoa.com/clubportal/internal/modules/attendance/service"
	challengeService "anoa.com/clubportal/internal/modules/challenge/service"
	liveService "anoa.com/clubportal/internal/modules/live/service"
	"anoa.com/clubportal/pkg/logger"
)

// resyncJob reloads every topic so a lost pub/sub message heals.
type resyncJob struct {
	sync     liveService.Synchronizer
	schedule string
}

func NewResyncJob(sync liveService.Synchronizer, schedule string) Job {
	return &resyncJob{sync: sync, schedule: schedule}
}

func (j *resyncJob) Name() string     { return "resync" }
func (j *resyncJob) Schedule() string { return j.schedule }

func (j *resyncJob) Execute(ctx context.Context) error {
	return j.sync.Resync(ctx)
}

type pruneAttendanceJob struct {
	attendance attendanceService.AttendanceService
	retention  time.Duration
	schedule   string
}

// NewPruneAttendanceJob deletes pending attendance days older than
// retention. A zero retention disables it.
func NewPruneAttendanceJob(attendance attendanceService.AttendanceService, retention time.Duration, schedule string) Job {
	return &pruneAttendanceJob{attendance: attendance, retention: retention, schedule: schedule}
}

func (j *pruneAttendanceJob) Name() string { return "prune-attendance" }

func (j *pruneAttendanceJob) Schedule() string {
	if j.retention <= 0 {
		return ""
	}
	return j.schedule
}

func (j *pruneAttendanceJob) Execute(ctx context.Context) error {
	pruned, err := j.attendance.PruneStale(ctx, j.retention)
	if err != nil {
		return err
	}
	if pruned > 0 {
		logger.Info("jobs: pruned %d stale attendance days", pruned)
	}
	return nil
}

type evictWorkspacesJob struct {
	challenges challengeService.ChallengeService
	idle       time.Duration
}

func NewEvictWorkspacesJob(challenges challengeService.ChallengeService, idle time.Duration) Job {
	return &evictWorkspacesJob{challenges: challenges, idle: idle}
}

func (j *evictWorkspacesJob) Name() string     { return "evict-workspaces" }
func (j *evictWorkspacesJob) Schedule() string { return "@every 10m" }

func (j *evictWorkspacesJob) Execute(context.Context) error {
	if n := j.challenges.EvictIdle(j.idle); n > 0 {
		logger.Info("jobs: evicted %d idle workspaces", n)
	}
	return nil
}
