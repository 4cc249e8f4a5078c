package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	schedule string
	runs     chan struct{}
	err      error
}

func (j *countingJob) Name() string     { return "counting" }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Execute(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	j.runs <- struct{}{}
	return j.err
}

func TestRegisterRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(time.Second)
	require.Error(t, s.Register(&countingJob{schedule: "every now and then"}))
	require.NoError(t, s.Register(&countingJob{schedule: ""}))
}

func TestRunReturnsJobError(t *testing.T) {
	s := NewScheduler(time.Second)
	job := &countingJob{runs: make(chan struct{}, 1), err: errors.New("boom")}
	require.EqualError(t, s.Run(job), "boom")
	require.Len(t, job.runs, 1)
}

func TestScheduledJobRuns(t *testing.T) {
	s := NewScheduler(time.Second)
	job := &countingJob{schedule: "@every 1s", runs: make(chan struct{}, 4)}
	require.NoError(t, s.Register(job))

	s.Start()
	defer s.Stop()

	select {
	case <-job.runs:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestPruneDisabledWithoutRetention(t *testing.T) {
	require.Empty(t, NewPruneAttendanceJob(nil, 0, "@daily").Schedule())
	require.Equal(t, "@daily", NewPruneAttendanceJob(nil, time.Hour, "@daily").Schedule())
}
