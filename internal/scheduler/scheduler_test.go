package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantdash/pkg/logger"
)

type testJob struct {
	name     string
	schedule string
	err      error
	runs     int32
}

func (j *testJob) Name() string     { return j.name }
func (j *testJob) Schedule() string { return j.schedule }
func (j *testJob) Run(context.Context) error {
	atomic.AddInt32(&j.runs, 1)
	return j.err
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(logger.NewNop(), time.UTC)

	require.NoError(t, s.AddJob(&testJob{name: "pipeline", schedule: "0 18 * * 1-5"}))
	assert.Error(t, s.AddJob(&testJob{name: "pipeline", schedule: "0 18 * * 1-5"}), "duplicate name")
	assert.Error(t, s.AddJob(&testJob{name: "bad", schedule: "not a cron"}))
	assert.Error(t, s.AddJob(&testJob{name: "seconds", schedule: "0 0 18 * * *"}), "6-field specs are rejected")
}

func TestScheduler_List(t *testing.T) {
	s := New(logger.NewNop(), time.UTC)
	require.NoError(t, s.AddJob(&testJob{name: "pipeline", schedule: "0 18 * * 1-5"}))
	require.NoError(t, s.AddJob(&testJob{name: "cleanup", schedule: "30 3 * * *"}))

	// Friday 2024-03-01 12:00 UTC
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	jobs := s.List(now)
	require.Len(t, jobs, 2)

	assert.Equal(t, "cleanup", jobs[0].Name)
	assert.Equal(t, time.Date(2024, 3, 2, 3, 30, 0, 0, time.UTC), jobs[0].Next)

	assert.Equal(t, "pipeline", jobs[1].Name)
	assert.Equal(t, time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC), jobs[1].Next)
}

func TestScheduler_RunJobRecordsHistory(t *testing.T) {
	s := New(logger.NewNop(), time.UTC)
	ok := &testJob{name: "ok", schedule: "@daily"}
	bad := &testJob{name: "bad", schedule: "@daily", err: errors.New("boom")}
	require.NoError(t, s.AddJob(ok))
	require.NoError(t, s.AddJob(bad))

	require.NoError(t, s.RunJob("ok"))
	err := s.RunJob("bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Error(t, s.RunJob("missing"))

	history, err := s.GetJobHistory("bad")
	require.NoError(t, err)
	last, found := history.Last()
	require.True(t, found)
	assert.False(t, last.Success)
	assert.Equal(t, "boom", last.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&bad.runs), "failed jobs are not retried in place")

	history, err = s.GetJobHistory("ok")
	require.NoError(t, err)
	assert.Equal(t, 1.0, history.SuccessRate())
}

func TestScheduler_RemoveJob(t *testing.T) {
	s := New(logger.NewNop(), time.UTC)
	require.NoError(t, s.AddJob(&testJob{name: "pipeline", schedule: "@daily"}))
	require.NoError(t, s.RemoveJob("pipeline"))
	assert.Error(t, s.RemoveJob("pipeline"))
	assert.Empty(t, s.List(time.Now()))
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(logger.NewNop(), time.UTC)
	require.NoError(t, s.AddJob(&testJob{name: "pipeline", schedule: "@daily"}))
	s.Start()
	s.Stop()
}

func TestJobHistory_Cap(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+5; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.InDelta(t, 0.5, h.SuccessRate(), 0.01)
}
