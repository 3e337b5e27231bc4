package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestRunnerFiresJobsUntilCancelled(t *testing.T) {
	job := &countingJob{err: errors.New("keeps going")}
	r := &Runner{Timeout: time.Second}
	r.Add(job, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return job.runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunnerValidatesJobs(t *testing.T) {
	assert.ErrorIs(t, (&Runner{}).Run(context.Background()), ErrNoJobs)

	r := &Runner{}
	r.Add(&countingJob{}, 0)
	assert.Error(t, r.Run(context.Background()))
}
