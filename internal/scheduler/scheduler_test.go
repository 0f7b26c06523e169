package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs int
	err  error
}

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

func TestAddJobRejectsBadExpression(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}

	err := s.AddJob("not a cron expression", job)
	require.Error(t, err)
	assert.Zero(t, job.runs)
}

func TestAddJobAcceptsDescriptors(t *testing.T) {
	s := New(zerolog.Nop())

	assert.NoError(t, s.AddJob("@every 1m", &countingJob{}))
	assert.NoError(t, s.AddJob("0 */5 * * * *", &countingJob{}))
}

func TestRunNowExecutesImmediately(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, job.runs)
}

func TestRunNowPropagatesJobError(t *testing.T) {
	s := New(zerolog.Nop())
	boom := errors.New("tick failed")
	job := &countingJob{err: boom}

	assert.ErrorIs(t, s.RunNow(job), boom)
	assert.Equal(t, 1, job.runs)
}
