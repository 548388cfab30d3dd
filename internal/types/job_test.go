//nolint:revive // types is a standard Go package name pattern
package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_Transition(t *testing.T) {
	tests := []struct {
		name    string
		from    JobStatus
		to      JobStatus
		wantErr bool
	}{
		{name: "pending to running", from: JobStatusPending, to: JobStatusRunning},
		{name: "running to completed", from: JobStatusRunning, to: JobStatusCompleted},
		{name: "running to failed", from: JobStatusRunning, to: JobStatusFailed},
		{name: "pending to failed", from: JobStatusPending, to: JobStatusFailed, wantErr: true},
		{name: "pending to completed", from: JobStatusPending, to: JobStatusCompleted, wantErr: true},
		{name: "completed to completed", from: JobStatusCompleted, to: JobStatusCompleted, wantErr: true},
		{name: "running to running", from: JobStatusRunning, to: JobStatusRunning, wantErr: true},
		{name: "completed is final", from: JobStatusCompleted, to: JobStatusFailed, wantErr: true},
		{name: "failed is final", from: JobStatusFailed, to: JobStatusRunning, wantErr: true},
		{name: "back to pending", from: JobStatusRunning, to: JobStatusPending, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewJob("job-1", "product-1")
			job.Status = tt.from

			err := job.Transition(tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, job.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, job.Status)
		})
	}
}

func TestJob_RunningStage(t *testing.T) {
	job := NewJob("job-1", "product-1")
	job.Stages = []StageRecord{
		{Name: "a", Status: StageStatusCompleted},
		{Name: "b", Status: StageStatusRunning},
	}

	assert.Nil(t, job.RunningStage("a"))
	require.NotNil(t, job.RunningStage("b"))

	job.RunningStage("b").Status = StageStatusFailed
	assert.Equal(t, StageStatusFailed, job.Stages[1].Status)
}

func TestJob_Clone(t *testing.T) {
	now := time.Now()
	job := NewJob("job-1", "product-1")
	job.FinishedAt = &now
	job.Stages = append(job.Stages, StageRecord{Name: "a", Status: StageStatusRunning})
	job.Result = &FinalResult{Quality: &QualityResult{OverallScore: 0.9}}

	c := job.Clone()
	c.Stages[0].Status = StageStatusCompleted
	c.Stages = append(c.Stages, StageRecord{Name: "b"})
	*c.FinishedAt = now.Add(time.Hour)
	c.Result.Quality = nil

	assert.Equal(t, StageStatusRunning, job.Stages[0].Status)
	assert.Len(t, job.Stages, 1)
	assert.Equal(t, now, *job.FinishedAt)
	assert.NotNil(t, job.Result.Quality)
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusRunning.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
}
