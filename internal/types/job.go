package types

import (
	"errors"
	"fmt"
	"time"
)

// JobStatus is the status of an analysis job
type JobStatus string

// Job status constants
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// StageStatus is the status of a single stage record
type StageStatus string

// Stage status constants
const (
	StageStatusRunning   StageStatus = "running"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
)

// ErrInvalidTransition is returned for job status changes outside pending -> running -> terminal.
var ErrInvalidTransition = errors.New("invalid job status transition")

// StageRecord tracks one stage of a pipeline run.
type StageRecord struct {
	Name        string      `json:"name"`
	Status      StageStatus `json:"status"`
	DurationMs  int64       `json:"duration_ms"`
	Output      any         `json:"output,omitempty"`
	Error       string      `json:"error,omitempty"`
	Provider    string      `json:"provider,omitempty"`
	Substituted bool        `json:"substituted,omitempty"`
}

// Job is one tracked asynchronous pipeline run.
type Job struct {
	ID         string        `json:"job_id"`
	ProductID  string        `json:"product_id"`
	Status     JobStatus     `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Provider   string        `json:"provider,omitempty"`
	Error      string        `json:"error,omitempty"`
	Stages     []StageRecord `json:"stages"`
	Result     *FinalResult  `json:"final_result,omitempty"`
}

// NewJob creates a pending job for a product.
func NewJob(id, productID string) *Job {
	return &Job{
		ID:        id,
		ProductID: productID,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		Stages:    []StageRecord{},
	}
}

// Transition moves the job to the next status.
// Allowed: pending -> running, running -> completed|failed.
func (j *Job) Transition(next JobStatus) error {
	var from JobStatus
	switch next {
	case JobStatusRunning:
		from = JobStatusPending
	case JobStatusCompleted, JobStatusFailed:
		from = JobStatusRunning
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, next)
	}
	if j.Status != from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, next)
	}
	j.Status = next
	return nil
}

// RunningStage returns the running record with the given name, or nil.
func (j *Job) RunningStage(name string) *StageRecord {
	for i := range j.Stages {
		if j.Stages[i].Name == name && j.Stages[i].Status == StageStatusRunning {
			return &j.Stages[i]
		}
	}
	return nil
}

// Clone returns a copy safe to hand to readers. Stage outputs are shared;
// they are never mutated after the stage completes.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	c.Stages = make([]StageRecord, len(j.Stages))
	copy(c.Stages, j.Stages)
	if j.Result != nil {
		r := *j.Result
		c.Result = &r
	}
	return &c
}
