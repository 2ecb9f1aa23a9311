package model

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusStarted   JobStatus = "STARTED"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

type JobExecution struct {
	ID         uuid.UUID
	JobName    string
	Parameters map[string]string
	Status     JobStatus
	ReadCount  int
	WriteCount int
	StartedAt  time.Time
	FinishedAt *time.Time
	Error      string
}

func NewJobExecution(name string, params map[string]string, now time.Time) *JobExecution {
	return &JobExecution{
		ID:         uuid.New(),
		JobName:    name,
		Parameters: params,
		Status:     JobStatusStarted,
		StartedAt:  now,
	}
}

func (e *JobExecution) Finish(err error, now time.Time) {
	e.FinishedAt = &now
	if err != nil {
		e.Status = JobStatusFailed
		e.Error = err.Error()
		return
	}
	e.Status = JobStatusCompleted
}
