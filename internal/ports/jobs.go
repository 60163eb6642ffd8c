package ports

import (
	"context"
	"time"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// EventJob is a queued simulated event for one deal.
type EventJob struct {
	ID         string
	DealID     string
	Event      string
	Reason     string
	Status     JobStatus
	Attempts   int
	Error      string
	QueuedAt   time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// JobRepository supports queueing and claiming event jobs. Jobs of one deal
// are claimed strictly in queue order and never run concurrently.
type JobRepository interface {
	Enqueue(ctx context.Context, dealID string, jobs []EventJob) (jobIDs []string, err error)
	ClaimNext(ctx context.Context) (job EventJob, found bool, err error)
	ClaimNextForDeal(ctx context.Context, dealID string) (job EventJob, found bool, err error)
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
	Get(ctx context.Context, jobID string) (EventJob, error)
}
