package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"deedflow/internal/domain"
	"deedflow/internal/ports"
)

// JobQueue is an in-process event job queue with the same per-deal ordering
// guarantees as the postgres queue.
type JobQueue struct {
	mu   sync.Mutex
	jobs []*ports.EventJob
	now  func() time.Time
}

func NewJobQueue() *JobQueue {
	return &JobQueue{now: func() time.Time { return time.Now().UTC() }}
}

func (q *JobQueue) Enqueue(ctx context.Context, dealID string, jobs []ports.EventJob) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		job := &ports.EventJob{
			ID:       uuid.NewString(),
			DealID:   dealID,
			Event:    j.Event,
			Reason:   j.Reason,
			Status:   ports.JobQueued,
			QueuedAt: q.now(),
		}
		q.jobs = append(q.jobs, job)
		ids = append(ids, job.ID)
	}
	return ids, nil
}

func (q *JobQueue) ClaimNext(ctx context.Context) (ports.EventJob, bool, error) {
	return q.claim("")
}

func (q *JobQueue) ClaimNextForDeal(ctx context.Context, dealID string) (ports.EventJob, bool, error) {
	return q.claim(dealID)
}

// claim takes the oldest queued job whose deal has no running job and no
// older queued job.
func (q *JobQueue) claim(dealID string) (ports.EventJob, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	busy := make(map[string]bool)
	for _, j := range q.jobs {
		if j.Status == ports.JobRunning {
			busy[j.DealID] = true
		}
	}
	for _, j := range q.jobs {
		if j.Status != ports.JobQueued {
			continue
		}
		if busy[j.DealID] {
			continue
		}
		busy[j.DealID] = true
		if dealID != "" && j.DealID != dealID {
			continue
		}
		now := q.now()
		j.Status = ports.JobRunning
		j.StartedAt = &now
		j.Attempts++
		return *j, true, nil
	}
	return ports.EventJob{}, false, nil
}

func (q *JobQueue) MarkCompleted(ctx context.Context, jobID string) error {
	return q.finish(jobID, ports.JobCompleted, "")
}

func (q *JobQueue) MarkFailed(ctx context.Context, jobID string, reason string) error {
	return q.finish(jobID, ports.JobFailed, reason)
}

func (q *JobQueue) finish(jobID string, status ports.JobStatus, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	j := q.find(jobID)
	if j == nil {
		return jobNotFound(jobID)
	}
	now := q.now()
	j.Status = status
	j.Error = reason
	j.FinishedAt = &now
	return nil
}

func (q *JobQueue) Get(ctx context.Context, jobID string) (ports.EventJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j := q.find(jobID)
	if j == nil {
		return ports.EventJob{}, jobNotFound(jobID)
	}
	return *j, nil
}

func (q *JobQueue) find(jobID string) *ports.EventJob {
	for _, j := range q.jobs {
		if j.ID == jobID {
			return j
		}
	}
	return nil
}

func jobNotFound(jobID string) error {
	return domain.WithMeta(domain.KindJobNotFound, fmt.Sprintf("job %s not found", jobID), map[string]string{"job_id": jobID})
}
