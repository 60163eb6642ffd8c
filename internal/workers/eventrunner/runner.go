// Package eventrunner plays queued deal events in the background.
package eventrunner

import (
	"context"
	"log"
	"sync"
	"time"

	"deedflow/internal/ports"
	"deedflow/internal/workflow"
)

// EventProcessor applies one claimed job.
type EventProcessor interface {
	Process(ctx context.Context, job ports.EventJob) error
}

// DealProcessor applies jobs through the deals service.
type DealProcessor struct{ Deals ports.Deals }

func (p DealProcessor) Process(ctx context.Context, job ports.EventJob) error {
	kind, err := workflow.ParseEventKind(job.Event)
	if err != nil {
		return err
	}
	_, err = p.Deals.ApplyEvent(ctx, job.DealID, workflow.Event{Kind: kind, Reason: job.Reason})
	return err
}

// Run claims jobs every pollInterval and hands them to concurrency workers.
// It returns once ctx is cancelled and the workers have finished.
func Run(ctx context.Context, repo ports.JobRepository, processor EventProcessor, concurrency int, pollInterval time.Duration) {
	if concurrency < 1 {
		return
	}
	jobsCh := make(chan ports.EventJob, concurrency)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for job := range jobsCh {
				finish(ctx, repo, processor, job, idx)
			}
		}(i)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	defer wg.Wait()
	defer close(jobsCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				job, found, err := repo.ClaimNext(ctx)
				if err != nil {
					if ctx.Err() == nil {
						log.Printf("job claim error: %v", err)
					}
					break
				}
				if !found {
					break
				}
				select {
				case jobsCh <- job:
				case <-ctx.Done():
					if err := repo.MarkFailed(context.WithoutCancel(ctx), job.ID, "shutdown before processing"); err != nil {
						log.Printf("job %s: mark failed on shutdown err: %v", job.ID, err)
					}
					return
				}
			}
		}
	}
}

func finish(ctx context.Context, repo ports.JobRepository, processor EventProcessor, job ports.EventJob, worker int) {
	if err := processor.Process(ctx, job); err != nil {
		if mErr := repo.MarkFailed(context.WithoutCancel(ctx), job.ID, err.Error()); mErr != nil {
			log.Printf("worker %d: mark failed err: %v", worker, mErr)
		}
		log.Printf("worker %d: job %s (%s on deal %s) failed: %v", worker, job.ID, job.Event, job.DealID, err)
		return
	}
	if err := repo.MarkCompleted(context.WithoutCancel(ctx), job.ID); err != nil {
		log.Printf("worker %d: complete err: %v", worker, err)
	}
}

type DrainResult struct {
	Completed int
	Failed    int
}

// Drain processes every queued job of one deal synchronously, in queue
// order, with the same processor the workers use. A failed job is recorded
// and the next one still runs.
func Drain(ctx context.Context, repo ports.JobRepository, processor EventProcessor, dealID string) (DrainResult, error) {
	var res DrainResult
	for {
		job, found, err := repo.ClaimNextForDeal(ctx, dealID)
		if err != nil {
			return res, err
		}
		if !found {
			return res, nil
		}
		if err := processor.Process(ctx, job); err != nil {
			res.Failed++
			if err := repo.MarkFailed(ctx, job.ID, err.Error()); err != nil {
				return res, err
			}
			continue
		}
		res.Completed++
		if err := repo.MarkCompleted(ctx, job.ID); err != nil {
			return res, err
		}
	}
}
