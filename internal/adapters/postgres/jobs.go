package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"deedflow/internal/domain"
	"deedflow/internal/ports"
)

// Jobs is the event job queue. A job is claimable only when its deal has no
// running job and no older queued job.
type Jobs struct {
	db *DB
}

func NewJobs(db *DB) *Jobs { return &Jobs{db: db} }

func (q *Jobs) Enqueue(ctx context.Context, dealID string, jobs []ports.EventJob) (ids []string, err error) {
	if !validID(dealID) {
		return nil, dealNotFound(dealID)
	}
	tx, err := q.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	ids = make([]string, 0, len(jobs))
	for _, j := range jobs {
		var id string
		err = tx.QueryRow(ctx, `
			INSERT INTO event_jobs (deal_id, event, reason) VALUES ($1, $2, $3)
			RETURNING id::text
		`, dealID, j.Event, j.Reason).Scan(&id)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
				err = dealNotFound(dealID)
			}
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ClaimNext selects the next claimable job using SKIP LOCKED and marks it running.
func (q *Jobs) ClaimNext(ctx context.Context) (ports.EventJob, bool, error) {
	return q.claim(ctx, "")
}

func (q *Jobs) ClaimNextForDeal(ctx context.Context, dealID string) (ports.EventJob, bool, error) {
	if !validID(dealID) {
		return ports.EventJob{}, false, nil
	}
	return q.claim(ctx, dealID)
}

func (q *Jobs) claim(ctx context.Context, dealID string) (job ports.EventJob, found bool, err error) {
	tx, err := q.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return job, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	// Rows locked by another claimer are skipped, and their later siblings
	// still see them as queued, so a deal's jobs are never claimed out of order.
	err = tx.QueryRow(ctx, `
		SELECT j.id::text FROM event_jobs j
		WHERE j.status = 'queued'
			AND ($1 = '' OR j.deal_id::text = $1)
			AND NOT EXISTS (
				SELECT 1 FROM event_jobs o
				WHERE o.deal_id = j.deal_id
					AND (o.status = 'running' OR (o.status = 'queued' AND o.seq < j.seq))
			)
		ORDER BY j.seq
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`, dealID).Scan(&job.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return job, false, nil
	}
	if err != nil {
		return job, false, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE event_jobs SET status = 'running', started_at = now(), attempts = attempts + 1
		WHERE id = $1
		RETURNING `+jobColumns, job.ID)
	if job, err = scanJob(row); err != nil {
		return job, false, err
	}
	return job, true, nil
}

func (q *Jobs) MarkCompleted(ctx context.Context, jobID string) error {
	return q.finish(ctx, jobID, ports.JobCompleted, "")
}

func (q *Jobs) MarkFailed(ctx context.Context, jobID string, reason string) error {
	return q.finish(ctx, jobID, ports.JobFailed, reason)
}

func (q *Jobs) finish(ctx context.Context, jobID string, status ports.JobStatus, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if !validID(jobID) {
		return jobNotFound(jobID)
	}
	tag, err := q.db.Pool.Exec(ctx, `
		UPDATE event_jobs SET status = $2, error = $3, finished_at = now() WHERE id = $1
	`, jobID, string(status), reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return jobNotFound(jobID)
	}
	return nil
}

func (q *Jobs) Get(ctx context.Context, jobID string) (ports.EventJob, error) {
	if !validID(jobID) {
		return ports.EventJob{}, jobNotFound(jobID)
	}
	job, err := scanJob(q.db.Pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM event_jobs WHERE id = $1`, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.EventJob{}, jobNotFound(jobID)
	}
	return job, err
}

const jobColumns = `id::text, deal_id::text, event, reason, status, attempts, error, queued_at, started_at, finished_at`

func scanJob(row pgx.Row) (ports.EventJob, error) {
	var (
		j      ports.EventJob
		status string
	)
	err := row.Scan(&j.ID, &j.DealID, &j.Event, &j.Reason, &status, &j.Attempts, &j.Error, &j.QueuedAt, &j.StartedAt, &j.FinishedAt)
	j.Status = ports.JobStatus(status)
	return j, err
}

func jobNotFound(jobID string) error {
	return domain.WithMeta(domain.KindJobNotFound, fmt.Sprintf("job %s not found", jobID), map[string]string{"job_id": jobID})
}
