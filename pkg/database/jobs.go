package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/traindoc-io/traindoc/pkg/models"
)

// Store errors.
var (
	// ErrJobNotFound is returned when no job matches the given ID.
	ErrJobNotFound = errors.New("job not found")
	// ErrNoJobsAvailable is returned by ClaimNext when the queue is empty.
	ErrNoJobsAvailable = errors.New("no queued jobs available")
)

// JobStore persists jobs in the jobs table.
type JobStore struct {
	pool *pgxpool.Pool
}

// NewJobStore creates a job store on the client's pool.
func NewJobStore(client *Client) *JobStore {
	return &JobStore{pool: client.Pool()}
}

const jobColumns = `id, status, transcript, knowledge_urls, options, progress, stage,
	result, error_kind, error_message, cancel_requested, claimed_by,
	created_at, started_at, completed_at`

// Create inserts a new queued job and returns it with its assigned ID.
func (s *JobStore) Create(ctx context.Context, transcript string, knowledgeURLs []string, options []byte) (*models.Job, error) {
	if len(options) == 0 {
		options = []byte("{}")
	}
	urls, err := json.Marshal(knowledgeURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode knowledge URLs: %w", err)
	}

	job := &models.Job{
		ID:            uuid.NewString(),
		Status:        models.JobStatusQueued,
		Transcript:    transcript,
		KnowledgeURLs: knowledgeURLs,
		Options:       options,
		CreatedAt:     time.Now().UTC(),
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, status, transcript, knowledge_urls, options, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.Status, job.Transcript, urls, job.Options, job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert job: %w", err)
	}
	return job, nil
}

// Get returns one job by ID.
func (s *JobStore) Get(ctx context.Context, id string) (*models.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

// List returns recent jobs, newest first.
func (s *JobStore) List(ctx context.Context, limit int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimNext atomically claims the oldest queued job for workerID using
// FOR UPDATE SKIP LOCKED, so concurrent workers never claim the same job.
func (s *JobStore) ClaimNext(ctx context.Context, workerID string) (*models.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start claim transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`SELECT id FROM jobs
		 WHERE status = $1
		 ORDER BY created_at ASC
		 LIMIT 1
		 FOR UPDATE SKIP LOCKED`,
		models.JobStatusQueued)
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoJobsAvailable
		}
		return nil, fmt.Errorf("failed to query queued job: %w", err)
	}

	now := time.Now().UTC()
	claimed := tx.QueryRow(ctx,
		`UPDATE jobs
		 SET status = $1, claimed_by = $2, started_at = $3, last_progress_at = $3
		 WHERE id = $4
		 RETURNING `+jobColumns,
		models.JobStatusRunning, workerID, now, id)
	job, err := scanJob(claimed)
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}
	return job, nil
}

// UpdateProgress persists the latest progress snapshot and reports whether
// cancellation has been requested since the last write.
func (s *JobStore) UpdateProgress(ctx context.Context, id string, fraction float64, stage string) (cancelRequested bool, err error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE jobs
		 SET progress = $1, stage = $2, last_progress_at = $3
		 WHERE id = $4
		 RETURNING cancel_requested`,
		fraction, stage, time.Now().UTC(), id)
	if err := row.Scan(&cancelRequested); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrJobNotFound
		}
		return false, fmt.Errorf("failed to update progress: %w", err)
	}
	return cancelRequested, nil
}

// Complete marks a job completed and stores its result.
func (s *JobStore) Complete(ctx context.Context, id string, result *models.PipelineResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return s.finish(ctx, id,
		`UPDATE jobs
		 SET status = $1, result = $2, progress = 1, completed_at = $3
		 WHERE id = $4`,
		models.JobStatusCompleted, payload, time.Now().UTC(), id)
}

// Fail marks a job failed (or cancelled) with its classified error.
func (s *JobStore) Fail(ctx context.Context, id string, status models.JobStatus, kind, message string) error {
	return s.finish(ctx, id,
		`UPDATE jobs
		 SET status = $1, error_kind = $2, error_message = $3, completed_at = $4
		 WHERE id = $5`,
		status, kind, message, time.Now().UTC(), id)
}

// RequestCancel flags a job for cancellation. Queued jobs go straight to
// cancelled; running jobs are flagged and the owning worker aborts them.
func (s *JobStore) RequestCancel(ctx context.Context, id string) (*models.Job, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, completed_at = $2
		 WHERE id = $3 AND status = $4`,
		models.JobStatusCancelled, time.Now().UTC(), id, models.JobStatusQueued)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel queued job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		tag, err = s.pool.Exec(ctx,
			`UPDATE jobs SET cancel_requested = TRUE
			 WHERE id = $1 AND status = $2`,
			id, models.JobStatusRunning)
		if err != nil {
			return nil, fmt.Errorf("failed to flag running job: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Not queued, not running: either missing or already terminal.
			job, getErr := s.Get(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			return job, nil
		}
	}
	return s.Get(ctx, id)
}

// RequeueStale returns running jobs whose last progress write is older than
// threshold back to the queue. Called at startup to recover jobs orphaned by
// a crashed worker.
func (s *JobStore) RequeueStale(ctx context.Context, threshold time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = $1, claimed_by = '', progress = 0, stage = '', started_at = NULL
		 WHERE status = $2 AND last_progress_at < $3`,
		models.JobStatusQueued, models.JobStatusRunning,
		time.Now().UTC().Add(-threshold))
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CountRunning returns the number of jobs currently running cluster-wide.
func (s *JobStore) CountRunning(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE status = $1`,
		models.JobStatusRunning).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count running jobs: %w", err)
	}
	return count, nil
}

// QueueDepth returns the number of queued jobs.
func (s *JobStore) QueueDepth(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE status = $1`,
		models.JobStatusQueued).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count queued jobs: %w", err)
	}
	return count, nil
}

func (s *JobStore) finish(ctx context.Context, id, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to finish job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// scanJob reads one job row in jobColumns order.
func scanJob(row pgx.Row) (*models.Job, error) {
	var job models.Job
	var urls, options []byte
	var result []byte
	err := row.Scan(
		&job.ID, &job.Status, &job.Transcript, &urls, &options,
		&job.Progress, &job.Stage, &result, &job.ErrorKind, &job.ErrorMessage,
		&job.CancelRequested, &job.ClaimedBy,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	if len(urls) > 0 {
		if err := json.Unmarshal(urls, &job.KnowledgeURLs); err != nil {
			return nil, fmt.Errorf("failed to decode knowledge URLs: %w", err)
		}
	}
	job.Options = options
	if len(result) > 0 {
		job.Result = &models.PipelineResult{}
		if err := json.Unmarshal(result, job.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return &job, nil
}
