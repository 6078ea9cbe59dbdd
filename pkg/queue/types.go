// Package queue runs persisted jobs through the pipeline: a pool of polling
// workers claims queued jobs from the database, executes them, and writes
// back progress and terminal state.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/traindoc-io/traindoc/pkg/models"
)

// Queue errors returned by polling.
var (
	// ErrAtCapacity signals that the global running-job cap is reached.
	ErrAtCapacity = errors.New("at maximum concurrent job capacity")
)

// Store is the subset of the job store the queue needs.
type Store interface {
	ClaimNext(ctx context.Context, workerID string) (*models.Job, error)
	UpdateProgress(ctx context.Context, id string, fraction float64, stage string) (bool, error)
	Complete(ctx context.Context, id string, result *models.PipelineResult) error
	Fail(ctx context.Context, id string, status models.JobStatus, kind, message string) error
	RequeueStale(ctx context.Context, threshold time.Duration) (int, error)
	CountRunning(ctx context.Context) (int, error)
	QueueDepth(ctx context.Context) (int, error)
}

// ExecutionResult is the terminal outcome of one job execution.
type ExecutionResult struct {
	Status       models.JobStatus
	Result       *models.PipelineResult
	ErrorKind    string
	ErrorMessage string
}

// JobExecutor runs one claimed job to completion. cancelJob aborts the job
// context; the executor invokes it when the store reports a cancel request.
type JobExecutor interface {
	Execute(ctx context.Context, cancelJob context.CancelFunc, job *models.Job) *ExecutionResult
}

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// WorkerHealth is one worker's health snapshot.
type WorkerHealth struct {
	ID            string       `json:"id"`
	Status        WorkerStatus `json:"status"`
	CurrentJobID  string       `json:"current_job_id,omitempty"`
	JobsProcessed int          `json:"jobs_processed"`
	LastActivity  time.Time    `json:"last_activity"`
}

// PoolHealth is the pool's aggregate health snapshot.
type PoolHealth struct {
	IsHealthy     bool           `json:"is_healthy"`
	DBReachable   bool           `json:"db_reachable"`
	DBError       string         `json:"db_error,omitempty"`
	PodID         string         `json:"pod_id"`
	ActiveWorkers int            `json:"active_workers"`
	TotalWorkers  int            `json:"total_workers"`
	RunningJobs   int            `json:"running_jobs"`
	MaxConcurrent int            `json:"max_concurrent"`
	QueueDepth    int            `json:"queue_depth"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}
