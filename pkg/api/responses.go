package api

import (
	"time"

	"github.com/traindoc-io/traindoc/pkg/models"
)

// SubmitJobResponse acknowledges a queued job.
type SubmitJobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// JobStatusResponse reports a job's lifecycle state and progress. The
// result itself is served by the dedicated result endpoint.
type JobStatusResponse struct {
	JobID        string     `json:"job_id"`
	Status       string     `json:"status"`
	Progress     float64    `json:"progress"`
	Stage        string     `json:"stage,omitempty"`
	ErrorKind    string     `json:"error_kind,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// JobResultResponse carries the pipeline output for a completed job.
type JobResultResponse struct {
	JobID  string                 `json:"job_id"`
	Status string                 `json:"status"`
	Result *models.PipelineResult `json:"result"`
}

// ListJobsResponse is a page of recent jobs, newest first.
type ListJobsResponse struct {
	Jobs []JobStatusResponse `json:"jobs"`
}

func toStatusResponse(job *models.Job) JobStatusResponse {
	return JobStatusResponse{
		JobID:        job.ID,
		Status:       string(job.Status),
		Progress:     job.Progress,
		Stage:        job.Stage,
		ErrorKind:    job.ErrorKind,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
	}
}
