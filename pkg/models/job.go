package models

import "time"

// JobStatus is the lifecycle state of a persisted job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsValid checks if the job status is one of the known values.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job is one persisted transcript-processing request. The transcript and
// options are stored at submission time; result and error fields are filled
// when the job reaches a terminal state.
type Job struct {
	ID              string          `json:"id"`
	Status          JobStatus       `json:"status"`
	Transcript      string          `json:"-"`
	KnowledgeURLs   []string        `json:"knowledge_urls,omitempty"`
	Options         []byte          `json:"-"` // JSON-encoded pipeline options
	Progress        float64         `json:"progress"`
	Stage           string          `json:"stage,omitempty"`
	Result          *PipelineResult `json:"result,omitempty"`
	ErrorKind       string          `json:"error_kind,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	CancelRequested bool            `json:"cancel_requested,omitempty"`
	ClaimedBy       string          `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}
