package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/traindoc-io/traindoc/pkg/config"
	"github.com/traindoc-io/traindoc/pkg/database"
	"github.com/traindoc-io/traindoc/pkg/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// submitJobHandler handles POST /api/v1/jobs. The job is persisted as
// queued and picked up by a worker; the response returns immediately.
func (s *Server) submitJobHandler(c *gin.Context) {
	ctx := c.Request.Context()

	var req SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if strings.TrimSpace(req.Transcript) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transcript is required"})
		return
	}
	if max := s.cfg.Server.MaxTranscriptBytes; len(req.Transcript) > max {
		c.JSON(http.StatusRequestEntityTooLarge,
			gin.H{"error": "transcript exceeds maximum size of " + strconv.Itoa(max) + " bytes"})
		return
	}

	for _, raw := range req.KnowledgeURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid knowledge URL: " + raw})
			return
		}
	}

	options, err := s.validateOptions(req.Options)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := s.store.Create(ctx, req.Transcript, req.KnowledgeURLs, options)
	if err != nil {
		s.logger.Error("Failed to create job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create job"})
		return
	}

	s.logger.Info("Job submitted", "job_id", job.ID,
		"transcript_bytes", len(req.Transcript), "knowledge_urls", len(req.KnowledgeURLs))

	c.JSON(http.StatusAccepted, SubmitJobResponse{
		JobID:   job.ID,
		Status:  string(job.Status),
		Message: "Job queued for processing",
	})
}

// validateOptions strictly decodes the per-job option overrides and checks
// them against the configured defaults. Unknown option names are rejected so
// typos fail at submission, not silently mid-run.
func (s *Server) validateOptions(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var overrides config.PipelineOptions
	if err := dec.Decode(&overrides); err != nil {
		return nil, errors.New("invalid options: " + err.Error())
	}
	if _, err := s.cfg.MergeJobOptions(&overrides); err != nil {
		return nil, errors.New("invalid options: " + err.Error())
	}
	return raw, nil
}

// getJobHandler handles GET /api/v1/jobs/:id.
func (s *Server) getJobHandler(c *gin.Context) {
	job, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.jobError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStatusResponse(job))
}

// getResultHandler handles GET /api/v1/jobs/:id/result. The result is only
// available once the job completed; anything else is a conflict.
func (s *Server) getResultHandler(c *gin.Context) {
	job, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.jobError(c, err)
		return
	}

	if job.Status != models.JobStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{
			"error":         "job has no result in status " + string(job.Status),
			"status":        string(job.Status),
			"error_kind":    job.ErrorKind,
			"error_message": job.ErrorMessage,
		})
		return
	}

	c.JSON(http.StatusOK, JobResultResponse{
		JobID:  job.ID,
		Status: string(job.Status),
		Result: job.Result,
	})
}

// cancelJobHandler handles POST /api/v1/jobs/:id/cancel. Queued jobs are
// cancelled immediately; running jobs get a persisted cancel flag plus a
// direct context cancel if they run on this pod.
func (s *Server) cancelJobHandler(c *gin.Context) {
	id := c.Param("id")

	job, err := s.store.RequestCancel(c.Request.Context(), id)
	if err != nil {
		s.jobError(c, err)
		return
	}

	switch {
	case job.Status == models.JobStatusCancelled:
		c.JSON(http.StatusOK, SubmitJobResponse{
			JobID:  job.ID,
			Status: string(job.Status),
		})
	case job.Status == models.JobStatusRunning:
		// Immediate cancel when the job runs here; other pods observe the
		// flag on their next progress write.
		if s.pool.CancelJob(id) {
			s.logger.Info("Cancelled job on this pod", "job_id", id)
		}
		c.JSON(http.StatusAccepted, SubmitJobResponse{
			JobID:   job.ID,
			Status:  string(job.Status),
			Message: "Cancellation requested",
		})
	default:
		c.JSON(http.StatusConflict, gin.H{
			"error":  "job is not cancellable in status " + string(job.Status),
			"status": string(job.Status),
		})
	}
}

// listJobsHandler handles GET /api/v1/jobs.
func (s *Server) listJobsHandler(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxListLimit)
	}

	jobs, err := s.store.List(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list jobs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}

	resp := ListJobsResponse{Jobs: make([]JobStatusResponse, len(jobs))}
	for i, job := range jobs {
		resp.Jobs[i] = toStatusResponse(job)
	}
	c.JSON(http.StatusOK, resp)
}

// jobError maps store lookup errors to HTTP status codes.
func (s *Server) jobError(c *gin.Context, err error) {
	if errors.Is(err, database.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	s.logger.Error("Job store error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
