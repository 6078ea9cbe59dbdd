// Package api exposes the job service over HTTP: submit a transcript,
// poll status and progress, fetch the result, cancel.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/traindoc-io/traindoc/pkg/config"
	"github.com/traindoc-io/traindoc/pkg/models"
	"github.com/traindoc-io/traindoc/pkg/queue"
)

// JobStore is the subset of the database job store the API needs.
type JobStore interface {
	Create(ctx context.Context, transcript string, knowledgeURLs []string, options []byte) (*models.Job, error)
	Get(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context, limit int) ([]*models.Job, error)
	RequestCancel(ctx context.Context, id string) (*models.Job, error)
}

// Pool is the subset of the worker pool the API needs: same-pod cancel
// propagation and health reporting.
type Pool interface {
	CancelJob(jobID string) bool
	Health(ctx context.Context) *queue.PoolHealth
}

// Server holds the API handlers and their collaborators.
type Server struct {
	cfg    *config.Config
	store  JobStore
	pool   Pool
	logger *slog.Logger
}

// NewServer creates an API server.
func NewServer(cfg *config.Config, store JobStore, pool Pool, logger *slog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		store:  store,
		pool:   pool,
		logger: logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.healthHandler)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/jobs", s.submitJobHandler)
		v1.GET("/jobs", s.listJobsHandler)
		v1.GET("/jobs/:id", s.getJobHandler)
		v1.GET("/jobs/:id/result", s.getResultHandler)
		v1.POST("/jobs/:id/cancel", s.cancelJobHandler)
	}
	return r
}

// HTTPServer wraps the router in an http.Server bound to the configured
// address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:    s.cfg.Server.Addr(),
		Handler: s.Router(),
	}
}
