package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/traindoc-io/traindoc/pkg/config"
	"github.com/traindoc-io/traindoc/pkg/knowledge"
	"github.com/traindoc-io/traindoc/pkg/llm"
	"github.com/traindoc-io/traindoc/pkg/models"
	"github.com/traindoc-io/traindoc/pkg/pipeline"
	"github.com/traindoc-io/traindoc/pkg/semantic"
)

// progressPersistInterval throttles progress writes to the database.
const progressPersistInterval = 250 * time.Millisecond

// PipelineExecutor runs claimed jobs through the pipeline and persists
// progress along the way.
type PipelineExecutor struct {
	cfg      *config.Config
	store    Store
	client   llm.Client
	embedder semantic.Embedder // nil = lexical fallback
	cache    *knowledge.Cache
	logger   *slog.Logger
}

// NewPipelineExecutor creates an executor. embedder and cache may be nil.
func NewPipelineExecutor(cfg *config.Config, store Store, client llm.Client, embedder semantic.Embedder, cache *knowledge.Cache, logger *slog.Logger) *PipelineExecutor {
	return &PipelineExecutor{
		cfg:      cfg,
		store:    store,
		client:   client,
		embedder: embedder,
		cache:    cache,
		logger:   logger,
	}
}

// Execute implements JobExecutor.
func (e *PipelineExecutor) Execute(ctx context.Context, cancelJob context.CancelFunc, job *models.Job) *ExecutionResult {
	var overrides *config.PipelineOptions
	if len(job.Options) > 0 {
		overrides = &config.PipelineOptions{}
		if err := json.Unmarshal(job.Options, overrides); err != nil {
			return &ExecutionResult{
				Status:       models.JobStatusFailed,
				ErrorKind:    string(pipeline.KindInvalidInput),
				ErrorMessage: "stored job options are not valid JSON: " + err.Error(),
			}
		}
	}
	opts, err := e.cfg.MergeJobOptions(overrides)
	if err != nil {
		return &ExecutionResult{
			Status:       models.JobStatusFailed,
			ErrorKind:    string(pipeline.KindInvalidInput),
			ErrorMessage: err.Error(),
		}
	}

	persister := &progressPersister{
		store:     e.store,
		jobID:     job.ID,
		cancelJob: cancelJob,
		logger:    e.logger,
	}

	p := pipeline.New(*opts, e.client, e.embedder, e.cache, e.logger)
	result, perr := p.Run(ctx, pipeline.Input{
		Transcript:    job.Transcript,
		KnowledgeURLs: job.KnowledgeURLs,
	}, persister.onProgress)

	if perr != nil {
		status := models.JobStatusFailed
		if perr.Kind == pipeline.KindCancelled {
			status = models.JobStatusCancelled
		}
		return &ExecutionResult{
			Status:       status,
			ErrorKind:    string(perr.Kind),
			ErrorMessage: perr.Message,
		}
	}
	return &ExecutionResult{
		Status: models.JobStatusCompleted,
		Result: result,
	}
}

// progressPersister writes pipeline progress to the store, throttled so
// per-chunk generation updates do not hammer the database. A cancel flag
// read back from the store aborts the job.
type progressPersister struct {
	store     Store
	jobID     string
	cancelJob context.CancelFunc
	logger    *slog.Logger

	mu        sync.Mutex
	lastWrite time.Time

	// writeMu serializes store writes; highest keeps persisted progress
	// monotone when background writes land out of order.
	writeMu sync.Mutex
	highest float64
}

func (p *progressPersister) onProgress(update pipeline.Update) {
	p.mu.Lock()
	if update.Fraction < 1.0 && time.Since(p.lastWrite) < progressPersistInterval {
		p.mu.Unlock()
		return
	}
	p.lastWrite = time.Now()
	p.mu.Unlock()

	// Persist in the background: progress callbacks must not block the
	// pipeline.
	go func() {
		p.writeMu.Lock()
		defer p.writeMu.Unlock()
		if update.Fraction < p.highest {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cancelRequested, err := p.store.UpdateProgress(ctx, p.jobID, update.Fraction, string(update.Stage))
		if err != nil {
			p.logger.Warn("Failed to persist job progress", "job_id", p.jobID, "error", err)
			return
		}
		p.highest = update.Fraction
		if cancelRequested {
			p.logger.Info("Cancel request detected, aborting job", "job_id", p.jobID)
			p.cancelJob()
		}
	}()
}
