// Package pipeline orchestrates the transcript-to-training-document run:
// normalize, fetch knowledge, segment, rank, select excerpts, generate,
// bind, validate, assemble.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/traindoc-io/traindoc/pkg/binder"
	"github.com/traindoc-io/traindoc/pkg/config"
	"github.com/traindoc-io/traindoc/pkg/generate"
	"github.com/traindoc-io/traindoc/pkg/knowledge"
	"github.com/traindoc-io/traindoc/pkg/llm"
	"github.com/traindoc-io/traindoc/pkg/models"
	"github.com/traindoc-io/traindoc/pkg/semantic"
	"github.com/traindoc-io/traindoc/pkg/topics"
	"github.com/traindoc-io/traindoc/pkg/transcript"
	"github.com/traindoc-io/traindoc/pkg/validate"
)

// minTranscriptSentences is the smallest transcript that can yield a topic.
// Below it there is nothing to segment, so the job fails before any network
// or LLM work.
const minTranscriptSentences = 3

// Input is one pipeline invocation's payload.
type Input struct {
	Transcript    string
	KnowledgeURLs []string
}

// Pipeline runs one transcript through every stage. A Pipeline is safe for
// concurrent use; each Run owns its own per-job state.
type Pipeline struct {
	opts     config.PipelineOptions
	client   llm.Client
	embedder semantic.Embedder // nil = lexical fallback everywhere
	cache    *knowledge.Cache
	logger   *slog.Logger
}

// New creates a pipeline. embedder may be nil; cache may be nil.
func New(opts config.PipelineOptions, client llm.Client, embedder semantic.Embedder, cache *knowledge.Cache, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		opts:     opts,
		client:   client,
		embedder: embedder,
		cache:    cache,
		logger:   logger,
	}
}

// Run executes the whole pipeline for one transcript. It is synchronous:
// it returns either a result or a classified error, never both. Progress
// updates are delivered inline to onProgress, which may be nil.
func (p *Pipeline) Run(ctx context.Context, input Input, onProgress ProgressFunc) (*models.PipelineResult, *Error) {
	jobCtx, cancel := context.WithTimeout(ctx, p.opts.JobTimeout())
	defer cancel()

	rep := &reporter{sink: onProgress}
	timer := newStageTimer()

	// Stage 1: normalize.
	rep.report(Update{Stage: StageNormalizing, Fraction: 0})
	sentences, err := transcript.Normalize(input.Transcript)
	if err != nil {
		return nil, newError(KindInvalidInput, "transcript normalization failed: %v", err)
	}
	if len(sentences) < minTranscriptSentences {
		return nil, newError(KindInvalidInput,
			"transcript has %d sentences; at least %d are required to derive topics",
			len(sentences), minTranscriptSentences)
	}
	timer.mark(StageNormalizing)
	rep.report(Update{Stage: StageNormalizing, Fraction: fractionNormalized,
		Detail: "transcript normalized"})

	// Stage 2: fetch knowledge.
	rep.report(Update{Stage: StageFetching, Fraction: fractionNormalized})
	fetcher := knowledge.NewFetcher(&http.Client{}, p.cache, knowledge.FetcherParams{
		MaxConcurrent:   p.opts.MaxConcurrentFetches,
		PerURLTimeout:   p.opts.URLTimeout(),
		MaxContentChars: p.opts.MaxContentLengthPerSource,
	}, p.logger)
	sources, fetchErr := fetcher.FetchAll(jobCtx, input.KnowledgeURLs)
	if fetchErr != nil {
		return nil, p.classifyCtxErr(ctx, fetchErr)
	}
	timer.mark(StageFetching)
	rep.report(Update{Stage: StageFetching, Fraction: fractionFetched})

	embedder := p.embedder
	if !p.opts.EmbeddingOn() {
		embedder = nil
	}

	// Stage 3: segment.
	rep.report(Update{Stage: StageSegmenting, Fraction: fractionFetched})
	segmenter := topics.NewSegmenter(embedder)
	chunks := segmenter.Segment(jobCtx, sentences, topics.Range{
		Min:    p.opts.MinSteps,
		Target: p.opts.TargetSteps,
		Max:    p.opts.MaxSteps,
	})
	if ctxErr := jobCtx.Err(); ctxErr != nil {
		return nil, p.classifyCtxErr(ctx, ctxErr)
	}
	timer.mark(StageSegmenting)
	rep.report(Update{Stage: StageSegmenting, Fraction: fractionSegmented})

	// Stage 4: rank and filter.
	rep.report(Update{Stage: StageRanking, Fraction: fractionSegmented})
	ranker := topics.NewRanker(topics.RankerParams{
		ImportanceThreshold: p.opts.ImportanceThreshold,
		QADensityThreshold:  p.opts.QADensityThreshold,
	})
	ranked, dropDetail := ranker.FilterRank(chunks, sentences)
	if len(ranked) == 0 {
		return nil, newError(KindInsufficientContent, "%s",
			insufficientContentMessage(dropDetail, p.opts.ImportanceThreshold))
	}
	timer.mark(StageRanking)
	rep.report(Update{Stage: StageRanking, Fraction: fractionRanked})

	// Stage 5: excerpt selection per chunk.
	rep.report(Update{Stage: StageSelecting, Fraction: fractionRanked})
	selector := semantic.NewSelector(embedder, semantic.DefaultSelectorParams())
	excerpts := make(map[int][]models.ScoredExcerpt, len(ranked))
	for i := range ranked {
		selected, selErr := selector.Select(jobCtx, ranked[i].Text, sources)
		if selErr != nil {
			return nil, p.classifyCtxErr(ctx, selErr)
		}
		excerpts[ranked[i].ID] = selected
	}
	timer.mark(StageSelecting)
	rep.report(Update{Stage: StageSelecting, Fraction: fractionSelected})

	// Stage 6: generation with bounded concurrency, order restored.
	generator := generate.NewGenerator(p.client, generate.GeneratorParams{
		Prompt: generate.PromptParams{
			Tone:            p.opts.Tone,
			Audience:        p.opts.Audience,
			MinActions:      p.opts.MinActions,
			MaxActions:      p.opts.MaxActions,
			MinContentWords: p.opts.MinContentWords,
		},
		Timeout:       p.opts.LLMTimeout(),
		MaxConcurrent: p.opts.MaxConcurrentGenerations,
	}, p.logger)
	span := fractionGenerated - fractionSelected
	results, genErr := generator.GenerateAll(jobCtx, ranked, excerpts, func(done, total int) {
		rep.report(Update{
			Stage:       StageGenerating,
			CurrentStep: done,
			TotalSteps:  total,
			Fraction:    fractionSelected + span*float64(done)/float64(total),
		})
	})
	if genErr != nil {
		return nil, p.classifyCtxErr(ctx, genErr)
	}
	timer.mark(StageGenerating)

	// Stages 7-8: bind and validate, in chunk order.
	rep.report(Update{Stage: StageBinding, Fraction: fractionGenerated})
	bnd := binder.NewBinder(embedder, binder.Weights{
		Word:     p.opts.WordMatchWeight,
		Semantic: p.opts.SemanticMatchWeight,
	})
	validator := validate.NewValidator(validate.ValidatorParams{
		MinActions:      p.opts.MinActions,
		MaxActions:      p.opts.MaxActions,
		MinContentWords: p.opts.MinContentWords,
		MinConfidence:   p.opts.MinConfidenceThreshold,
	})

	stats := models.Statistics{
		SentenceCount:           len(sentences),
		ChunkCount:              len(chunks),
		ChunksDropped:           len(chunks) - len(ranked),
		KnowledgeSourcesFetched: len(sources),
	}

	var validated []models.ValidatedStep
	var rejectionReasons []string
	for _, res := range results {
		stats.Tokens.Add(res.Usage)
		if res.Err != nil {
			if strings.Contains(res.Err.Error(), "unparseable") {
				stats.ParseFailures++
			} else {
				stats.GenerationFailures++
			}
			p.logger.Warn("Chunk produced no step", "chunk_id", res.ChunkID, "error", res.Err)
			continue
		}
		stats.GeneratedSteps++

		refs := bnd.Bind(jobCtx, res.Draft, sentences, excerpts[res.ChunkID])
		step := validator.Validate(res.Draft, refs)
		validated = append(validated, step)
		if !step.Accepted {
			rejectionReasons = append(rejectionReasons, step.RejectionReasons...)
		}
	}
	if ctxErr := jobCtx.Err(); ctxErr != nil {
		return nil, p.classifyCtxErr(ctx, ctxErr)
	}
	timer.mark(StageBinding)
	rep.report(Update{Stage: StageValidating, Fraction: fractionValidated})
	timer.mark(StageValidating)

	// Stage 9: assemble.
	rep.report(Update{Stage: StageAssembling, Fraction: fractionValidated})
	result := assemble(validated, sources, stats)
	if result == nil {
		return nil, newError(KindNoValidSteps, "%s",
			noValidStepsMessage(rejectionReasons, p.opts.MinConfidenceThreshold))
	}
	timer.mark(StageAssembling)
	result.Stats.StageDurations = timer.record()
	rep.report(Update{Stage: StageAssembling, Fraction: fractionDone, Detail: "done"})
	return result, nil
}

// classifyCtxErr distinguishes external cancellation from the job's own soft
// timeout. outerCtx is the caller's context, before the timeout wrap.
func (p *Pipeline) classifyCtxErr(outerCtx context.Context, err error) *Error {
	if outerCtx.Err() != nil {
		return newError(KindCancelled, "job cancelled: %v", outerCtx.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindJobTimeout, "job exceeded the %s soft timeout", p.opts.JobTimeout())
	}
	if errors.Is(err, context.Canceled) {
		return newError(KindCancelled, "job cancelled")
	}
	return newError(KindInternal, "unexpected failure: %v", err)
}

// assemble builds the final result from validated steps. Returns nil when no
// step was accepted.
func assemble(validated []models.ValidatedStep, sources []models.KnowledgeSource, stats models.Statistics) *models.PipelineResult {
	var accepted []models.ValidatedStep
	var confidenceSum float64
	citedURLs := map[string]struct{}{}

	for _, step := range validated {
		if !step.Accepted {
			stats.RejectedSteps++
			continue
		}
		accepted = append(accepted, step)
		confidenceSum += step.Confidence
		if step.Quality == models.QualityHigh || step.Quality == models.QualityVeryHigh {
			stats.HighConfidenceSteps++
		}
		for _, ref := range step.Sources {
			if ref.Kind == models.SourceKnowledge {
				citedURLs[ref.URL] = struct{}{}
			}
		}
	}
	if len(accepted) == 0 {
		return nil
	}

	stats.AcceptedSteps = len(accepted)
	stats.AverageConfidence = confidenceSum / float64(len(accepted))
	stats.KnowledgeSourcesCited = len(citedURLs)
	if stats.KnowledgeSourcesFetched > 0 {
		stats.KnowledgeUsageRate = float64(stats.KnowledgeSourcesCited) / float64(stats.KnowledgeSourcesFetched)
	}

	return &models.PipelineResult{
		Steps:     accepted,
		Stats:     stats,
		Knowledge: sources,
	}
}

// stageTimer records wall time per stage in execution order.
type stageTimer struct {
	last      time.Time
	durations []models.StageDuration
}

func newStageTimer() *stageTimer {
	return &stageTimer{last: time.Now()}
}

func (t *stageTimer) mark(stage Stage) {
	now := time.Now()
	t.durations = append(t.durations, models.StageDuration{
		Stage:    string(stage),
		Duration: now.Sub(t.last),
	})
	t.last = now
}

func (t *stageTimer) record() []models.StageDuration {
	return t.durations
}
