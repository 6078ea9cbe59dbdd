package generate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/traindoc-io/traindoc/pkg/llm"
	"github.com/traindoc-io/traindoc/pkg/models"
)

// GeneratorParams tune step generation.
type GeneratorParams struct {
	Prompt        PromptParams
	Timeout       time.Duration
	MaxConcurrent int
}

// ChunkResult is the generation outcome for one chunk. Exactly one of Draft
// and Err is set; a per-chunk error does not fail the run.
type ChunkResult struct {
	ChunkID int
	Draft   *models.StepDraft
	Err     error
	Usage   models.TokenUsage
}

// Generator produces one step draft per chunk via the completion backend.
type Generator struct {
	client llm.Client
	params GeneratorParams
	logger *slog.Logger
}

// NewGenerator creates a generator.
func NewGenerator(client llm.Client, params GeneratorParams, logger *slog.Logger) *Generator {
	if params.MaxConcurrent <= 0 {
		params.MaxConcurrent = 4
	}
	if params.Timeout <= 0 {
		params.Timeout = 60 * time.Second
	}
	return &Generator{client: client, params: params, logger: logger}
}

// GenerateAll runs generation for every chunk with bounded concurrency and
// returns results in chunk order. onDone, when non-nil, is called after each
// chunk completes with the number finished so far; it must not block.
func (g *Generator) GenerateAll(ctx context.Context, chunks []models.TopicChunk, excerpts map[int][]models.ScoredExcerpt, onDone func(done, total int)) ([]ChunkResult, error) {
	results := make([]ChunkResult, len(chunks))
	done := make(chan int, len(chunks))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(g.params.MaxConcurrent)

	for i := range chunks {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			results[i] = g.generateOne(groupCtx, &chunks[i], excerpts[chunks[i].ID])
			done <- i
			return nil
		})
	}

	// Drain completions as they land so progress reflects actual work.
	finished := 0
	waitErr := make(chan error, 1)
	go func() { waitErr <- group.Wait() }()
	for {
		select {
		case <-done:
			finished++
			if onDone != nil {
				onDone(finished, len(chunks))
			}
		case err := <-waitErr:
			if err != nil {
				return nil, err
			}
			// Flush any completions that raced with Wait.
			for len(done) > 0 {
				<-done
				finished++
				if onDone != nil {
					onDone(finished, len(chunks))
				}
			}
			return results, nil
		}
	}
}

// generateOne runs the call-retry-reparse protocol for a single chunk:
// one retry on call failure, then one reparse attempt with the label set
// repeated in the instructions.
func (g *Generator) generateOne(ctx context.Context, chunk *models.TopicChunk, excerpts []models.ScoredExcerpt) ChunkResult {
	result := ChunkResult{ChunkID: chunk.ID}
	prompt := BuildPrompt(chunk, excerpts, g.params.Prompt)

	resp, err := g.call(ctx, prompt, false, &result.Usage)
	if err != nil {
		result.Err = fmt.Errorf("generation failed: %w", err)
		return result
	}

	draft, parseErr := ParseStep(chunk.ID, resp.Text)
	if parseErr != nil {
		g.logger.Warn("Step response unparseable, retrying with label reminder",
			"chunk_id", chunk.ID, "error", parseErr)
		// The reparse attempt is single-shot: the call budget per chunk is
		// one retry on the first call plus one reparse call.
		resp, err = g.attempt(ctx, g.request(prompt, true), &result.Usage)
		if err != nil {
			result.Err = fmt.Errorf("generation failed on reparse attempt: %w", err)
			return result
		}
		draft, parseErr = ParseStep(chunk.ID, resp.Text)
		if parseErr != nil {
			result.Err = fmt.Errorf("unparseable response after retry: %w", parseErr)
			return result
		}
	}

	result.Draft = draft
	return result
}

// request assembles the completion request for a chunk prompt.
func (g *Generator) request(prompt string, reparse bool) llm.Request {
	return llm.Request{
		System:      BuildSystem(reparse),
		Prompt:      prompt,
		Temperature: promptTemperature,
		TopP:        promptTopP,
		MaxTokens:   promptMaxTokens,
	}
}

// call performs a completion with a per-call timeout and a single retry on
// failure. Token usage from every attempt is accumulated.
func (g *Generator) call(ctx context.Context, prompt string, reparse bool, usage *models.TokenUsage) (*llm.Response, error) {
	req := g.request(prompt, reparse)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := g.attempt(ctx, req, usage)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			// The job itself was cancelled or timed out; do not retry.
			return nil, ctx.Err()
		}
		g.logger.Warn("Completion call failed", "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

// attempt performs exactly one completion call with the per-call timeout.
func (g *Generator) attempt(ctx context.Context, req llm.Request, usage *models.TokenUsage) (*llm.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.params.Timeout)
	defer cancel()
	resp, err := g.client.Generate(callCtx, req)
	if err != nil {
		return nil, err
	}
	usage.Add(models.TokenUsage{
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		TotalTokens:  resp.InputTokens + resp.OutputTokens,
	})
	return resp, nil
}
