package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traindoc-io/traindoc/pkg/llm"
	"github.com/traindoc-io/traindoc/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stubClient returns scripted responses keyed by call count, optionally per
// prompt content.
type stubClient struct {
	mu       sync.Mutex
	calls    int
	respond  func(call int, req llm.Request) (*llm.Response, error)
	requests []llm.Request
}

func (s *stubClient) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.respond(call, req)
}

func validResponse(title string) *llm.Response {
	return &llm.Response{
		Text: fmt.Sprintf(`TITLE: %s
OVERVIEW: Overview text.
CONTENT: Configure everything carefully and verify each setting as you go.
KEY ACTIONS:
- Configure the system
- Verify the settings
- Run the checks`, title),
		InputTokens:  100,
		OutputTokens: 50,
	}
}

func testParams() GeneratorParams {
	return GeneratorParams{
		Prompt: PromptParams{
			Tone:            "Professional",
			Audience:        "Technical Users",
			MinActions:      3,
			MaxActions:      6,
			MinContentWords: 50,
		},
		Timeout:       time.Second,
		MaxConcurrent: 4,
	}
}

func testChunks(n int) []models.TopicChunk {
	chunks := make([]models.TopicChunk, n)
	for i := range chunks {
		chunks[i] = models.TopicChunk{ID: i, Text: fmt.Sprintf("chunk %d text", i)}
	}
	return chunks
}

func TestGenerateAll_OrderRestored(t *testing.T) {
	stub := &stubClient{respond: func(call int, req llm.Request) (*llm.Response, error) {
		// Identify the chunk from the prompt to title the step after it.
		for i := 0; i < 8; i++ {
			if strings.Contains(req.Prompt, fmt.Sprintf("chunk %d text", i)) {
				return validResponse(fmt.Sprintf("Step for chunk %d", i)), nil
			}
		}
		return nil, errors.New("unknown chunk")
	}}

	gen := NewGenerator(stub, testParams(), testLogger())
	results, err := gen.GenerateAll(context.Background(), testChunks(8), nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 8)
	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, i, res.ChunkID)
		assert.Equal(t, fmt.Sprintf("Step for chunk %d", i), res.Draft.Title)
	}
}

func TestGenerateAll_TokenUsageAccumulated(t *testing.T) {
	stub := &stubClient{respond: func(int, llm.Request) (*llm.Response, error) {
		return validResponse("Step"), nil
	}}
	gen := NewGenerator(stub, testParams(), testLogger())
	results, err := gen.GenerateAll(context.Background(), testChunks(1), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, results[0].Usage.InputTokens)
	assert.Equal(t, 50, results[0].Usage.OutputTokens)
	assert.Equal(t, 150, results[0].Usage.TotalTokens)
}

func TestGenerateAll_RetryOnCallFailure(t *testing.T) {
	stub := &stubClient{respond: func(call int, _ llm.Request) (*llm.Response, error) {
		if call == 0 {
			return nil, errors.New("transient backend error")
		}
		return validResponse("Recovered"), nil
	}}
	gen := NewGenerator(stub, testParams(), testLogger())
	results, err := gen.GenerateAll(context.Background(), testChunks(1), nil, nil)
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "Recovered", results[0].Draft.Title)
	assert.Equal(t, 2, stub.calls)
}

func TestGenerateAll_FailureAfterRetry(t *testing.T) {
	stub := &stubClient{respond: func(int, llm.Request) (*llm.Response, error) {
		return nil, errors.New("backend down")
	}}
	gen := NewGenerator(stub, testParams(), testLogger())
	results, err := gen.GenerateAll(context.Background(), testChunks(1), nil, nil)
	require.NoError(t, err, "per-chunk failure must not fail the run")
	require.Error(t, results[0].Err)
	assert.Nil(t, results[0].Draft)
	assert.Equal(t, 2, stub.calls)
}

func TestGenerateAll_ReparseWithLabelReminder(t *testing.T) {
	stub := &stubClient{respond: func(call int, req llm.Request) (*llm.Response, error) {
		if call == 0 {
			return &llm.Response{Text: "completely unstructured rambling"}, nil
		}
		// The reparse attempt must carry the label reminder.
		if !strings.Contains(req.System, "could not be parsed") {
			return nil, errors.New("expected label reminder in system instructions")
		}
		return validResponse("Parsed on retry"), nil
	}}
	gen := NewGenerator(stub, testParams(), testLogger())
	results, err := gen.GenerateAll(context.Background(), testChunks(1), nil, nil)
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "Parsed on retry", results[0].Draft.Title)
}

func TestGenerateAll_UnparseableAfterReparse(t *testing.T) {
	stub := &stubClient{respond: func(int, llm.Request) (*llm.Response, error) {
		return &llm.Response{Text: "still not structured"}, nil
	}}
	gen := NewGenerator(stub, testParams(), testLogger())
	results, err := gen.GenerateAll(context.Background(), testChunks(1), nil, nil)
	require.NoError(t, err)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "unparseable")
}

func TestGenerateAll_ReparseIsSingleShot(t *testing.T) {
	stub := &stubClient{respond: func(call int, _ llm.Request) (*llm.Response, error) {
		if call == 0 {
			return &llm.Response{Text: "completely unstructured rambling"}, nil
		}
		return nil, errors.New("backend down")
	}}
	gen := NewGenerator(stub, testParams(), testLogger())
	results, err := gen.GenerateAll(context.Background(), testChunks(1), nil, nil)
	require.NoError(t, err)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "reparse")
	assert.Equal(t, 2, stub.calls, "a failed reparse call must not be retried")
}

func TestGenerateAll_CallBudgetIsThree(t *testing.T) {
	// Worst case: transport failure + retry on the first call, then one
	// reparse call. Never more than three calls per chunk.
	stub := &stubClient{respond: func(call int, _ llm.Request) (*llm.Response, error) {
		if call == 0 {
			return nil, errors.New("transient backend error")
		}
		return &llm.Response{Text: "still not structured"}, nil
	}}
	gen := NewGenerator(stub, testParams(), testLogger())
	results, err := gen.GenerateAll(context.Background(), testChunks(1), nil, nil)
	require.NoError(t, err)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "unparseable")
	assert.Equal(t, 3, stub.calls)
}

func TestGenerateAll_ProgressCallback(t *testing.T) {
	stub := &stubClient{respond: func(int, llm.Request) (*llm.Response, error) {
		return validResponse("Step"), nil
	}}
	gen := NewGenerator(stub, testParams(), testLogger())

	var mu sync.Mutex
	var seen []int
	_, err := gen.GenerateAll(context.Background(), testChunks(5), nil, func(done, total int) {
		mu.Lock()
		seen = append(seen, done)
		mu.Unlock()
		assert.Equal(t, 5, total)
	})
	require.NoError(t, err)
	require.Len(t, seen, 5)
	for i, done := range seen {
		assert.Equal(t, i+1, done, "done counts must be monotonically increasing")
	}
}

func TestBuildPrompt_IncludesExcerptsAndConstraints(t *testing.T) {
	chunk := &models.TopicChunk{ID: 0, Text: "the transcript segment"}
	excerpts := []models.ScoredExcerpt{{
		Excerpt: models.Excerpt{SourceTitle: "Guide", SourceURL: "https://example.com/g", Text: "excerpt body"},
		Score:   0.42,
	}}
	prompt := BuildPrompt(chunk, excerpts, testParams().Prompt)

	assert.Contains(t, prompt, "the transcript segment")
	assert.Contains(t, prompt, "Guide")
	assert.Contains(t, prompt, "https://example.com/g")
	assert.Contains(t, prompt, "0.42")
	assert.Contains(t, prompt, "excerpt body")
	assert.Contains(t, prompt, "Tone: Professional")
	assert.Contains(t, prompt, "Audience: Technical Users")
	assert.Contains(t, prompt, "between 3 and 6 key actions")
	assert.Contains(t, prompt, "at least 50 words")
}
