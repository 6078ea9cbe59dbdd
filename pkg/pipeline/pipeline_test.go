package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traindoc-io/traindoc/pkg/config"
	"github.com/traindoc-io/traindoc/pkg/llm"
	"github.com/traindoc-io/traindoc/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testOptions() config.PipelineOptions {
	return config.PipelineOptions{
		Tone:                      "Professional",
		Audience:                  "Technical Users",
		MinSteps:                  3,
		TargetSteps:               5,
		MaxSteps:                  8,
		MinConfidenceThreshold:    0.40,
		ImportanceThreshold:       0.15,
		QADensityThreshold:        0.50,
		MinActions:                3,
		MaxActions:                6,
		MinContentWords:           20,
		MaxContentLengthPerSource: 100000,
		SemanticMatchWeight:       0.5,
		WordMatchWeight:           0.5,
		LLMTimeoutSeconds:         5,
		URLTimeoutSeconds:         5,
		JobTimeoutSeconds:         60,
		MaxConcurrentGenerations:  4,
		MaxConcurrentFetches:      8,
	}
}

// testTranscript yields ~40 instructional sentences sharing vocabulary so
// binding scores stay well above the acceptance thresholds.
func testTranscript() string {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Instructor: Configure the storage cluster and verify the replication settings in part %d. ", i)
	}
	return b.String()
}

// echoClient builds a valid step whose content echoes the transcript segment
// from the prompt, keeping lexical binding deterministic and strong.
type echoClient struct{}

func (echoClient) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	segment := req.Prompt
	if idx := strings.Index(segment, "## Transcript Segment"); idx >= 0 {
		segment = segment[idx+len("## Transcript Segment"):]
	}
	if idx := strings.Index(segment, "## "); idx >= 0 {
		segment = segment[:idx]
	}
	segment = strings.TrimSpace(segment)

	text := fmt.Sprintf(`TITLE: Configure the Storage Cluster
OVERVIEW: Replication setup for the storage cluster.
CONTENT: %s
KEY ACTIONS:
- Configure the storage cluster
- Verify the replication settings
- Check the cluster status`, segment)
	return &llm.Response{Text: text, InputTokens: 200, OutputTokens: 80}, nil
}

// weakClient produces drafts that fail the action gates.
type weakClient struct{}

func (weakClient) Generate(context.Context, llm.Request) (*llm.Response, error) {
	return &llm.Response{Text: `TITLE: Some Step
OVERVIEW: Overview.
CONTENT: Learn about the topic in general terms without any concrete direction at all here.
KEY ACTIONS:
- Learn the basics
- Understand the concepts
- Review the material`, InputTokens: 10, OutputTokens: 10}, nil
}

// blockingClient waits for cancellation.
type blockingClient struct{}

func (blockingClient) Generate(ctx context.Context, _ llm.Request) (*llm.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRun_Success(t *testing.T) {
	p := New(testOptions(), echoClient{}, nil, nil, testLogger())
	result, perr := p.Run(context.Background(), Input{Transcript: testTranscript()}, nil)
	require.Nil(t, perr)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.Steps)
	for _, step := range result.Steps {
		assert.True(t, step.Accepted)
		assert.GreaterOrEqual(t, step.Confidence, 0.40)
		assert.NotEmpty(t, step.Sources)
	}
	// Steps preserve chunk order.
	for i := 1; i < len(result.Steps); i++ {
		assert.Greater(t, result.Steps[i].Draft.ChunkID, result.Steps[i-1].Draft.ChunkID)
	}

	stats := result.Stats
	assert.Equal(t, 40, stats.SentenceCount)
	assert.Equal(t, len(result.Steps), stats.AcceptedSteps)
	assert.Greater(t, stats.AverageConfidence, 0.0)
	assert.Greater(t, stats.Tokens.TotalTokens, 0)
	assert.NotEmpty(t, stats.StageDurations)
	assert.Zero(t, stats.KnowledgeSourcesFetched)
}

func TestRun_EmptyTranscript(t *testing.T) {
	p := New(testOptions(), echoClient{}, nil, nil, testLogger())
	result, perr := p.Run(context.Background(), Input{Transcript: "   "}, nil)
	assert.Nil(t, result)
	require.NotNil(t, perr)
	assert.Equal(t, KindInvalidInput, perr.Kind)
}

func TestRun_SingleSentenceTranscript(t *testing.T) {
	p := New(testOptions(), echoClient{}, nil, nil, testLogger())
	transcript := "Instructor: Configure the storage cluster and verify the replication settings because this is important."
	result, perr := p.Run(context.Background(), Input{Transcript: transcript}, nil)
	assert.Nil(t, result, "a one-sentence transcript must never produce a step")
	require.NotNil(t, perr)
	assert.Equal(t, KindInvalidInput, perr.Kind)
	assert.Contains(t, perr.Message, "at least 3")
}

func TestRun_NoValidSteps(t *testing.T) {
	p := New(testOptions(), weakClient{}, nil, nil, testLogger())
	result, perr := p.Run(context.Background(), Input{Transcript: testTranscript()}, nil)
	assert.Nil(t, result)
	require.NotNil(t, perr)
	assert.Equal(t, KindNoValidSteps, perr.Kind)
	assert.Contains(t, perr.Message, "1.")
	assert.Contains(t, perr.Message, "min_confidence_threshold")
}

func TestRun_InsufficientContent(t *testing.T) {
	opts := testOptions()
	opts.ImportanceThreshold = 0.99
	p := New(opts, echoClient{}, nil, nil, testLogger())
	result, perr := p.Run(context.Background(), Input{Transcript: testTranscript()}, nil)
	assert.Nil(t, result)
	require.NotNil(t, perr)
	assert.Equal(t, KindInsufficientContent, perr.Kind)
	assert.Contains(t, perr.Message, "importance_threshold")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	p := New(testOptions(), blockingClient{}, nil, nil, testLogger())
	result, perr := p.Run(ctx, Input{Transcript: testTranscript()}, nil)
	assert.Nil(t, result)
	require.NotNil(t, perr)
	assert.Equal(t, KindCancelled, perr.Kind)
}

func TestRun_JobTimeout(t *testing.T) {
	opts := testOptions()
	opts.JobTimeoutSeconds = 1
	p := New(opts, blockingClient{}, nil, nil, testLogger())
	result, perr := p.Run(context.Background(), Input{Transcript: testTranscript()}, nil)
	assert.Nil(t, result)
	require.NotNil(t, perr)
	assert.Equal(t, KindJobTimeout, perr.Kind)
}

func TestRun_ProgressMonotone(t *testing.T) {
	var mu sync.Mutex
	var updates []Update
	p := New(testOptions(), echoClient{}, nil, nil, testLogger())
	_, perr := p.Run(context.Background(), Input{Transcript: testTranscript()}, func(u Update) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	})
	require.Nil(t, perr)
	require.NotEmpty(t, updates)

	last := -1.0
	for _, u := range updates {
		assert.True(t, u.Stage.IsValid(), "unknown stage %q", u.Stage)
		assert.GreaterOrEqual(t, u.Fraction, last, "fractions must be non-decreasing")
		last = u.Fraction
	}
	assert.Equal(t, 1.0, updates[len(updates)-1].Fraction)
	assert.Equal(t, StageAssembling, updates[len(updates)-1].Stage)
}

func TestRun_DeterministicWithoutEmbeddings(t *testing.T) {
	p := New(testOptions(), echoClient{}, nil, nil, testLogger())
	first, perr := p.Run(context.Background(), Input{Transcript: testTranscript()}, nil)
	require.Nil(t, perr)

	for i := 0; i < 3; i++ {
		again, perr := p.Run(context.Background(), Input{Transcript: testTranscript()}, nil)
		require.Nil(t, perr)
		require.Len(t, again.Steps, len(first.Steps))
		for j := range first.Steps {
			assert.Equal(t, first.Steps[j].Draft, again.Steps[j].Draft)
			assert.Equal(t, first.Steps[j].Sources, again.Steps[j].Sources)
			assert.Equal(t, first.Steps[j].Confidence, again.Steps[j].Confidence)
		}
	}
}

func TestQualityBands(t *testing.T) {
	assert.Equal(t, models.QualityVeryHigh, models.QualityFromConfidence(0.80))
	assert.Equal(t, models.QualityHigh, models.QualityFromConfidence(0.60))
	assert.Equal(t, models.QualityMedium, models.QualityFromConfidence(0.40))
	assert.Equal(t, models.QualityLow, models.QualityFromConfidence(0.25))
	assert.Equal(t, models.QualityVeryLow, models.QualityFromConfidence(0.10))
}
