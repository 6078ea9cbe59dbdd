package semantic

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traindoc-io/traindoc/pkg/models"
)

func TestSplitExcerpts_ShortContent(t *testing.T) {
	src := &models.KnowledgeSource{URL: "https://example.com/doc", Title: "Doc", Content: "short content"}
	excerpts := SplitExcerpts(src, 600)
	require.Len(t, excerpts, 1)
	assert.Equal(t, "short content", excerpts[0].Text)
	assert.Equal(t, 0, excerpts[0].Offset)
	assert.Equal(t, "https://example.com/doc", excerpts[0].SourceURL)
}

func TestSplitExcerpts_OverlappingWindows(t *testing.T) {
	words := make([]string, 400)
	for i := range words {
		words[i] = "word"
	}
	src := &models.KnowledgeSource{URL: "u", Content: strings.Join(words, " ")}

	excerpts := SplitExcerpts(src, 600)
	require.Greater(t, len(excerpts), 1)

	for i, ex := range excerpts {
		// Word-aligned: no excerpt starts or ends mid-word
		assert.False(t, strings.HasPrefix(ex.Text, "ord"), "excerpt %d starts mid-word", i)
		assert.LessOrEqual(t, len(ex.Text), 600)
	}
	// Windows overlap: each subsequent offset advances by less than the
	// excerpt length
	for i := 1; i < len(excerpts); i++ {
		assert.Less(t, excerpts[i].Offset-excerpts[i-1].Offset, 600)
	}
}

func TestSelector_LexicalFallback(t *testing.T) {
	sources := []models.KnowledgeSource{
		{URL: "https://example.com/capacity", Title: "Capacity", Content: "capacity planning for storage clusters requires careful measurement of disk throughput and capacity headroom"},
		{URL: "https://example.com/cooking", Title: "Cooking", Content: "recipes for pasta involve boiling water and adding salt before the noodles"},
	}

	sel := NewSelector(nil, DefaultSelectorParams())
	got, err := sel.Select(context.Background(), "plan the storage capacity of the cluster by measuring disk throughput", sources)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	// The capacity doc must outrank the cooking doc
	assert.Equal(t, "https://example.com/capacity", got[0].Excerpt.SourceURL)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score, "scores must be descending")
	}
}

func TestSelector_MinScoreFilters(t *testing.T) {
	sources := []models.KnowledgeSource{
		{URL: "u", Title: "T", Content: "entirely unrelated prose about gardening tulips in spring weather"},
	}
	sel := NewSelector(nil, SelectorParams{TopK: 5, PerSourceCap: 2, ExcerptChars: 600, MinScore: 0.10})
	got, err := sel.Select(context.Background(), "configure kubernetes ingress controllers", sources)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelector_PerSourceCap(t *testing.T) {
	// One source with many similar windows; cap must hold
	words := strings.Repeat("storage capacity planning disk throughput measurement ", 100)
	sources := []models.KnowledgeSource{
		{URL: "only", Title: "Only", Content: words},
	}
	sel := NewSelector(nil, SelectorParams{TopK: 5, PerSourceCap: 2, ExcerptChars: 200, MinScore: 0.01})
	got, err := sel.Select(context.Background(), "measure storage capacity and disk throughput", sources)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), 2)
}

func TestSelector_SkipsFailedSources(t *testing.T) {
	sources := []models.KnowledgeSource{
		{URL: "bad", Error: "fetch timeout"},
		{URL: "good", Content: "storage capacity planning content with disk throughput details"},
	}
	sel := NewSelector(nil, DefaultSelectorParams())
	got, err := sel.Select(context.Background(), "storage capacity and disk throughput", sources)
	require.NoError(t, err)
	for _, e := range got {
		assert.Equal(t, "good", e.Excerpt.SourceURL)
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float64, error) {
	return nil, errors.New("backend down")
}

func TestSelector_EmbedderFailureFallsBackToLexical(t *testing.T) {
	sources := []models.KnowledgeSource{
		{URL: "u", Title: "T", Content: "storage capacity planning with disk throughput measurement details"},
	}
	sel := NewSelector(failingEmbedder{}, DefaultSelectorParams())
	got, err := sel.Select(context.Background(), "measure storage capacity and disk throughput", sources)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

type fixedEmbedder struct {
	vectors map[string][]float64
}

func (f fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if v, ok := f.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = []float64{0, 0, 1}
		}
	}
	return out, nil
}

func TestSelector_EmbeddingScoring(t *testing.T) {
	sources := []models.KnowledgeSource{
		{URL: "close", Title: "Close", Content: "near text"},
		{URL: "far", Title: "Far", Content: "far text"},
	}
	emb := fixedEmbedder{vectors: map[string][]float64{
		"the chunk": {1, 0, 0},
		"near text": {0.9, 0.1, 0},
		"far text":  {0, 1, 0},
	}}
	sel := NewSelector(emb, DefaultSelectorParams())
	got, err := sel.Select(context.Background(), "the chunk", sources)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "close", got[0].Excerpt.SourceURL)
}
