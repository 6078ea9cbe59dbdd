package semantic

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/traindoc-io/traindoc/pkg/models"
)

// SelectorParams tune excerpt retrieval for one chunk.
type SelectorParams struct {
	// TopK is the global cap on returned excerpts.
	TopK int
	// PerSourceCap limits excerpts kept per knowledge source.
	PerSourceCap int
	// ExcerptChars is the target excerpt length in characters.
	ExcerptChars int
	// MinScore filters out weakly related excerpts.
	MinScore float64
}

// DefaultSelectorParams returns the standard retrieval parameters.
func DefaultSelectorParams() SelectorParams {
	return SelectorParams{
		TopK:         5,
		PerSourceCap: 2,
		ExcerptChars: 600,
		MinScore:     0.10,
	}
}

// Selector retrieves the excerpts most relevant to a topic chunk.
// With an embedder, relevance is cosine similarity between chunk and excerpt
// embeddings; without one (or when the backend fails), it falls back to
// deterministic lexical similarity with identical thresholds and ordering.
type Selector struct {
	embedder Embedder // nil = lexical only
	params   SelectorParams
}

// NewSelector creates a selector. embedder may be nil.
func NewSelector(embedder Embedder, params SelectorParams) *Selector {
	if params.TopK <= 0 {
		params.TopK = 5
	}
	if params.PerSourceCap <= 0 {
		params.PerSourceCap = 2
	}
	if params.ExcerptChars <= 0 {
		params.ExcerptChars = 600
	}
	return &Selector{embedder: embedder, params: params}
}

// Select returns the top excerpts for the chunk text, sorted by score
// descending with original order as tie-break.
func (s *Selector) Select(ctx context.Context, chunkText string, sources []models.KnowledgeSource) ([]models.ScoredExcerpt, error) {
	var excerpts []models.Excerpt
	for _, src := range sources {
		if src.Failed() || src.Content == "" {
			continue
		}
		excerpts = append(excerpts, SplitExcerpts(&src, s.params.ExcerptChars)...)
	}
	if len(excerpts) == 0 {
		return nil, nil
	}

	scores := s.score(ctx, chunkText, excerpts)

	type candidate struct {
		excerpt models.Excerpt
		score   float64
		order   int
	}
	var candidates []candidate
	for i, ex := range excerpts {
		if scores[i] >= s.params.MinScore {
			candidates = append(candidates, candidate{excerpt: ex, score: scores[i], order: i})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].order < candidates[j].order
	})

	perSource := make(map[string]int)
	result := make([]models.ScoredExcerpt, 0, s.params.TopK)
	for _, c := range candidates {
		if perSource[c.excerpt.SourceURL] >= s.params.PerSourceCap {
			continue
		}
		perSource[c.excerpt.SourceURL]++
		result = append(result, models.ScoredExcerpt{Excerpt: c.excerpt, Score: c.score})
		if len(result) >= s.params.TopK {
			break
		}
	}
	return result, nil
}

// score computes one relevance score per excerpt. Embedding failures demote
// the whole call to lexical scoring so results stay internally consistent.
func (s *Selector) score(ctx context.Context, chunkText string, excerpts []models.Excerpt) []float64 {
	if s.embedder != nil {
		texts := make([]string, 0, len(excerpts)+1)
		texts = append(texts, chunkText)
		for _, ex := range excerpts {
			texts = append(texts, ex.Text)
		}
		vectors, err := s.embedder.Embed(ctx, texts)
		if err == nil && len(vectors) == len(texts) {
			scores := make([]float64, len(excerpts))
			for i := range excerpts {
				scores[i] = Cosine(vectors[0], vectors[i+1])
			}
			return scores
		}
		slog.Warn("Embedding backend failed, falling back to lexical scoring", "error", err)
	}

	chunkTokens := Tokenize(chunkText)
	scores := make([]float64, len(excerpts))
	for i, ex := range excerpts {
		scores[i] = Jaccard(chunkTokens, Tokenize(ex.Text))
	}
	return scores
}

// SplitExcerpts cuts a source's content into overlapping excerpts at word
// boundaries. Target length is excerptChars with ~20% overlap between
// neighbors.
func SplitExcerpts(src *models.KnowledgeSource, excerptChars int) []models.Excerpt {
	content := src.Content
	if content == "" {
		return nil
	}
	if len(content) <= excerptChars {
		return []models.Excerpt{{
			SourceURL:   src.URL,
			SourceTitle: src.Title,
			Text:        content,
			Offset:      0,
		}}
	}

	step := excerptChars - excerptChars/5 // 20% overlap
	if step < 1 {
		step = 1
	}

	var excerpts []models.Excerpt
	for offset := 0; offset < len(content); offset += step {
		end := offset + excerptChars
		if end >= len(content) {
			end = len(content)
		} else {
			// Pull back to the previous word boundary.
			if idx := strings.LastIndexByte(content[offset:end], ' '); idx > 0 {
				end = offset + idx
			}
		}

		start := offset
		// Push forward past a partial word when the window lands mid-word.
		if start > 0 && content[start-1] != ' ' {
			if idx := strings.IndexByte(content[start:end], ' '); idx >= 0 {
				start += idx + 1
			}
		}
		text := strings.TrimSpace(content[start:end])
		if text != "" {
			excerpts = append(excerpts, models.Excerpt{
				SourceURL:   src.URL,
				SourceTitle: src.Title,
				Text:        text,
				Offset:      start,
			})
		}
		if end == len(content) {
			break
		}
	}
	return excerpts
}
