// Package binder ties generated steps back to their evidence: transcript
// sentences matched by hybrid lexical/semantic scoring, and knowledge
// excerpts that visibly informed the step content.
package binder

import (
	"context"
	"sort"
	"strings"

	"github.com/traindoc-io/traindoc/pkg/models"
	"github.com/traindoc-io/traindoc/pkg/semantic"
)

const (
	// minTokenOverlap is the minimum shared content tokens for a sentence
	// to qualify as evidence at all.
	minTokenOverlap = 3

	// minSentenceScore filters weakly matching sentences.
	minSentenceScore = 0.15

	// maxTranscriptRefs caps transcript references per step.
	maxTranscriptRefs = 5

	// knowledgeOverlapRatio is the excerpt-token coverage required to count
	// an excerpt as used when it is not a literal substring.
	knowledgeOverlapRatio = 0.30
)

// Weights blend the lexical and semantic match signals; they must sum to 1.
type Weights struct {
	Word     float64
	Semantic float64
}

// Binder resolves source references for generated steps.
type Binder struct {
	embedder semantic.Embedder // nil = lexical only
	weights  Weights
}

// NewBinder creates a binder. embedder may be nil.
func NewBinder(embedder semantic.Embedder, weights Weights) *Binder {
	if weights.Word == 0 && weights.Semantic == 0 {
		weights = Weights{Word: 0.5, Semantic: 0.5}
	}
	return &Binder{embedder: embedder, weights: weights}
}

// Bind returns the source references for one step: up to five transcript
// sentences plus every supplied excerpt whose text shows up in the content.
func (b *Binder) Bind(ctx context.Context, draft *models.StepDraft, sentences []models.Sentence, excerptsUsed []models.ScoredExcerpt) []models.SourceRef {
	stepText := stepText(draft)
	refs := b.bindTranscript(ctx, stepText, sentences)
	refs = append(refs, bindKnowledge(draft.Content, excerptsUsed)...)
	return refs
}

func (b *Binder) bindTranscript(ctx context.Context, stepText string, sentences []models.Sentence) []models.SourceRef {
	stepTokens := semantic.Tokenize(stepText)
	semScores := b.semanticScores(ctx, stepText, sentences)

	type candidate struct {
		ref   models.SourceRef
		order int
	}
	var candidates []candidate
	for i, sent := range sentences {
		sentTokens := semantic.Tokenize(sent.Text)
		if semantic.Overlap(stepTokens, sentTokens) < minTokenOverlap {
			continue
		}
		lexical := semantic.Jaccard(stepTokens, sentTokens)
		sem := lexical
		if semScores != nil {
			sem = semScores[i]
		}
		score := b.weights.Word*lexical + b.weights.Semantic*sem
		if score < minSentenceScore {
			continue
		}
		candidates = append(candidates, candidate{
			ref: models.SourceRef{
				Kind:        models.SourceTranscript,
				ExcerptText: sent.Text,
				SentenceID:  sent.ID,
				MatchScore:  score,
			},
			order: i,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ref.MatchScore != candidates[j].ref.MatchScore {
			return candidates[i].ref.MatchScore > candidates[j].ref.MatchScore
		}
		return candidates[i].order < candidates[j].order
	})
	if len(candidates) > maxTranscriptRefs {
		candidates = candidates[:maxTranscriptRefs]
	}

	refs := make([]models.SourceRef, 0, len(candidates))
	for _, c := range candidates {
		refs = append(refs, c.ref)
	}
	return refs
}

// semanticScores embeds the step and all sentences in one batch and returns
// per-sentence cosine similarity, or nil when embeddings are unavailable.
func (b *Binder) semanticScores(ctx context.Context, stepText string, sentences []models.Sentence) []float64 {
	if b.embedder == nil || len(sentences) == 0 {
		return nil
	}
	texts := make([]string, 0, len(sentences)+1)
	texts = append(texts, stepText)
	for _, sent := range sentences {
		texts = append(texts, sent.Text)
	}
	vectors, err := b.embedder.Embed(ctx, texts)
	if err != nil || len(vectors) != len(texts) {
		return nil
	}
	scores := make([]float64, len(sentences))
	for i := range sentences {
		scores[i] = semantic.Cosine(vectors[0], vectors[i+1])
	}
	return scores
}

// bindKnowledge adds a knowledge reference for each excerpt whose text
// appears in the step content, either as a case-insensitive substring or
// through substantial token coverage.
func bindKnowledge(content string, excerptsUsed []models.ScoredExcerpt) []models.SourceRef {
	loweredContent := strings.ToLower(content)
	contentTokens := semantic.Tokenize(content)

	var refs []models.SourceRef
	for _, ex := range excerptsUsed {
		used := strings.Contains(loweredContent, strings.ToLower(ex.Excerpt.Text))
		if !used {
			exTokens := semantic.Tokenize(ex.Excerpt.Text)
			if len(exTokens) > 0 {
				coverage := float64(semantic.Overlap(contentTokens, exTokens)) / float64(len(exTokens))
				used = coverage >= knowledgeOverlapRatio
			}
		}
		if used {
			refs = append(refs, models.SourceRef{
				Kind:        models.SourceKnowledge,
				ExcerptText: ex.Excerpt.Text,
				URL:         ex.Excerpt.SourceURL,
				MatchScore:  ex.Score,
			})
		}
	}
	return refs
}

// stepText concatenates every textual part of a draft for matching.
func stepText(draft *models.StepDraft) string {
	parts := []string{draft.Title, draft.Overview, draft.Content}
	parts = append(parts, draft.Actions...)
	return strings.Join(parts, " ")
}
