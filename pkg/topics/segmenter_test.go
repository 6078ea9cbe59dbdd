package topics

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traindoc-io/traindoc/pkg/models"
)

func ts(seconds float64) *float64 { return &seconds }

func makeSentences(n int, opts ...func(i int, s *models.Sentence)) []models.Sentence {
	sentences := make([]models.Sentence, n)
	for i := range sentences {
		sentences[i] = models.Sentence{
			ID:      i,
			Text:    fmt.Sprintf("Configure the storage cluster in step %d of the walkthrough.", i),
			Speaker: models.SpeakerInstructor,
		}
		for _, opt := range opts {
			opt(i, &sentences[i])
		}
	}
	return sentences
}

func TestSegment_Empty(t *testing.T) {
	seg := NewSegmenter(nil)
	assert.Nil(t, seg.Segment(context.Background(), nil, Range{Min: 3, Target: 8, Max: 15}))
}

func TestSegment_CoversAllSentencesInOrder(t *testing.T) {
	sentences := makeSentences(30)
	seg := NewSegmenter(nil)
	chunks := seg.Segment(context.Background(), sentences, Range{Min: 3, Target: 8, Max: 15})
	require.NotEmpty(t, chunks)

	next := 0
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ID)
		for _, id := range chunk.SentenceIDs {
			assert.Equal(t, next, id, "sentence ids must be dense and ordered")
			next++
		}
		assert.NotEmpty(t, chunk.Text)
	}
	assert.Equal(t, len(sentences), next, "every sentence belongs to exactly one chunk")
}

func TestSegment_TimestampGapBoundary(t *testing.T) {
	sentences := makeSentences(16, func(i int, s *models.Sentence) {
		if i < 8 {
			s.TimestampSeconds = ts(float64(i * 5))
		} else {
			// 90+ second jump after sentence 7
			s.TimestampSeconds = ts(200 + float64(i*5))
		}
	})
	seg := NewSegmenter(nil)
	chunks := seg.Segment(context.Background(), sentences, Range{Min: 2, Target: 2, Max: 4})
	require.GreaterOrEqual(t, len(chunks), 2)
	// The first chunk must not cross the gap
	for _, id := range chunks[0].SentenceIDs {
		assert.Less(t, id, 8)
	}
}

func TestSegment_TransitionBoundary(t *testing.T) {
	sentences := makeSentences(16, func(i int, s *models.Sentence) {
		if i == 8 {
			s.IsTransition = true
		}
	})
	seg := NewSegmenter(nil)
	chunks := seg.Segment(context.Background(), sentences, Range{Min: 2, Target: 2, Max: 4})
	require.GreaterOrEqual(t, len(chunks), 2)
	// Sentence 8 starts a new chunk
	assert.Equal(t, 8, chunks[1].SentenceIDs[0])
}

func TestSegment_SpeakerReentryBoundary(t *testing.T) {
	sentences := makeSentences(16, func(i int, s *models.Sentence) {
		if i >= 5 && i <= 7 {
			s.Speaker = models.SpeakerParticipant
		}
	})
	seg := NewSegmenter(nil)
	chunks := seg.Segment(context.Background(), sentences, Range{Min: 2, Target: 2, Max: 4})
	require.GreaterOrEqual(t, len(chunks), 2)
	found := false
	for _, chunk := range chunks {
		if chunk.SentenceIDs[0] == 8 {
			found = true
		}
	}
	assert.True(t, found, "instructor re-entry at sentence 8 must open a chunk")
}

func TestSegment_ChunkCountWithinRange(t *testing.T) {
	sentences := makeSentences(80)
	seg := NewSegmenter(nil)
	desired := Range{Min: 3, Target: 8, Max: 15}
	chunks := seg.Segment(context.Background(), sentences, desired)
	assert.GreaterOrEqual(t, len(chunks), desired.Min)
	assert.LessOrEqual(t, len(chunks), desired.Max)
}

func TestSegment_QADensity(t *testing.T) {
	sentences := makeSentences(8, func(i int, s *models.Sentence) {
		if i%2 == 0 {
			s.IsQuestion = true
		}
	})
	seg := NewSegmenter(nil)
	chunks := seg.Segment(context.Background(), sentences, Range{Min: 1, Target: 1, Max: 1})
	require.Len(t, chunks, 1)
	assert.InDelta(t, 0.5, chunks[0].QADensity, 1e-9)
}

func TestSegment_Deterministic(t *testing.T) {
	sentences := makeSentences(40, func(i int, s *models.Sentence) {
		if i%13 == 0 {
			s.IsTransition = true
		}
	})
	seg := NewSegmenter(nil)
	first := seg.Segment(context.Background(), sentences, Range{Min: 3, Target: 8, Max: 15})
	for i := 0; i < 5; i++ {
		again := seg.Segment(context.Background(), sentences, Range{Min: 3, Target: 8, Max: 15})
		assert.Equal(t, first, again)
	}
}

func TestSizesFromBoundaries(t *testing.T) {
	sizes := sizesFromBoundaries(5, []bool{false, true, false, true})
	assert.Equal(t, []int{3, 1, 1}, sizes)

	sizes = sizesFromBoundaries(3, []bool{false, false})
	assert.Equal(t, []int{3}, sizes)
}

func TestSplitAtWeakest(t *testing.T) {
	// sims: weakest internal similarity at boundary index 2 (between pos 2 and 3)
	sims := []float64{0.9, 0.8, 0.1, 0.7}
	left, right := splitAtWeakest(0, 5, sims)
	assert.Equal(t, 3, left)
	assert.Equal(t, 2, right)
}
