// Package topics groups normalized sentences into coherent topic chunks and
// ranks them for step generation. Segmentation combines hard structural
// signals (timestamp gaps, speaker re-entry, explicit transitions) with a
// semantic drift heuristic over sentence similarities.
package topics

import (
	"context"
	"strings"

	"github.com/traindoc-io/traindoc/pkg/models"
	"github.com/traindoc-io/traindoc/pkg/semantic"
)

// Boundary detection thresholds.
const (
	// timestampGapSeconds forces a boundary when neighboring sentences are
	// this far apart in time.
	timestampGapSeconds = 90.0

	// driftSimilarityFloor marks a drift boundary when adjacent similarity
	// drops below it while the running mean stays coherent.
	driftSimilarityFloor = 0.35

	// driftRunningMeanMin is the minimum running-mean similarity required
	// before a drop counts as a change point.
	driftRunningMeanMin = 0.50

	// participantSpanMin is the participant-sentence run length that turns
	// an instructor re-entry into a boundary.
	participantSpanMin = 2

	// Preferred chunk size bounds in sentences.
	chunkSizeMin = 6
	chunkSizeMax = 12
)

// Range bounds the desired number of chunks.
type Range struct {
	Min    int
	Target int
	Max    int
}

// Segmenter splits sentences into topic chunks. The embedder is optional:
// without it, adjacent similarity uses deterministic lexical overlap.
type Segmenter struct {
	embedder semantic.Embedder
}

// NewSegmenter creates a segmenter. embedder may be nil.
func NewSegmenter(embedder semantic.Embedder) *Segmenter {
	return &Segmenter{embedder: embedder}
}

// Segment groups sentences into topic chunks. The result is non-empty
// whenever sentences is non-empty, and every sentence belongs to exactly
// one chunk, in order.
func (s *Segmenter) Segment(ctx context.Context, sentences []models.Sentence, desired Range) []models.TopicChunk {
	if len(sentences) == 0 {
		return nil
	}
	desired = normalizeRange(desired)

	sims := s.adjacentSimilarities(ctx, sentences)
	boundaries := detectBoundaries(sentences, sims)

	sizes := sizesFromBoundaries(len(sentences), boundaries)
	sizes = enforceChunkSizes(sizes, sims)
	sizes = rebalanceCount(sizes, sims, desired)

	return buildChunks(sentences, sizes)
}

// adjacentSimilarities returns similarity between each neighboring sentence
// pair (length len(sentences)-1). Falls back to lexical similarity when the
// embedding backend is missing or fails.
func (s *Segmenter) adjacentSimilarities(ctx context.Context, sentences []models.Sentence) []float64 {
	n := len(sentences)
	if n < 2 {
		return nil
	}

	if s.embedder != nil {
		texts := make([]string, n)
		for i, sent := range sentences {
			texts[i] = sent.Text
		}
		vectors, err := s.embedder.Embed(ctx, texts)
		if err == nil && len(vectors) == n {
			sims := make([]float64, n-1)
			for i := 0; i < n-1; i++ {
				sims[i] = semantic.Cosine(vectors[i], vectors[i+1])
			}
			return sims
		}
	}

	sims := make([]float64, n-1)
	tokens := make([]map[string]struct{}, n)
	for i, sent := range sentences {
		tokens[i] = semantic.Tokenize(sent.Text)
	}
	for i := 0; i < n-1; i++ {
		sims[i] = semantic.Jaccard(tokens[i], tokens[i+1])
	}
	return sims
}

// detectBoundaries marks boundary positions: boundaries[i] == true splits
// between sentence i and i+1.
func detectBoundaries(sentences []models.Sentence, sims []float64) []bool {
	n := len(sentences)
	boundaries := make([]bool, n-1)

	participantRun := 0
	var simSum float64
	simCount := 0

	for i := 0; i < n-1; i++ {
		cur, next := sentences[i], sentences[i+1]

		// Signal 1: timestamp gap
		if cur.TimestampSeconds != nil && next.TimestampSeconds != nil &&
			*next.TimestampSeconds-*cur.TimestampSeconds >= timestampGapSeconds {
			boundaries[i] = true
		}

		// Signal 2: instructor re-entry after a participant span
		if cur.Speaker == models.SpeakerParticipant {
			participantRun++
		} else {
			participantRun = 0
		}
		if next.Speaker == models.SpeakerInstructor && cur.Speaker == models.SpeakerParticipant &&
			participantRun >= participantSpanMin {
			boundaries[i] = true
		}

		// Signal 3: explicit transition in the next sentence
		if next.IsTransition {
			boundaries[i] = true
		}

		// Signal 4: semantic drift change point
		if simCount > 0 {
			runningMean := simSum / float64(simCount)
			if sims[i] < driftSimilarityFloor && runningMean >= driftRunningMeanMin {
				boundaries[i] = true
			}
		}
		simSum += sims[i]
		simCount++
		if boundaries[i] {
			// Reset the running mean at each boundary so drift detection
			// tracks the current topic only.
			simSum = 0
			simCount = 0
		}
	}
	return boundaries
}

// sizesFromBoundaries converts boundary flags to consecutive chunk sizes.
func sizesFromBoundaries(n int, boundaries []bool) []int {
	var sizes []int
	size := 1
	for i := 0; i < n-1; i++ {
		if boundaries[i] {
			sizes = append(sizes, size)
			size = 1
		} else {
			size++
		}
	}
	return append(sizes, size)
}

// enforceChunkSizes greedily splits oversize chunks at their weakest internal
// similarity and merges undersize chunks into their most similar neighbor.
func enforceChunkSizes(sizes []int, sims []float64) []int {
	// Split oversize chunks first.
	for {
		idx := -1
		for i, size := range sizes {
			if size > chunkSizeMax {
				idx = i
				break
			}
		}
		if idx == -1 {
			break
		}
		start := chunkStart(sizes, idx)
		left, right := splitAtWeakest(start, sizes[idx], sims)
		sizes = append(sizes[:idx], append([]int{left, right}, sizes[idx+1:]...)...)
	}

	// Merge undersize chunks while a merge will not create an oversize one.
	for len(sizes) > 1 {
		idx := -1
		for i, size := range sizes {
			if size < chunkSizeMin {
				idx = i
				break
			}
		}
		if idx == -1 {
			break
		}
		neighbor := mergeNeighbor(sizes, sims, idx)
		if neighbor == -1 {
			break
		}
		lo := min(idx, neighbor)
		sizes[lo] += sizes[lo+1]
		sizes = append(sizes[:lo+1], sizes[lo+2:]...)
	}
	return sizes
}

// rebalanceCount merges or splits chunks until the count lies in
// [desired.Min, desired.Max], preferring a count near desired.Target.
// Merging picks the neighbor pair with the highest cross-boundary
// similarity; splitting cuts the largest chunk at its weakest point.
func rebalanceCount(sizes []int, sims []float64, desired Range) []int {
	for len(sizes) > desired.Max {
		best, bestSim := -1, -1.0
		for i := 0; i < len(sizes)-1; i++ {
			boundary := chunkStart(sizes, i+1) - 1
			sim := 0.0
			if boundary >= 0 && boundary < len(sims) {
				sim = sims[boundary]
			}
			if sim > bestSim {
				best, bestSim = i, sim
			}
		}
		if best == -1 {
			break
		}
		sizes[best] += sizes[best+1]
		sizes = append(sizes[:best+1], sizes[best+2:]...)
	}

	for len(sizes) < desired.Min {
		// Split the largest splittable chunk.
		idx, largest := -1, 1
		for i, size := range sizes {
			if size > largest {
				idx, largest = i, size
			}
		}
		if idx == -1 || largest < 2 {
			break
		}
		start := chunkStart(sizes, idx)
		left, right := splitAtWeakest(start, sizes[idx], sims)
		sizes = append(sizes[:idx], append([]int{left, right}, sizes[idx+1:]...)...)
	}
	return sizes
}

// chunkStart returns the sentence index where chunk idx begins.
func chunkStart(sizes []int, idx int) int {
	start := 0
	for i := 0; i < idx; i++ {
		start += sizes[i]
	}
	return start
}

// splitAtWeakest splits a chunk of the given size starting at start into two
// parts at the internal position with the lowest adjacent similarity.
// Both parts are kept non-empty.
func splitAtWeakest(start, size int, sims []float64) (int, int) {
	if size < 2 {
		return size, 0
	}
	bestPos, bestSim := size/2, 2.0
	for pos := 1; pos < size; pos++ {
		boundary := start + pos - 1
		if boundary < 0 || boundary >= len(sims) {
			continue
		}
		if sims[boundary] < bestSim {
			bestPos, bestSim = pos, sims[boundary]
		}
	}
	return bestPos, size - bestPos
}

// mergeNeighbor picks which neighbor the undersize chunk at idx should merge
// with: the side with the higher cross-boundary similarity, skipping
// neighbors that would become oversize. Returns -1 if neither side fits.
func mergeNeighbor(sizes []int, sims []float64, idx int) int {
	leftOK := idx > 0 && sizes[idx-1]+sizes[idx] <= chunkSizeMax
	rightOK := idx < len(sizes)-1 && sizes[idx]+sizes[idx+1] <= chunkSizeMax

	switch {
	case leftOK && rightOK:
		leftBoundary := chunkStart(sizes, idx) - 1
		rightBoundary := chunkStart(sizes, idx+1) - 1
		if boundarySim(sims, leftBoundary) >= boundarySim(sims, rightBoundary) {
			return idx - 1
		}
		return idx + 1
	case leftOK:
		return idx - 1
	case rightOK:
		return idx + 1
	default:
		return -1
	}
}

func boundarySim(sims []float64, boundary int) float64 {
	if boundary < 0 || boundary >= len(sims) {
		return 0
	}
	return sims[boundary]
}

// buildChunks materializes TopicChunk values from consecutive sizes,
// computing joined text and Q&A density.
func buildChunks(sentences []models.Sentence, sizes []int) []models.TopicChunk {
	chunks := make([]models.TopicChunk, 0, len(sizes))
	pos := 0
	for id, size := range sizes {
		if size <= 0 {
			continue
		}
		ids := make([]int, 0, size)
		texts := make([]string, 0, size)
		questions := 0
		for _, sent := range sentences[pos : pos+size] {
			ids = append(ids, sent.ID)
			texts = append(texts, sent.Text)
			if sent.IsQuestion {
				questions++
			}
		}
		chunks = append(chunks, models.TopicChunk{
			ID:          id,
			SentenceIDs: ids,
			Text:        strings.Join(texts, " "),
			QADensity:   float64(questions) / float64(size),
		})
		pos += size
	}
	return chunks
}

func normalizeRange(r Range) Range {
	if r.Min < 1 {
		r.Min = 1
	}
	if r.Target < r.Min {
		r.Target = r.Min
	}
	if r.Max < r.Target {
		r.Max = r.Target
	}
	return r
}
