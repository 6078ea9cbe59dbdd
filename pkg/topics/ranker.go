package topics

import (
	"fmt"
	"strings"

	"github.com/traindoc-io/traindoc/pkg/models"
	"github.com/traindoc-io/traindoc/pkg/validate"
)

// Importance score weights.
const (
	weightDuration      = 0.25
	weightEmphasis      = 0.25
	weightActionability = 0.25
	weightPosition      = 0.15
	weightQAPenalty     = 0.10
)

// qaClarificationMaxSentences bounds the short back-and-forth exchanges
// classified as clarification rather than substantive Q&A.
const qaClarificationMaxSentences = 6

// administrativeTokens flag greeting/closing chatter. A chunk made only of
// such sentences carries no instructional value.
var administrativeTokens = []string{
	"hello", "hi everyone", "good morning", "good afternoon", "good evening",
	"welcome", "thanks for joining", "thank you for joining", "thanks everyone",
	"thank you everyone", "see you next", "goodbye", "bye", "have a great",
	"that's all for today", "wrapping up", "before we start", "can everyone hear",
	"can you hear me", "let me share my screen", "is my screen visible",
}

// RankerParams tune filtering.
type RankerParams struct {
	ImportanceThreshold float64
	QADensityThreshold  float64
}

// Ranker classifies chunks and scores their importance.
type Ranker struct {
	params RankerParams
}

// NewRanker creates a ranker.
func NewRanker(params RankerParams) *Ranker {
	return &Ranker{params: params}
}

// FilterRank classifies every chunk, scores importance, and returns the
// surviving chunks in original order. The second return value describes why
// content was eliminated; it is non-empty only when no chunk survives.
func (r *Ranker) FilterRank(chunks []models.TopicChunk, sentences []models.Sentence) ([]models.TopicChunk, string) {
	if len(chunks) == 0 {
		return nil, "the transcript produced no topic chunks"
	}

	byID := make(map[int]models.Sentence, len(sentences))
	for _, s := range sentences {
		byID[s.ID] = s
	}

	maxSpan := maxTimestampSpan(chunks, byID)

	dropped := map[models.ChunkClass]int{}
	belowThreshold := 0

	var kept []models.TopicChunk
	for i := range chunks {
		chunk := chunks[i]
		chunk.Classification = r.classify(&chunk, byID)
		if chunk.Classification.Dropped() {
			dropped[chunk.Classification]++
			continue
		}

		chunk.Importance = r.importance(&chunk, byID, i, len(chunks), maxSpan)
		if chunk.Importance < r.params.ImportanceThreshold {
			belowThreshold++
			continue
		}
		kept = append(kept, chunk)
	}

	if len(kept) > 0 {
		return kept, ""
	}
	return nil, fmt.Sprintf(
		"all %d topic chunks were eliminated: %d administrative, %d clarification-only Q&A, %d below importance threshold %.2f",
		len(chunks), dropped[models.ChunkAdministrative], dropped[models.ChunkQAClarification],
		belowThreshold, r.params.ImportanceThreshold)
}

// classify applies the first-match classification rules.
func (r *Ranker) classify(chunk *models.TopicChunk, byID map[int]models.Sentence) models.ChunkClass {
	if isAdministrative(chunk, byID) {
		return models.ChunkAdministrative
	}
	if chunk.QADensity >= r.params.QADensityThreshold && len(chunk.SentenceIDs) < qaClarificationMaxSentences {
		return models.ChunkQAClarification
	}
	if chunk.QADensity >= 0.25 && chunk.QADensity < r.params.QADensityThreshold {
		return models.ChunkQASubstantive
	}
	return models.ChunkInstructional
}

// isAdministrative reports whether every sentence is greeting/closing chatter
// and the chunk contains no action verbs.
func isAdministrative(chunk *models.TopicChunk, byID map[int]models.Sentence) bool {
	if validate.ContainsStrongVerb(chunk.Text) {
		return false
	}
	for _, id := range chunk.SentenceIDs {
		sent, ok := byID[id]
		if !ok {
			continue
		}
		lowered := strings.ToLower(sent.Text)
		administrative := false
		for _, token := range administrativeTokens {
			if strings.Contains(lowered, token) {
				administrative = true
				break
			}
		}
		if !administrative {
			return false
		}
	}
	return true
}

// importance computes the weighted importance score clipped to [0,1].
func (r *Ranker) importance(chunk *models.TopicChunk, byID map[int]models.Sentence, index, total int, maxSpan float64) float64 {
	duration := 0.0
	if maxSpan > 0 {
		duration = timestampSpan(chunk, byID) / maxSpan
	}

	var emphasisSum float64
	actionable := 0
	counted := 0
	for _, id := range chunk.SentenceIDs {
		sent, ok := byID[id]
		if !ok {
			continue
		}
		counted++
		emphasisSum += sent.EmphasisScore
		if validate.ContainsStrongVerb(sent.Text) {
			actionable++
		}
	}
	emphasis, actionability := 0.0, 0.0
	if counted > 0 {
		emphasis = emphasisSum / float64(counted)
		actionability = float64(actionable) / float64(counted)
	}

	position := 1.0
	if total > 1 {
		position = 1.0 - float64(index)/float64(total-1)
	}

	score := weightDuration*duration +
		weightEmphasis*emphasis +
		weightActionability*actionability +
		weightPosition*position +
		weightQAPenalty*(1.0-chunk.QADensity)

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// timestampSpan returns the seconds covered by a chunk's timestamped
// sentences, or 0 when fewer than two timestamps exist.
func timestampSpan(chunk *models.TopicChunk, byID map[int]models.Sentence) float64 {
	var first, last *float64
	for _, id := range chunk.SentenceIDs {
		sent, ok := byID[id]
		if !ok || sent.TimestampSeconds == nil {
			continue
		}
		if first == nil {
			first = sent.TimestampSeconds
		}
		last = sent.TimestampSeconds
	}
	if first == nil || last == nil || *last <= *first {
		return 0
	}
	return *last - *first
}

func maxTimestampSpan(chunks []models.TopicChunk, byID map[int]models.Sentence) float64 {
	max := 0.0
	for i := range chunks {
		if span := timestampSpan(&chunks[i], byID); span > max {
			max = span
		}
	}
	return max
}
