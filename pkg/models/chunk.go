package models

// ChunkClass classifies what kind of content a topic chunk holds.
// Only instructional and substantive Q&A chunks survive ranking.
type ChunkClass string

const (
	// ChunkInstructional is teaching content, the primary step material.
	ChunkInstructional ChunkClass = "instructional"
	// ChunkQASubstantive is question-driven content with enough depth to keep.
	ChunkQASubstantive ChunkClass = "qa_substantive"
	// ChunkQAClarification is short back-and-forth clarification; dropped.
	ChunkQAClarification ChunkClass = "qa_clarification"
	// ChunkAdministrative is greetings, closings and logistics; dropped.
	ChunkAdministrative ChunkClass = "administrative"
)

// IsValid checks if the classification is one of the known values.
func (c ChunkClass) IsValid() bool {
	switch c {
	case ChunkInstructional, ChunkQASubstantive, ChunkQAClarification, ChunkAdministrative:
		return true
	default:
		return false
	}
}

// Dropped reports whether chunks of this class are removed before generation.
func (c ChunkClass) Dropped() bool {
	return c == ChunkQAClarification || c == ChunkAdministrative
}

// TopicChunk is a contiguous run of sentences forming one coherent topic.
// It is the unit of step generation. SentenceIDs are ordered and contiguous.
// Importance and Classification are zero until the ranker sets them.
type TopicChunk struct {
	ID             int        `json:"id"`
	SentenceIDs    []int      `json:"sentence_ids"`
	Text           string     `json:"text"`
	QADensity      float64    `json:"qa_density"`
	Importance     float64    `json:"importance"`
	Classification ChunkClass `json:"classification,omitempty"`
}
