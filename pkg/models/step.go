package models

// StepDraft is the parsed output of one LLM generation for one chunk.
// Immutable once produced.
type StepDraft struct {
	ChunkID  int      `json:"chunk_id"`
	Title    string   `json:"title"`
	Overview string   `json:"overview"`
	Content  string   `json:"content"`
	Actions  []string `json:"actions"`
}

// SourceKind distinguishes where a source reference points.
type SourceKind string

const (
	// SourceTranscript references a transcript sentence by ID.
	SourceTranscript SourceKind = "transcript"
	// SourceKnowledge references a fetched knowledge source by URL.
	SourceKnowledge SourceKind = "knowledge"
)

// SourceRef ties a generated step back to one piece of evidence.
// SentenceID is meaningful only for transcript refs, URL only for
// knowledge refs. Targets are identified by ID/URL, never by pointer.
type SourceRef struct {
	Kind        SourceKind `json:"kind"`
	ExcerptText string     `json:"excerpt_text"`
	SentenceID  int        `json:"sentence_id,omitempty"`
	URL         string     `json:"url,omitempty"`
	MatchScore  float64    `json:"match_score"`
}

// QualityLevel buckets a step's confidence for display.
type QualityLevel string

const (
	QualityVeryLow  QualityLevel = "very_low"
	QualityLow      QualityLevel = "low"
	QualityMedium   QualityLevel = "medium"
	QualityHigh     QualityLevel = "high"
	QualityVeryHigh QualityLevel = "very_high"
)

// QualityFromConfidence maps a final confidence value to its quality level.
// The mapping is monotone: higher confidence never yields a lower level.
func QualityFromConfidence(confidence float64) QualityLevel {
	switch {
	case confidence >= 0.75:
		return QualityVeryHigh
	case confidence >= 0.55:
		return QualityHigh
	case confidence >= 0.35:
		return QualityMedium
	case confidence >= 0.20:
		return QualityLow
	default:
		return QualityVeryLow
	}
}

// ValidatedStep is a draft after grounding and quality gating.
type ValidatedStep struct {
	Draft            StepDraft    `json:"draft"`
	Sources          []SourceRef  `json:"sources"`
	Confidence       float64      `json:"confidence"`
	Quality          QualityLevel `json:"quality_level"`
	Accepted         bool         `json:"accepted"`
	RejectionReasons []string     `json:"rejection_reasons,omitempty"`
	Warnings         []string     `json:"warnings,omitempty"`
}
