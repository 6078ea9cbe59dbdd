// Package models defines the domain entities shared across the pipeline
// stages and the persistence/API layers. All entities are owned by a single
// pipeline invocation; external layers only see serialized copies.
package models

// SpeakerRole identifies who spoke a sentence.
type SpeakerRole string

const (
	// SpeakerInstructor marks sentences spoken by the session leader.
	SpeakerInstructor SpeakerRole = "instructor"
	// SpeakerParticipant marks sentences spoken by attendees.
	SpeakerParticipant SpeakerRole = "participant"
	// SpeakerUnknown marks sentences with no recognizable speaker prefix.
	SpeakerUnknown SpeakerRole = "unknown"
)

// IsValid checks if the speaker role is one of the known values.
func (r SpeakerRole) IsValid() bool {
	switch r {
	case SpeakerInstructor, SpeakerParticipant, SpeakerUnknown:
		return true
	default:
		return false
	}
}

// Sentence is one normalized transcript sentence with derived metadata.
// Sentences are immutable after normalization; IDs are dense and sequential
// starting at 0.
type Sentence struct {
	ID               int         `json:"id"`
	Text             string      `json:"text"`
	TimestampSeconds *float64    `json:"timestamp_seconds,omitempty"`
	Speaker          SpeakerRole `json:"speaker_role"`
	IsQuestion       bool        `json:"is_question"`
	IsTransition     bool        `json:"is_transition"`
	EmphasisScore    float64     `json:"emphasis_score"`
}
