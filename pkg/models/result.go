package models

import "time"

// TokenUsage aggregates token consumption across all LLM calls in a job.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates another usage sample into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// StageDuration records wall time spent in one pipeline stage.
// Kept as an ordered slice (not a map) so serialization is deterministic.
type StageDuration struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
}

// Statistics summarizes one pipeline run.
type Statistics struct {
	SentenceCount           int     `json:"sentence_count"`
	ChunkCount              int     `json:"chunk_count"`
	ChunksDropped           int     `json:"chunks_dropped"`
	GeneratedSteps          int     `json:"generated_steps"`
	GenerationFailures      int     `json:"generation_failures"`
	ParseFailures           int     `json:"parse_failures"`
	AcceptedSteps           int     `json:"accepted_steps"`
	RejectedSteps           int     `json:"rejected_steps"`
	AverageConfidence       float64 `json:"average_confidence"`
	HighConfidenceSteps     int     `json:"high_confidence_steps"`
	KnowledgeSourcesFetched int     `json:"knowledge_sources_fetched"`
	KnowledgeSourcesCited   int     `json:"knowledge_sources_cited"`
	KnowledgeUsageRate      float64 `json:"knowledge_usage_rate"`

	Tokens         TokenUsage      `json:"tokens"`
	StageDurations []StageDuration `json:"stage_durations"`
}

// PipelineResult is the final output of a successful pipeline run.
// Steps are the accepted steps in chunk order. Knowledge lists every
// fetched source, including the ones whose fetch failed.
type PipelineResult struct {
	Steps     []ValidatedStep   `json:"steps"`
	Stats     Statistics        `json:"statistics"`
	Knowledge []KnowledgeSource `json:"knowledge_sources"`
}
