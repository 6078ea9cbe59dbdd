package models

import "time"

// MediaType classifies how a knowledge source's content was extracted.
type MediaType string

const (
	// MediaTypeWeb is HTML content reduced to its main text.
	MediaTypeWeb MediaType = "web"
	// MediaTypePDF is text extracted from a PDF document.
	MediaTypePDF MediaType = "pdf"
	// MediaTypeText is content treated as plain text.
	MediaTypeText MediaType = "text"
)

// KnowledgeSource is the fetched content of one knowledge URL.
// A failed fetch is not fatal: Error is set, Content is empty, and the
// source is carried through to the result for reporting.
type KnowledgeSource struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	MediaType MediaType `json:"media_type"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Failed reports whether the fetch for this source failed.
func (k *KnowledgeSource) Failed() bool {
	return k.Error != ""
}

// Excerpt is a short, word-aligned slice of a knowledge source used as
// retrieval context. Excerpts are materialized on demand during semantic
// search and never persisted.
type Excerpt struct {
	SourceURL   string `json:"source_url"`
	SourceTitle string `json:"source_title"`
	Text        string `json:"text"`
	Offset      int    `json:"offset"`
}

// ScoredExcerpt pairs an excerpt with its relevance to a chunk.
type ScoredExcerpt struct {
	Excerpt Excerpt `json:"excerpt"`
	Score   float64 `json:"score"`
}
