package api

import "encoding/json"

// SubmitJobRequest is the POST /api/v1/jobs body.
type SubmitJobRequest struct {
	Transcript    string          `json:"transcript"`
	KnowledgeURLs []string        `json:"knowledge_urls,omitempty"`
	Options       json.RawMessage `json:"options,omitempty"`
}
