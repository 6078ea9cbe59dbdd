// Package llm abstracts the completion backend used for step generation.
// The pipeline treats the model as a pure function from prompt to text.
package llm

import "context"

// Request is one completion request.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Response carries the completion text and token accounting.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Client is the completion backend interface.
type Client interface {
	// Generate performs one synchronous completion. Implementations must
	// honor ctx cancellation and deadlines.
	Generate(ctx context.Context, req Request) (*Response, error)
}
