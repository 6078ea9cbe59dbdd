// Package semantic provides embedding-backed and lexical similarity scoring,
// plus the excerpt selector that retrieves knowledge context for a chunk.
//
// The embedding backend is optional. Every caller in the pipeline accepts a
// nil Embedder and falls back to deterministic lexical scoring, so a missing
// or failing backend degrades quality but never availability.
package semantic

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder computes dense vectors for texts. Implementations must return one
// vector per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// OpenAIEmbedder implements Embedder using an OpenAI-compatible API.
type OpenAIEmbedder struct {
	client oai.Client
	model  string
}

// EmbedderOption is a functional option for OpenAIEmbedder.
type EmbedderOption func(*embedderConfig)

type embedderConfig struct {
	baseURL string
	timeout time.Duration
}

// WithEmbedderBaseURL overrides the default API base URL.
func WithEmbedderBaseURL(url string) EmbedderOption {
	return func(c *embedderConfig) {
		c.baseURL = url
	}
}

// WithEmbedderTimeout sets a per-request HTTP timeout.
func WithEmbedderTimeout(d time.Duration) EmbedderOption {
	return func(c *embedderConfig) {
		c.timeout = d
	}
}

// NewOpenAIEmbedder constructs an embedder backed by the OpenAI API.
func NewOpenAIEmbedder(apiKey, model string, opts ...EmbedderOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("semantic: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("semantic: model must not be empty")
	}

	cfg := &embedderConfig{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &OpenAIEmbedder{
		client: oai.NewClient(reqOpts...),
		model:  model,
	}, nil
}

// Embed implements Embedder. All texts go in one batch request.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: e.model,
		Input: oai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: embeddings request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("semantic: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float64, len(texts))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(texts) {
			return nil, fmt.Errorf("semantic: embedding index %d out of range", idx)
		}
		vectors[idx] = item.Embedding
	}
	return vectors, nil
}
