// Package config loads and validates traindoc configuration.
//
// Configuration comes from a single traindoc.yaml file in the config
// directory. Environment variables are expanded with {{.VAR}} template
// syntax before parsing, user values are merged over built-in defaults,
// and the result is validated before use.
package config

import (
	"fmt"
	"time"
)

// TraindocYAMLConfig represents the complete traindoc.yaml file structure.
type TraindocYAMLConfig struct {
	Server     *ServerConfig     `yaml:"server"`
	Queue      *QueueConfig      `yaml:"queue"`
	LLM        *LLMConfig        `yaml:"llm"`
	Embeddings *EmbeddingsConfig `yaml:"embeddings"`
	Pipeline   *PipelineOptions  `yaml:"pipeline"`
}

// Config is the fully resolved, validated configuration.
type Config struct {
	Server     ServerConfig
	Queue      QueueConfig
	LLM        LLMConfig
	Embeddings EmbeddingsConfig
	Pipeline   PipelineOptions
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// MaxTranscriptBytes caps the size of an uploaded transcript.
	MaxTranscriptBytes int `yaml:"max_transcript_bytes,omitempty"`
}

// Addr returns the host:port listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// QueueConfig holds worker pool settings.
type QueueConfig struct {
	// WorkerCount is the number of polling workers per pod.
	WorkerCount int `yaml:"worker_count,omitempty"`

	// MaxConcurrentJobs is the global cap on running jobs across workers.
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs,omitempty"`

	// PollInterval is the base delay between queue polls.
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`

	// StaleJobThreshold is how long a running job may go without a progress
	// write before startup recovery re-queues it.
	StaleJobThreshold time.Duration `yaml:"stale_job_threshold,omitempty"`
}

// LLMConfig identifies the LLM collaborator. The pipeline treats the model
// as opaque; model identity lives here, never in pipeline code.
type LLMConfig struct {
	// BaseURL is an OpenAI-compatible endpoint. Empty means the default
	// OpenAI API endpoint.
	BaseURL string `yaml:"base_url,omitempty"`

	// Model is the model identifier sent with each request.
	Model string `yaml:"model,omitempty"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// EmbeddingsConfig identifies the optional embedding collaborator.
// When disabled or unavailable, the pipeline falls back to lexical scoring.
type EmbeddingsConfig struct {
	Enabled   *bool  `yaml:"enabled,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Model     string `yaml:"model,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// On reports whether the embedding backend should be initialized.
func (e *EmbeddingsConfig) On() bool {
	return e.Enabled == nil || *e.Enabled
}

// PipelineOptions is the closed set of recognized pipeline tuning options.
// Every option has a built-in default; YAML values and per-job API values
// override. Unknown options are rejected by the API layer.
type PipelineOptions struct {
	Tone     string `yaml:"tone,omitempty" json:"tone,omitempty"`
	Audience string `yaml:"audience,omitempty" json:"audience,omitempty"`

	MinSteps    int `yaml:"min_steps,omitempty" json:"min_steps,omitempty"`
	TargetSteps int `yaml:"target_steps,omitempty" json:"target_steps,omitempty"`
	MaxSteps    int `yaml:"max_steps,omitempty" json:"max_steps,omitempty"`

	MinConfidenceThreshold float64 `yaml:"min_confidence_threshold,omitempty" json:"min_confidence_threshold,omitempty"`
	ImportanceThreshold    float64 `yaml:"importance_threshold,omitempty" json:"importance_threshold,omitempty"`
	QADensityThreshold     float64 `yaml:"qa_density_threshold,omitempty" json:"qa_density_threshold,omitempty"`

	MinActions      int `yaml:"min_actions,omitempty" json:"min_actions,omitempty"`
	MaxActions      int `yaml:"max_actions,omitempty" json:"max_actions,omitempty"`
	MinContentWords int `yaml:"min_content_words,omitempty" json:"min_content_words,omitempty"`

	MaxContentLengthPerSource int `yaml:"max_content_length_per_source,omitempty" json:"max_content_length_per_source,omitempty"`

	EmbeddingEnabled    *bool   `yaml:"embedding_enabled,omitempty" json:"embedding_enabled,omitempty"`
	SemanticMatchWeight float64 `yaml:"semantic_match_weight,omitempty" json:"semantic_match_weight,omitempty"`
	WordMatchWeight     float64 `yaml:"word_match_weight,omitempty" json:"word_match_weight,omitempty"`

	LLMTimeoutSeconds int `yaml:"llm_timeout_seconds,omitempty" json:"llm_timeout_seconds,omitempty"`
	URLTimeoutSeconds int `yaml:"url_timeout_seconds,omitempty" json:"url_timeout_seconds,omitempty"`
	JobTimeoutSeconds int `yaml:"job_timeout_seconds,omitempty" json:"job_timeout_seconds,omitempty"`

	MaxConcurrentGenerations int `yaml:"max_concurrent_generations,omitempty" json:"max_concurrent_generations,omitempty"`
	MaxConcurrentFetches     int `yaml:"max_concurrent_fetches,omitempty" json:"max_concurrent_fetches,omitempty"`

	CacheDir        string `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds,omitempty" json:"cache_ttl_seconds,omitempty"`
	CacheEnabled    *bool  `yaml:"cache_enabled,omitempty" json:"cache_enabled,omitempty"`
}

// EmbeddingOn reports whether embedding-based scoring is requested.
func (o *PipelineOptions) EmbeddingOn() bool {
	return o.EmbeddingEnabled == nil || *o.EmbeddingEnabled
}

// CacheOn reports whether the knowledge cache is enabled.
func (o *PipelineOptions) CacheOn() bool {
	return o.CacheEnabled == nil || *o.CacheEnabled
}

// LLMTimeout returns the per-LLM-call timeout as a duration.
func (o *PipelineOptions) LLMTimeout() time.Duration {
	return time.Duration(o.LLMTimeoutSeconds) * time.Second
}

// URLTimeout returns the per-URL fetch timeout as a duration.
func (o *PipelineOptions) URLTimeout() time.Duration {
	return time.Duration(o.URLTimeoutSeconds) * time.Second
}

// JobTimeout returns the whole-job soft timeout as a duration.
func (o *PipelineOptions) JobTimeout() time.Duration {
	return time.Duration(o.JobTimeoutSeconds) * time.Second
}

// CacheTTL returns the knowledge cache TTL as a duration.
func (o *PipelineOptions) CacheTTL() time.Duration {
	return time.Duration(o.CacheTTLSeconds) * time.Second
}
