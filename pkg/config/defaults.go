package config

import "time"

// DefaultServerConfig returns built-in HTTP server defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:               "0.0.0.0",
		Port:               8080,
		MaxTranscriptBytes: 8 << 20, // 8 MiB
	}
}

// DefaultQueueConfig returns built-in worker queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:       2,
		MaxConcurrentJobs: 4,
		PollInterval:      2 * time.Second,
		StaleJobThreshold: 15 * time.Minute,
	}
}

// DefaultLLMConfig returns built-in LLM collaborator defaults.
func DefaultLLMConfig() *LLMConfig {
	return &LLMConfig{
		Model:     "gpt-4o-mini",
		APIKeyEnv: "OPENAI_API_KEY",
	}
}

// DefaultEmbeddingsConfig returns built-in embedding collaborator defaults.
func DefaultEmbeddingsConfig() *EmbeddingsConfig {
	return &EmbeddingsConfig{
		Model:     "text-embedding-3-small",
		APIKeyEnv: "OPENAI_API_KEY",
	}
}

// DefaultPipelineOptions returns the built-in pipeline tuning defaults.
func DefaultPipelineOptions() *PipelineOptions {
	return &PipelineOptions{
		Tone:     "Professional",
		Audience: "Technical Users",

		MinSteps:    3,
		TargetSteps: 8,
		MaxSteps:    15,

		MinConfidenceThreshold: 0.40,
		ImportanceThreshold:    0.15,
		QADensityThreshold:     0.50,

		MinActions:      3,
		MaxActions:      6,
		MinContentWords: 50,

		MaxContentLengthPerSource: 100_000,

		SemanticMatchWeight: 0.5,
		WordMatchWeight:     0.5,

		LLMTimeoutSeconds: 60,
		URLTimeoutSeconds: 30,
		JobTimeoutSeconds: 600,

		MaxConcurrentGenerations: 4,
		MaxConcurrentFetches:     8,

		CacheDir:        "/var/cache/traindoc/knowledge",
		CacheTTLSeconds: 86_400,
	}
}
