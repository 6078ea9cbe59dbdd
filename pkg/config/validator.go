package config

import (
	"fmt"
	"math"
)

// validate checks the fully resolved configuration for internal consistency.
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return NewValidationError("server", "port",
			fmt.Errorf("%w: must be in (0, 65535], got %d", ErrInvalidValue, cfg.Server.Port))
	}
	if cfg.Server.MaxTranscriptBytes <= 0 {
		return NewValidationError("server", "max_transcript_bytes",
			fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	if cfg.Queue.WorkerCount < 1 {
		return NewValidationError("queue", "worker_count",
			fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if cfg.Queue.MaxConcurrentJobs < cfg.Queue.WorkerCount {
		return NewValidationError("queue", "max_concurrent_jobs",
			fmt.Errorf("%w: must be >= worker_count", ErrInvalidValue))
	}

	if cfg.LLM.Model == "" {
		return NewValidationError("llm", "model", ErrMissingRequiredField)
	}
	if cfg.LLM.APIKeyEnv == "" {
		return NewValidationError("llm", "api_key_env", ErrMissingRequiredField)
	}

	return validatePipelineOptions(&cfg.Pipeline)
}

// validatePipelineOptions enforces the documented constraints on the
// pipeline option set. Also applied to merged per-job options.
func validatePipelineOptions(o *PipelineOptions) error {
	if o.MinSteps < 3 || o.MinSteps > o.TargetSteps || o.TargetSteps > o.MaxSteps || o.MaxSteps > 50 {
		return NewValidationError("pipeline", "steps",
			fmt.Errorf("%w: require 3 <= min_steps <= target_steps <= max_steps <= 50 (got %d/%d/%d)",
				ErrInvalidValue, o.MinSteps, o.TargetSteps, o.MaxSteps))
	}

	for _, check := range []struct {
		name  string
		value float64
	}{
		{"min_confidence_threshold", o.MinConfidenceThreshold},
		{"importance_threshold", o.ImportanceThreshold},
		{"qa_density_threshold", o.QADensityThreshold},
	} {
		if check.value < 0 || check.value > 1 {
			return NewValidationError("pipeline", check.name,
				fmt.Errorf("%w: must be in [0, 1], got %v", ErrInvalidValue, check.value))
		}
	}

	if o.MinActions < 1 || o.MinActions > o.MaxActions {
		return NewValidationError("pipeline", "actions",
			fmt.Errorf("%w: require 1 <= min_actions <= max_actions (got %d/%d)",
				ErrInvalidValue, o.MinActions, o.MaxActions))
	}
	if o.MinContentWords < 1 {
		return NewValidationError("pipeline", "min_content_words",
			fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if o.MaxContentLengthPerSource < 1 {
		return NewValidationError("pipeline", "max_content_length_per_source",
			fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	if sum := o.SemanticMatchWeight + o.WordMatchWeight; math.Abs(sum-1.0) > 1e-9 {
		return NewValidationError("pipeline", "match_weights",
			fmt.Errorf("%w: semantic_match_weight + word_match_weight must sum to 1.0, got %v", ErrInvalidValue, sum))
	}

	for _, check := range []struct {
		name  string
		value int
	}{
		{"llm_timeout_seconds", o.LLMTimeoutSeconds},
		{"url_timeout_seconds", o.URLTimeoutSeconds},
		{"job_timeout_seconds", o.JobTimeoutSeconds},
		{"max_concurrent_generations", o.MaxConcurrentGenerations},
		{"max_concurrent_fetches", o.MaxConcurrentFetches},
		{"cache_ttl_seconds", o.CacheTTLSeconds},
	} {
		if check.value < 1 {
			return NewValidationError("pipeline", check.name,
				fmt.Errorf("%w: must be positive, got %d", ErrInvalidValue, check.value))
		}
	}

	return nil
}
