package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the expected configuration file inside the config dir.
const ConfigFileName = "traindoc.yaml"

// Initialize loads, merges, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load traindoc.yaml from configDir (missing file = all defaults)
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge user values over built-in defaults
//  5. Validate the resolved configuration
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	raw, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg, err := resolve(raw)
	if err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	log.Info("Configuration initialized successfully",
		"llm_model", cfg.LLM.Model,
		"embeddings_enabled", cfg.Embeddings.On(),
		"workers", cfg.Queue.WorkerCount)

	return cfg, nil
}

// load reads and parses traindoc.yaml. A missing file is not an error:
// the service runs on built-in defaults plus environment variables.
func load(_ context.Context, configDir string) (*TraindocYAMLConfig, error) {
	path := filepath.Join(configDir, ConfigFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No configuration file found, using built-in defaults", "path", path)
			return &TraindocYAMLConfig{}, nil
		}
		return nil, &LoadError{File: path, Err: err}
	}

	expanded := ExpandEnv(data)

	var raw TraindocYAMLConfig
	if err := yaml.Unmarshal(expanded, &raw); err != nil {
		return nil, &LoadError{File: path, Err: fmt.Errorf("%w: %w", ErrInvalidYAML, err)}
	}
	return &raw, nil
}

// resolve merges user-provided values over the built-in defaults.
// Non-zero user values win; everything else keeps its default.
func resolve(raw *TraindocYAMLConfig) (*Config, error) {
	server := DefaultServerConfig()
	if raw.Server != nil {
		if err := mergo.Merge(server, raw.Server, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge server config: %w", err)
		}
	}

	queue := DefaultQueueConfig()
	if raw.Queue != nil {
		if err := mergo.Merge(queue, raw.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	llm := DefaultLLMConfig()
	if raw.LLM != nil {
		if err := mergo.Merge(llm, raw.LLM, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge llm config: %w", err)
		}
	}

	embeddings := DefaultEmbeddingsConfig()
	if raw.Embeddings != nil {
		if err := mergo.Merge(embeddings, raw.Embeddings, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge embeddings config: %w", err)
		}
	}

	pipeline := DefaultPipelineOptions()
	if raw.Pipeline != nil {
		if err := mergo.Merge(pipeline, raw.Pipeline, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge pipeline options: %w", err)
		}
	}

	return &Config{
		Server:     *server,
		Queue:      *queue,
		LLM:        *llm,
		Embeddings: *embeddings,
		Pipeline:   *pipeline,
	}, nil
}

// MergeJobOptions overlays per-job option overrides onto the configured
// pipeline defaults and validates the result. The base config is not
// modified; callers get an independent copy per job.
func (c *Config) MergeJobOptions(overrides *PipelineOptions) (*PipelineOptions, error) {
	merged := c.Pipeline // copy
	if overrides != nil {
		if err := mergo.Merge(&merged, overrides, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge job options: %w", err)
		}
	}
	if err := validatePipelineOptions(&merged); err != nil {
		return nil, err
	}
	return &merged, nil
}
