package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))
	return dir
}

func TestInitialize_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Queue.WorkerCount)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 8, cfg.Pipeline.TargetSteps)
	assert.Equal(t, 600, cfg.Pipeline.JobTimeoutSeconds)
}

func TestInitialize_UserValuesOverrideDefaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: 9090
queue:
  worker_count: 3
  max_concurrent_jobs: 6
llm:
  model: custom-model
pipeline:
  target_steps: 10
  max_steps: 20
`)
	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Queue.WorkerCount)
	assert.Equal(t, "custom-model", cfg.LLM.Model)
	assert.Equal(t, 10, cfg.Pipeline.TargetSteps)
	// Untouched values keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 3, cfg.Pipeline.MinSteps)
}

func TestInitialize_EnvExpansion(t *testing.T) {
	t.Setenv("TRAINDOC_TEST_MODEL", "env-model")
	dir := writeConfig(t, `
llm:
  model: "{{.TRAINDOC_TEST_MODEL}}"
`)
	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.LLM.Model)
}

func TestInitialize_InvalidYAML(t *testing.T) {
	dir := writeConfig(t, "server: [not a map")
	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestInitialize_ValidationFailure(t *testing.T) {
	dir := writeConfig(t, `
pipeline:
  min_steps: 40
  target_steps: 5
`)
	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestMergeJobOptions_OverridesWin(t *testing.T) {
	cfg := &Config{Pipeline: *DefaultPipelineOptions()}

	merged, err := cfg.MergeJobOptions(&PipelineOptions{
		TargetSteps:            12,
		MinConfidenceThreshold: 0.6,
	})
	require.NoError(t, err)

	assert.Equal(t, 12, merged.TargetSteps)
	assert.InDelta(t, 0.6, merged.MinConfidenceThreshold, 1e-9)
	// Base config is untouched.
	assert.Equal(t, 8, cfg.Pipeline.TargetSteps)
	// Unset override fields keep the configured defaults.
	assert.Equal(t, 3, merged.MinActions)
}

func TestMergeJobOptions_NilOverrides(t *testing.T) {
	cfg := &Config{Pipeline: *DefaultPipelineOptions()}
	merged, err := cfg.MergeJobOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.Pipeline, *merged)
}

func TestMergeJobOptions_InvalidResultRejected(t *testing.T) {
	cfg := &Config{Pipeline: *DefaultPipelineOptions()}
	_, err := cfg.MergeJobOptions(&PipelineOptions{MinConfidenceThreshold: 1.5})
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPipelineOptions_Durations(t *testing.T) {
	o := &PipelineOptions{
		LLMTimeoutSeconds: 60,
		URLTimeoutSeconds: 30,
		JobTimeoutSeconds: 600,
		CacheTTLSeconds:   86_400,
	}
	assert.Equal(t, time.Minute, o.LLMTimeout())
	assert.Equal(t, 30*time.Second, o.URLTimeout())
	assert.Equal(t, 10*time.Minute, o.JobTimeout())
	assert.Equal(t, 24*time.Hour, o.CacheTTL())
}

func TestEmbeddingToggles(t *testing.T) {
	o := &PipelineOptions{}
	assert.True(t, o.EmbeddingOn(), "unset means enabled")
	assert.True(t, o.CacheOn())

	off := false
	o.EmbeddingEnabled = &off
	o.CacheEnabled = &off
	assert.False(t, o.EmbeddingOn())
	assert.False(t, o.CacheOn())
}

func TestServerConfig_Addr(t *testing.T) {
	s := &ServerConfig{Host: "127.0.0.1", Port: 9999}
	assert.Equal(t, "127.0.0.1:9999", s.Addr())
}
