// Traindoc server: provides the HTTP job API, manages queue workers, and
// runs the transcript-to-training-document pipeline.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/traindoc-io/traindoc/pkg/api"
	"github.com/traindoc-io/traindoc/pkg/config"
	"github.com/traindoc-io/traindoc/pkg/database"
	"github.com/traindoc-io/traindoc/pkg/knowledge"
	"github.com/traindoc-io/traindoc/pkg/llm"
	"github.com/traindoc-io/traindoc/pkg/queue"
	"github.com/traindoc-io/traindoc/pkg/semantic"
	"github.com/traindoc-io/traindoc/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// resolvePodID determines the pod identifier for multi-replica coordination.
// Priority: POD_ID env > HOSTNAME env > "local"
func resolvePodID() string {
	if id := os.Getenv("POD_ID"); id != "" {
		return id
	}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		return hostname
	}
	return "local"
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	}

	podID := resolvePodID()
	slog.Info("Starting traindoc",
		"version", version.Full(),
		"pod_id", podID,
		"config_dir", *configDir)

	ctx := context.Background()

	// 1. Configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Database (runs embedded migrations)
	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbClient.Close()
	slog.Info("Connected to PostgreSQL database")

	store := database.NewJobStore(dbClient)

	// 3. LLM client
	apiKey := os.Getenv(cfg.LLM.APIKeyEnv)
	if apiKey == "" {
		slog.Error("LLM API key environment variable is empty", "env", cfg.LLM.APIKeyEnv)
		os.Exit(1)
	}
	llmOpts := []llm.OpenAIOption{llm.WithTimeout(cfg.Pipeline.LLMTimeout())}
	if cfg.LLM.BaseURL != "" {
		llmOpts = append(llmOpts, llm.WithBaseURL(cfg.LLM.BaseURL))
	}
	llmClient, err := llm.NewOpenAIClient(apiKey, cfg.LLM.Model, llmOpts...)
	if err != nil {
		slog.Error("Failed to initialize LLM client", "error", err)
		os.Exit(1)
	}
	slog.Info("LLM client initialized", "model", cfg.LLM.Model)

	// 4. Optional embedding client; the pipeline falls back to lexical
	// scoring when absent.
	var embedder semantic.Embedder
	if cfg.Embeddings.On() {
		embKey := os.Getenv(cfg.Embeddings.APIKeyEnv)
		if embKey == "" {
			slog.Warn("Embeddings enabled but API key env is empty, using lexical fallback",
				"env", cfg.Embeddings.APIKeyEnv)
		} else {
			embOpts := []semantic.EmbedderOption{}
			if cfg.Embeddings.BaseURL != "" {
				embOpts = append(embOpts, semantic.WithEmbedderBaseURL(cfg.Embeddings.BaseURL))
			}
			emb, err := semantic.NewOpenAIEmbedder(embKey, cfg.Embeddings.Model, embOpts...)
			if err != nil {
				slog.Error("Failed to initialize embedding client", "error", err)
				os.Exit(1)
			}
			embedder = emb
			slog.Info("Embedding client initialized", "model", cfg.Embeddings.Model)
		}
	}

	// 5. Knowledge cache
	var cache *knowledge.Cache
	if cfg.Pipeline.CacheOn() {
		cache = knowledge.NewCache(cfg.Pipeline.CacheDir, cfg.Pipeline.CacheTTL(), slog.Default())
	}

	// 6. Worker pool (before the HTTP server so recovery runs first)
	executor := queue.NewPipelineExecutor(cfg, store, llmClient, embedder, cache, slog.Default())
	pool := queue.NewWorkerPool(podID, store, &cfg.Queue, executor)
	if err := pool.Start(ctx); err != nil {
		slog.Error("Failed to start worker pool", "error", err)
		os.Exit(1)
	}

	// 7. HTTP server
	server := api.NewServer(cfg, store, pool, slog.Default())
	httpServer := server.HTTPServer()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	slog.Info("Traindoc started successfully",
		"pod_id", podID,
		"workers", cfg.Queue.WorkerCount)

	// 8. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 9. Graceful shutdown: drain workers first, then the HTTP server.
	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("Worker pool stopped gracefully")
	case <-time.After(2 * time.Minute):
		slog.Warn("Shutdown timeout exceeded, incomplete jobs will be requeued as stale")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
