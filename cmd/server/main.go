// Package main provides the StudyMate backend server entry point.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/studymate-server/internal/chunker"
	"github.com/bull/studymate-server/internal/config"
	"github.com/bull/studymate-server/internal/embedding"
	"github.com/bull/studymate-server/internal/extractor"
	"github.com/bull/studymate-server/internal/index"
	"github.com/bull/studymate-server/internal/ingest"
	mcpserver "github.com/bull/studymate-server/internal/mcp"
	"github.com/bull/studymate-server/internal/provider"
	"github.com/bull/studymate-server/internal/retrieval"
	"github.com/bull/studymate-server/internal/server"
	"github.com/bull/studymate-server/internal/service"
	"github.com/bull/studymate-server/internal/storage"
)

func main() {
	// Load .env if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded configuration from .env")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg := config.FromEnv()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	embedder, err := embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, 0)
	if err != nil {
		return err
	}

	// Storage selects the searcher and indexer with it: the in-memory
	// store pairs with the brute-force index, Qdrant serves both roles.
	var (
		store      storage.Store
		searcher   retrieval.Searcher
		indexer    ingest.Indexer
		health     server.HealthChecker
		memoryIdx  *index.Index
		qdrantStor *storage.QdrantStore
	)
	switch cfg.StorageBackend {
	case "qdrant":
		qdrantStor, err = storage.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, cfg.EmbeddingDimension)
		if err != nil {
			return err
		}
		defer qdrantStor.Close()
		if err := qdrantStor.EnsureCollection(ctx); err != nil {
			return err
		}
		store, searcher, indexer, health = qdrantStor, qdrantStor, qdrantStor, qdrantStor
		logger.Info("using qdrant storage", "host", cfg.QdrantHost, "port", cfg.QdrantPort)
	case "memory":
		memStore := storage.NewMemoryStore()
		memoryIdx = index.New(cfg.EmbeddingDimension)
		store, searcher, indexer = memStore, memoryIdx, memoryIdx
		logger.Info("using in-memory storage")
	default:
		return errors.New("unknown STORAGE_BACKEND: " + cfg.StorageBackend)
	}

	backends := buildBackends(cfg)
	if len(backends) == 0 {
		logger.Warn("no completion backends configured, all chat responses will be degraded")
	}
	router := provider.NewRouter(backends, cfg.ProviderTimeout, logger)

	pdfExtractor := extractor.NewPDFExtractor()
	pipeline := ingest.NewPipeline(
		pdfExtractor,
		chunker.New(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		store,
		indexer,
		logger,
	)
	retriever := retrieval.NewRetriever(embedder, searcher, store, logger)
	svc := service.New(pipeline, retriever, router, pdfExtractor, store, indexer, cfg.RetrievalTopK, logger)

	// Qdrant persists chunks across restarts; memory does not, but a
	// rebuild is still harmless there.
	if n, err := svc.RebuildIndex(ctx); err != nil {
		logger.Warn("index rebuild failed", "error", err)
	} else if n > 0 {
		logger.Info("index rebuilt", "chunks", n)
	}

	mux := http.NewServeMux()
	api := server.New(svc, health, logger)
	api.Routes(mux)
	mcpSrv := mcpserver.NewServer(svc)
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(mcpSrv, nil))

	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           server.WithCORS(server.WithRequestLogging(logger, mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", httpServer.Addr, "backends", router.BackendNames())
		errCh <- httpServer.ListenAndServe()
	}()

	// Stdio mode serves the MCP tools to a local client over stdin/stdout
	// while the HTTP API stays up in the background.
	if cfg.MCPStdio {
		go func() {
			logger.Info("serving MCP over stdio")
			if err := mcpSrv.Run(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// buildBackends assembles the completion backends in priority order,
// including only those with credentials configured.
func buildBackends(cfg *config.Config) []provider.Backend {
	var backends []provider.Backend
	if cfg.DeepSeekAPIKey != "" {
		backends = append(backends, provider.NewDeepSeekBackend(cfg.DeepSeekAPIKey, cfg.DeepSeekAPIURL))
	}
	if cfg.OpenAIAPIKey != "" {
		backends = append(backends, provider.NewOpenAIBackend(cfg.OpenAIAPIKey, ""))
	}
	if cfg.HuggingFaceAPIKey != "" {
		backends = append(backends, provider.NewHuggingFaceBackend(cfg.HuggingFaceAPIKey, cfg.HuggingFaceAPIURL))
	}
	if cfg.VLLMBaseURL != "" {
		backends = append(backends, provider.NewVLLMBackend(cfg.VLLMBaseURL, cfg.VLLMModel))
	}
	return backends
}
