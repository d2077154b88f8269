// Package main provides the studymate CLI for managing the document index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/studymate-server/internal/chunker"
	"github.com/bull/studymate-server/internal/config"
	"github.com/bull/studymate-server/internal/embedding"
	"github.com/bull/studymate-server/internal/extractor"
	"github.com/bull/studymate-server/internal/ingest"
	"github.com/bull/studymate-server/internal/retrieval"
	"github.com/bull/studymate-server/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "studymate",
	Short: "StudyMate document index management tool",
	Long:  "CLI tool for ingesting, searching, and managing study documents in Qdrant",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pdf> [file.pdf...]",
	Short: "Ingest PDF files into the document index",
	Long: `Extracts text, chunks it, generates embeddings, and stores the
result in Qdrant.

Environment variables:
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings (required)`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed documents semantically",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all indexed documents",
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document and its chunks from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var (
	searchLimit int
	searchDocs  []string
)

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 5, "maximum number of results")
	searchCmd.Flags().StringSliceVar(&searchDocs, "document", nil, "restrict search to document IDs")
	rootCmd.AddCommand(ingestCmd, searchCmd, listCmd, deleteCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func connect(cfg *config.Config) (*storage.QdrantStore, error) {
	fmt.Printf("Connecting to Qdrant at %s:%d...\n", cfg.QdrantHost, cfg.QdrantPort)
	store, err := storage.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, cfg.EmbeddingDimension)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	if err := store.EnsureCollection(context.Background()); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}
	return store, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.FromEnv()
	start := time.Now()

	store, err := connect(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, 0)
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}

	pipeline := ingest.NewPipeline(
		extractor.NewPDFExtractor(),
		chunker.New(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		store,
		store,
		slog.Default(),
	)

	failed := 0
	for _, path := range args {
		fileBytes, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("  - %s: %v\n", path, err)
			failed++
			continue
		}
		result, err := pipeline.Ingest(ctx, fileBytes, filepath.Base(path))
		if err != nil {
			fmt.Printf("  - %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("  + %s: %d pages, %d chunks, %d characters (%s)\n",
			result.Document.DisplayName,
			result.Document.PageCount,
			result.Document.TotalChunks,
			result.TotalCharacters,
			result.Duration.Round(time.Millisecond))
	}

	fmt.Println()
	fmt.Printf("Ingested %d/%d files in %s\n", len(args)-failed, len(args), time.Since(start).Round(time.Second))
	if failed > 0 {
		return fmt.Errorf("%d files failed", failed)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.FromEnv()

	store, err := connect(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, 0)
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}

	retriever := retrieval.NewRetriever(embedder, store, store, slog.Default())
	results, err := retriever.Retrieve(ctx, args[0], searchLimit, searchDocs)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No matching passages found.")
		return nil
	}
	for i, sc := range results {
		fmt.Printf("%d. [%.3f] doc=%s page=%d\n", i+1, sc.Score, sc.Chunk.DocumentID, sc.Chunk.PageNumber)
		fmt.Printf("   %s\n\n", sc.Chunk.Content)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.FromEnv()

	store, err := connect(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if len(docs) == 0 {
		fmt.Println("No documents indexed.")
		return nil
	}
	for _, doc := range docs {
		fmt.Printf("%s  %-30s  pages=%d chunks=%d status=%s uploaded=%s\n",
			doc.ID, doc.DisplayName, doc.PageCount, doc.TotalChunks, doc.Status,
			doc.UploadTime.Format("2006-01-02 15:04"))
	}
	fmt.Printf("\n%d documents\n", len(docs))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.FromEnv()

	store, err := connect(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteDocument(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	fmt.Printf("Deleted document %s\n", args[0])
	return nil
}
