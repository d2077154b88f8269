// Package config gathers server configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the StudyMate backend.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// StorageBackend selects the document/chunk store: "memory" (default)
	// or "qdrant".
	StorageBackend string
	QdrantHost     string
	QdrantPort     int

	// OpenAIAPIKey enables the OpenAI embedding provider and completion backend.
	OpenAIAPIKey string
	// DeepSeekAPIKey enables the DeepSeek completion backend.
	DeepSeekAPIKey string
	DeepSeekAPIURL string
	// HuggingFaceAPIKey enables the Hugging Face completion backend.
	HuggingFaceAPIKey string
	HuggingFaceAPIURL string
	// VLLMBaseURL enables a self-hosted vLLM completion backend.
	VLLMBaseURL string
	VLLMModel   string

	// EmbeddingDimension is the vector size produced by the embedding model.
	EmbeddingDimension int

	// ChunkSize and ChunkOverlap control ingestion chunking (characters).
	ChunkSize    int
	ChunkOverlap int

	// RetrievalTopK is the default number of chunks retrieved per chat query.
	RetrievalTopK int

	// ProviderTimeout bounds each individual completion backend attempt.
	ProviderTimeout time.Duration

	// MCPStdio additionally serves the MCP tools over stdin/stdout for
	// local clients; the HTTP server keeps running in the background.
	MCPStdio bool
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		StorageBackend:     getEnv("STORAGE_BACKEND", "memory"),
		QdrantHost:         getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:         getEnvInt("QDRANT_PORT", 6334),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		DeepSeekAPIKey:     os.Getenv("DEEPSEEK_API_KEY"),
		DeepSeekAPIURL:     getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
		HuggingFaceAPIKey:  os.Getenv("HUGGINGFACE_API_KEY"),
		HuggingFaceAPIURL:  getEnv("HUGGINGFACE_API_URL", "https://api-inference.huggingface.co/models/ibm-granite/granite-3.3-2b-instruct"),
		VLLMBaseURL:        os.Getenv("VLLM_BASE_URL"),
		VLLMModel:          os.Getenv("VLLM_MODEL"),
		EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", 1536),
		ChunkSize:          getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap:       getEnvInt("CHUNK_OVERLAP", 100),
		RetrievalTopK:      getEnvInt("RETRIEVAL_TOP_K", 3),
		ProviderTimeout:    time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 30)) * time.Second,
		MCPStdio:           getEnv("MCP_STDIO", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
