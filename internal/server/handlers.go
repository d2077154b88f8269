package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bull/studymate-server/internal/extractor"
	"github.com/bull/studymate-server/internal/provider"
	"github.com/bull/studymate-server/internal/service"
	"github.com/bull/studymate-server/internal/storage"
)

// maxUploadBytes caps PDF uploads at 50 MB.
const maxUploadBytes = 50 << 20

type uploadResponse struct {
	Success    bool        `json:"success"`
	DocumentID string      `json:"document_id"`
	Filename   string      `json:"filename"`
	Stats      uploadStats `json:"stats"`
}

type uploadStats struct {
	TotalPages      int `json:"total_pages"`
	TotalCharacters int `json:"total_characters"`
	ChunksCreated   int `json:"chunks_created"`
}

func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request) {
	fileBytes, filename, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	result, err := s.service.Ingest(r.Context(), fileBytes, filename)
	if err != nil {
		var extractionErr *extractor.ExtractionError
		switch {
		case errors.Is(err, service.ErrNotPDF):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &extractionErr):
			s.writeError(w, http.StatusBadRequest, "failed to process PDF: "+extractionErr.Error())
		default:
			s.logger.Error("ingestion failed", "filename", filename, "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to process PDF")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, uploadResponse{
		Success:    true,
		DocumentID: result.Document.ID,
		Filename:   result.Document.DisplayName,
		Stats: uploadStats{
			TotalPages:      result.Document.PageCount,
			TotalCharacters: result.TotalCharacters,
			ChunksCreated:   result.Document.TotalChunks,
		},
	})
}

type summarizeResponse struct {
	Success         bool   `json:"success"`
	Summary         string `json:"summary"`
	BackendUsed     string `json:"backend_used"`
	Degraded        bool   `json:"degraded,omitempty"`
	TotalPages      int    `json:"total_pages"`
	TotalCharacters int    `json:"total_characters"`
}

func (s *Server) handleSummarizePDF(w http.ResponseWriter, r *http.Request) {
	fileBytes, filename, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	preferred := r.FormValue("model")

	result, err := s.service.Summarize(r.Context(), fileBytes, filename, preferred)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotPDF), errors.Is(err, service.ErrTooLittleText):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, provider.ErrUnknownBackend):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("summarization failed", "filename", filename, "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to summarize PDF")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, summarizeResponse{
		Success:         true,
		Summary:         result.Summary,
		BackendUsed:     result.BackendUsed,
		Degraded:        result.Degraded,
		TotalPages:      result.PageCount,
		TotalCharacters: result.TotalCharacters,
	})
}

// readUpload extracts the multipart "file" part. It writes the error
// response itself and reports ok=false on failure.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return nil, "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file field is required")
		return nil, "", false
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return nil, "", false
	}
	return fileBytes, header.Filename, true
}

type chatCompletionRequest struct {
	Messages    []provider.Message `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Model       string             `json:"model"`
	UseContext  *bool              `json:"use_context"`
	DocumentIDs []string           `json:"document_ids"`
	TopK        int                `json:"top_k"`
}

type chatCompletionResponse struct {
	ID            string       `json:"id"`
	Object        string       `json:"object"`
	Created       int64        `json:"created"`
	Model         string       `json:"model"`
	Choices       []chatChoice `json:"choices"`
	Usage         chatUsage    `json:"usage"`
	ContextUsed   bool         `json:"context_used"`
	ContextChunks int          `json:"context_chunks"`
	Warning       string       `json:"warning,omitempty"`
	Errors        []string     `json:"errors,omitempty"`
}

type chatChoice struct {
	Index        int              `json:"index"`
	Message      provider.Message `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	// Retrieval augmentation is on unless the client opts out.
	useContext := true
	if req.UseContext != nil {
		useContext = *req.UseContext
	}

	result, err := s.service.Chat(r.Context(), service.ChatRequest{
		Messages:      req.Messages,
		Params:        provider.Params{MaxTokens: req.MaxTokens, Temperature: req.Temperature},
		Preferred:     req.Model,
		UseContext:    useContext,
		DocumentScope: req.DocumentIDs,
		TopK:          req.TopK,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingMessages):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, provider.ErrUnknownBackend):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("chat completion failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to generate response")
		}
		return
	}

	resp := chatCompletionResponse{
		ID:      "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   result.BackendUsed,
		Choices: []chatChoice{{
			Index:        0,
			Message:      provider.Message{Role: "assistant", Content: result.Content},
			FinishReason: "stop",
		}},
		Usage:         estimateUsage(req.Messages, result.Content),
		ContextUsed:   result.ContextChunksUsed > 0,
		ContextChunks: result.ContextChunksUsed,
	}
	if result.Degraded {
		resp.Warning = "All inference backends are currently unavailable. This is a fallback response."
		resp.Errors = result.Errors
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// estimateUsage approximates token counts at four characters per token.
// Backends report real usage inconsistently, so the envelope carries an
// estimate instead.
func estimateUsage(messages []provider.Message, completion string) chatUsage {
	promptChars := 0
	for _, m := range messages {
		promptChars += len(m.Content)
	}
	usage := chatUsage{
		PromptTokens:     promptChars / 4,
		CompletionTokens: len(completion) / 4,
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage
}

type searchRequest struct {
	Query       string   `json:"query"`
	Limit       int      `json:"limit"`
	DocumentIDs []string `json:"document_ids"`
}

type searchResponse struct {
	Success bool               `json:"success"`
	Query   string             `json:"query"`
	Results []searchResultItem `json:"results"`
	Count   int                `json:"count"`
}

type searchResultItem struct {
	ChunkID         string  `json:"chunk_id"`
	DocumentID      string  `json:"document_id"`
	Content         string  `json:"content"`
	PageNumber      int     `json:"page_number"`
	ChunkIndex      int     `json:"chunk_index"`
	SimilarityScore float64 `json:"similarity_score"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	scored, err := s.service.Search(r.Context(), req.Query, req.Limit, req.DocumentIDs)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("search failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	results := make([]searchResultItem, 0, len(scored))
	for _, sc := range scored {
		results = append(results, searchResultItem{
			ChunkID:         sc.Chunk.ID,
			DocumentID:      sc.Chunk.DocumentID,
			Content:         sc.Chunk.Content,
			PageNumber:      sc.Chunk.PageNumber,
			ChunkIndex:      sc.Chunk.SequenceIndex,
			SimilarityScore: sc.Score,
		})
	}
	s.writeJSON(w, http.StatusOK, searchResponse{
		Success: true,
		Query:   req.Query,
		Results: results,
		Count:   len(results),
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.service.ListDocuments(r.Context())
	if err != nil {
		s.logger.Error("list documents failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []*storage.Document{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"documents": docs,
		"count":     len(docs),
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := s.service.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("document %s not found", id))
			return
		}
		s.logger.Error("get document failed", "document_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get document")
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.service.DeleteDocument(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("document %s not found", id))
			return
		}
		s.logger.Error("delete document failed", "document_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"document_id": id,
	})
}
