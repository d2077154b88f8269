package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/studymate-server/internal/chunker"
	"github.com/bull/studymate-server/internal/extractor"
	"github.com/bull/studymate-server/internal/index"
	"github.com/bull/studymate-server/internal/ingest"
	"github.com/bull/studymate-server/internal/provider"
	"github.com/bull/studymate-server/internal/retrieval"
	"github.com/bull/studymate-server/internal/service"
	"github.com/bull/studymate-server/internal/storage"
)

type fakeExtractor struct {
	pages []extractor.Page
	err   error
}

func (f *fakeExtractor) Extract(context.Context, []byte) ([]extractor.Page, error) {
	return f.pages, f.err
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func (fakeEmbedder) Dimension() int { return 2 }

type fakeBackend struct {
	name    string
	content string
	err     error
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Attempt(context.Context, []provider.Message, provider.Params) (string, error) {
	return f.content, f.err
}

func newTestMux(t *testing.T, backends ...provider.Backend) *http.ServeMux {
	t.Helper()
	if len(backends) == 0 {
		backends = []provider.Backend{&fakeBackend{name: "test", content: "a helpful answer"}}
	}
	ex := &fakeExtractor{pages: []extractor.Page{
		{PageNumber: 1, Text: "Photosynthesis converts light into chemical energy."},
	}}
	store := storage.NewMemoryStore()
	idx := index.New(2)
	pipeline := ingest.NewPipeline(ex, chunker.New(1000, 100), fakeEmbedder{}, store, idx, nil)
	retriever := retrieval.NewRetriever(fakeEmbedder{}, idx, store, nil)
	router := provider.NewRouter(backends, 0, nil)
	svc := service.New(pipeline, retriever, router, ex, store, idx, 3, nil)

	mux := http.NewServeMux()
	New(svc, nil, slog.Default()).Routes(mux)
	return mux
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func uploadPDF(t *testing.T, mux *http.ServeMux, filename string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, []byte("%PDF-1.4 fake"))
	req := httptest.NewRequest(http.MethodPost, "/upload-pdf", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestUploadPDF(t *testing.T) {
	mux := newTestMux(t)

	rec := uploadPDF(t, mux, "bio.pdf")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.DocumentID)
	assert.Equal(t, "bio.pdf", resp.Filename)
	assert.Equal(t, 1, resp.Stats.TotalPages)
	assert.Equal(t, 1, resp.Stats.ChunksCreated)
}

func TestUploadPDF_RejectsNonPDF(t *testing.T) {
	mux := newTestMux(t)

	rec := uploadPDF(t, mux, "notes.docx")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadPDF_MissingFile(t *testing.T) {
	mux := newTestMux(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload-pdf", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatCompletions(t *testing.T) {
	mux := newTestMux(t)
	require.Equal(t, http.StatusOK, uploadPDF(t, mux, "bio.pdf").Code)

	body := `{"messages":[{"role":"user","content":"what is photosynthesis?"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp chatCompletionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.ID, "chatcmpl-"))
	assert.Equal(t, "chat.completion", resp.Object)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "a helpful answer", resp.Choices[0].Message.Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.True(t, resp.ContextUsed)
	assert.Equal(t, 1, resp.ContextChunks)
	assert.Empty(t, resp.Warning)
}

func TestChatCompletions_MissingMessages(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatCompletions_UnknownModel(t *testing.T) {
	mux := newTestMux(t)

	body := `{"messages":[{"role":"user","content":"hi"}],"model":"claude"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatCompletions_DegradedIs200(t *testing.T) {
	mux := newTestMux(t, &fakeBackend{name: "down", err: assert.AnError})

	body := `{"messages":[{"role":"user","content":"hello"}],"use_context":false}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatCompletionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Warning)
	assert.Len(t, resp.Errors, 1)
	assert.Equal(t, "fallback", resp.Model)
	require.Len(t, resp.Choices, 1)
	assert.NotEmpty(t, resp.Choices[0].Message.Content)
}

func TestSearch(t *testing.T) {
	mux := newTestMux(t)
	require.Equal(t, http.StatusOK, uploadPDF(t, mux, "bio.pdf").Code)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"photosynthesis"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Results, 1)
	assert.Contains(t, resp.Results[0].Content, "Photosynthesis")
	assert.Greater(t, resp.Results[0].SimilarityScore, 0.0)
}

func TestSearch_EmptyQuery(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"  "}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentLifecycle(t *testing.T) {
	mux := newTestMux(t)

	rec := uploadPDF(t, mux, "bio.pdf")
	require.Equal(t, http.StatusOK, rec.Code)
	var uploaded uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), uploaded.DocumentID)

	req = httptest.NewRequest(http.MethodGet, "/documents/"+uploaded.DocumentID, nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/documents/"+uploaded.DocumentID, nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/documents/"+uploaded.DocumentID, nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDocument_NotFound(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/documents/no-such-id", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, []string{"test"}, resp.Backends)
}

type failingHealth struct{}

func (failingHealth) Health(context.Context) error { return assert.AnError }

func TestHealth_Unhealthy(t *testing.T) {
	ex := &fakeExtractor{}
	store := storage.NewMemoryStore()
	idx := index.New(2)
	pipeline := ingest.NewPipeline(ex, chunker.New(1000, 100), fakeEmbedder{}, store, idx, nil)
	retriever := retrieval.NewRetriever(fakeEmbedder{}, idx, store, nil)
	router := provider.NewRouter(nil, 0, nil)
	svc := service.New(pipeline, retriever, router, ex, store, idx, 3, nil)
	mux := http.NewServeMux()
	New(svc, failingHealth{}, slog.Default()).Routes(mux)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORS(t *testing.T) {
	handler := WithCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/upload-pdf", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
