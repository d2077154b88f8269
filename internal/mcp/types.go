// Package mcp exposes document search over the Model Context Protocol.
package mcp

import "time"

// SearchDocumentsInput defines the input parameters for the search_documents tool.
type SearchDocumentsInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"The semantic search query for finding relevant document passages"`
	// MaxResults is the maximum number of chunks to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"Maximum number of chunks to return"`
	// DocumentIDs restricts the search to specific uploaded documents.
	DocumentIDs []string `json:"document_ids,omitempty" jsonschema:"Optional list of document IDs to restrict the search to"`
}

// SearchDocumentsOutput contains the search results.
type SearchDocumentsOutput struct {
	// Results is the list of matching chunks ordered by similarity.
	Results []SearchResult `json:"results"`
	// Message provides informational context (e.g., "No matching passages found").
	Message string `json:"message,omitempty"`
}

// SearchResult represents a single chunk match from semantic search.
type SearchResult struct {
	// ChunkID identifies the matching chunk.
	ChunkID string `json:"chunk_id"`
	// DocumentID identifies the chunk's parent document.
	DocumentID string `json:"document_id"`
	// Content is the chunk text.
	Content string `json:"content"`
	// PageNumber is the 1-based page the chunk came from.
	PageNumber int `json:"page_number"`
	// Score is the cosine similarity score.
	Score float64 `json:"score"`
}

// ListDocumentsInput defines the input parameters for the list_documents tool.
// This tool takes no parameters and lists all uploaded documents.
type ListDocumentsInput struct {
	// No input parameters required
}

// ListDocumentsOutput contains the list of all uploaded documents.
type ListDocumentsOutput struct {
	// Documents is the uploaded document metadata.
	Documents []DocumentInfo `json:"documents"`
	// Count is the total number of documents.
	Count int `json:"count"`
}

// DocumentInfo summarizes one uploaded document.
type DocumentInfo struct {
	// ID is the document identifier.
	ID string `json:"id"`
	// Filename is the original upload filename.
	Filename string `json:"filename"`
	// UploadTime is when the document was ingested.
	UploadTime time.Time `json:"upload_time"`
	// TotalPages is the page count of the source PDF.
	TotalPages int `json:"total_pages"`
	// TotalChunks is the number of indexed chunks.
	TotalChunks int `json:"total_chunks"`
	// Status is pending, ready, or failed.
	Status string `json:"status"`
}
