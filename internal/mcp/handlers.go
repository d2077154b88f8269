package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/studymate-server/internal/service"
)

// makeSearchHandler creates the search_documents tool handler.
// Search flow:
// 1. Generate embedding for query text
// 2. Search chunk vectors by cosine similarity, optionally scoped to documents
// 3. Return the chunk content with scores, best match first
func makeSearchHandler(svc *service.Service) func(
	context.Context, *mcp.CallToolRequest, SearchDocumentsInput,
) (*mcp.CallToolResult, SearchDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchDocumentsInput) (
		*mcp.CallToolResult, SearchDocumentsOutput, error,
	) {
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = 5
		}

		scored, err := svc.Search(ctx, input.Query, maxResults, input.DocumentIDs)
		if err != nil {
			return nil, SearchDocumentsOutput{}, fmt.Errorf("search failed: %w", err)
		}

		results := make([]SearchResult, 0, len(scored))
		for _, sc := range scored {
			results = append(results, SearchResult{
				ChunkID:    sc.Chunk.ID,
				DocumentID: sc.Chunk.DocumentID,
				Content:    sc.Chunk.Content,
				PageNumber: sc.Chunk.PageNumber,
				Score:      sc.Score,
			})
		}

		if len(results) == 0 {
			return nil, SearchDocumentsOutput{
				Results: []SearchResult{},
				Message: "No matching passages found. Try broader search terms or upload more documents.",
			}, nil
		}

		return nil, SearchDocumentsOutput{Results: results}, nil
	}
}

// makeListHandler creates the list_documents tool handler.
func makeListHandler(svc *service.Service) func(
	context.Context, *mcp.CallToolRequest, ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentsInput) (
		*mcp.CallToolResult, ListDocumentsOutput, error,
	) {
		docs, err := svc.ListDocuments(ctx)
		if err != nil {
			return nil, ListDocumentsOutput{}, fmt.Errorf("failed to list documents: %w", err)
		}

		infos := make([]DocumentInfo, 0, len(docs))
		for _, doc := range docs {
			infos = append(infos, DocumentInfo{
				ID:          doc.ID,
				Filename:    doc.DisplayName,
				UploadTime:  doc.UploadTime,
				TotalPages:  doc.PageCount,
				TotalChunks: doc.TotalChunks,
				Status:      string(doc.Status),
			})
		}

		return nil, ListDocumentsOutput{
			Documents: infos,
			Count:     len(infos),
		}, nil
	}
}
