package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/studymate-server/internal/service"
)

// Server wraps the MCP server with its dependencies.
type Server struct {
	server  *mcp.Server
	service *service.Service
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(svc *service.Service) *Server {
	impl := &mcp.Implementation{
		Name:    "studymate-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Search uploaded study documents semantically. Returns the most relevant passages with similarity scores.",
	}, makeSearchHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List all uploaded documents with their ingestion status and chunk counts.",
	}, makeListHandler(svc))

	return &Server{
		server:  server,
		service: svc,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
