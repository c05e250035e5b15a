package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/codeatlas-ai/codeatlas/internal/indexer"
	"github.com/codeatlas-ai/codeatlas/internal/retriever"
)

const (
	// ServerName is the MCP server name
	ServerName = "codeatlas"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server exposes the index over MCP stdio tools.
type Server struct {
	mcp       *server.MCPServer
	indexer   *indexer.Indexer
	retriever *retriever.Retriever
	logger    *zap.Logger
}

// NewServer wires the tool surface around an already-constructed indexer
// and retriever; the composition root owns their lifecycles.
func NewServer(idx *indexer.Indexer, ret *retriever.Retriever, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion),
		indexer:   idx,
		retriever: ret,
		logger:    logger,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(getIndexStatusTool(), s.handleGetIndexStatus)
	s.mcp.AddTool(buildIndexTool(), s.handleBuildIndex)
	s.mcp.AddTool(deleteIndexTool(), s.handleDeleteIndex)
	s.mcp.AddTool(deleteFileTool(), s.handleDeleteFile)
	s.mcp.AddTool(queryRelatedTool(), s.handleQueryRelated)
	s.mcp.AddTool(summarizeFileTool(), s.handleSummarizeFile)
}
