package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/codeatlas-ai/codeatlas/internal/generator"
	"github.com/codeatlas-ai/codeatlas/internal/indexer"
)

// logToolError records a failed tool invocation before it is returned to
// the client.
func (s *Server) logToolError(tool string, err error) error {
	s.logger.Warn("tool failed", zap.String("tool", tool), zap.Error(err))
	return err
}

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32001 // A full build is already running
	ErrorCodeEmptyQuery         = -32002 // Query parameter is empty
	ErrorCodeGenerationDisabled = -32003 // Description generation is off
)

// handleGetIndexStatus handles the get_index_status tool invocation
func (s *Server) handleGetIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := s.indexer.Status(ctx)
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"exists":  status.Exists,
		"syncing": status.Syncing,
		"state":   status.State,
		"files":   status.Files,
	})), nil
}

// handleBuildIndex handles the build_index tool invocation
func (s *Server) handleBuildIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	force := getBoolDefault(args, "force", false)

	var stats *indexer.Stats
	var err error
	if paths := getStringSlice(args, "paths"); len(paths) > 0 {
		stats, err = s.indexer.ProcessDocuments(ctx, paths, true)
	} else {
		stats, err = s.indexer.FullBuild(ctx, force)
	}
	if errors.Is(err, indexer.ErrBuildInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "a build is already running", nil)
	}
	if err != nil {
		return nil, s.logToolError("build_index", newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		}))
	}
	s.retriever.Invalidate()

	response := map[string]interface{}{
		"files_indexed": stats.IndexedFiles,
		"files_skipped": stats.SkippedFiles,
		"files_failed":  stats.FailedFiles,
		"chunks_stored": stats.ChunksStored,
		"duration_ms":   stats.Duration.Milliseconds(),
	}
	if len(stats.Errors) > 0 {
		errs := stats.Errors
		if len(errs) > 5 {
			errs = errs[:5]
		}
		response["errors"] = errs
		response["error_count"] = len(stats.Errors)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDeleteIndex handles the delete_index tool invocation
func (s *Server) handleDeleteIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.indexer.DeleteIndex(ctx); err != nil {
		return nil, s.logToolError("delete_index", newMCPError(ErrorCodeInternalError, "delete index failed", map[string]interface{}{
			"error": err.Error(),
		}))
	}
	s.retriever.Invalidate()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": true,
	})), nil
}

// handleDeleteFile handles the delete_file tool invocation
func (s *Server) handleDeleteFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := s.indexer.DeleteFile(ctx, path); err != nil {
		return nil, s.logToolError("delete_file", newMCPError(ErrorCodeInternalError, "delete file failed", map[string]interface{}{
			"error": err.Error(),
		}))
	}
	s.retriever.Invalidate()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": true,
		"path":    path,
	})), nil
}

// handleSummarizeFile handles the summarize_file tool invocation
func (s *Server) handleSummarizeFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	summary, err := s.indexer.SummarizeFile(ctx, path)
	switch {
	case errors.Is(err, generator.ErrDisabled):
		return nil, newMCPError(ErrorCodeGenerationDisabled, "description generation is disabled", nil)
	case errors.Is(err, indexer.ErrNotIndexed):
		return nil, newMCPError(ErrorCodeInvalidParams, "file is not indexed", map[string]interface{}{
			"param": "path",
			"value": path,
		})
	case err != nil:
		return nil, s.logToolError("summarize_file", newMCPError(ErrorCodeInternalError, "summarize failed", map[string]interface{}{
			"error": err.Error(),
		}))
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"path":    path,
		"summary": summary,
	})), nil
}

// handleQueryRelated handles the query_related tool invocation
func (s *Server) handleQueryRelated(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", s.retriever.TopK())
	if limit < 1 || limit > 50 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 50", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	result, err := s.retriever.Retrieve(ctx, query, limit)
	if err != nil {
		return nil, s.logToolError("query_related", newMCPError(ErrorCodeInternalError, "query failed", map[string]interface{}{
			"error": err.Error(),
		}))
	}

	documents := make([]map[string]interface{}, len(result.Documents))
	for i, doc := range result.Documents {
		documents[i] = map[string]interface{}{
			"rank":       doc.Rank,
			"path":       doc.Path,
			"symbol":     doc.SymbolName,
			"content":    doc.Content,
			"start_line": doc.StartLine,
			"end_line":   doc.EndLine,
			"score":      doc.Score,
			"related":    doc.Related,
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"documents": documents,
		"paths":     result.Paths,
	})), nil
}

// Helper functions

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter, ignoring non-string
// elements
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
