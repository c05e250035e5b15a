package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// getIndexStatusTool returns the tool definition for get_index_status
func getIndexStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_index_status",
		Description: "Report whether the workspace index exists, whether it is syncing, and which files it covers",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// buildIndexTool returns the tool definition for build_index
func buildIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "build_index",
		Description: "Scan the workspace and index all supported source files, or re-embed an explicit list of files",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-index all files ignoring content hashes",
					"default":     false,
				},
				"paths": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Workspace-relative paths to re-embed, skipping the workspace scan",
				},
			},
		},
	}
}

// deleteIndexTool returns the tool definition for delete_index
func deleteIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_index",
		Description: "Delete the entire workspace index",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// deleteFileTool returns the tool definition for delete_file
func deleteFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_file",
		Description: "Remove one file from the index, pruning its vectors and graph edges",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Workspace-relative path of the file to remove",
				},
			},
			Required: []string{"path"},
		},
	}
}

// summarizeFileTool returns the tool definition for summarize_file
func summarizeFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "summarize_file",
		Description: "Generate a one-paragraph natural-language summary of an indexed file from its stored chunks (requires description generation to be enabled)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Workspace-relative path of the indexed file",
				},
			},
			Required: []string{"path"},
		},
	}
}

// queryRelatedTool returns the tool definition for query_related
func queryRelatedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query_related",
		Description: "Find code related to a natural-language query via vector similarity plus one hop of import-graph expansion",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language description of the code to find",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of vector hits (1-50); defaults to the configured top-k",
					"minimum":     1,
					"maximum":     50,
				},
			},
			Required: []string{"query"},
		},
	}
}
