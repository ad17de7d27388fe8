package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexDocumentsTool returns the tool definition for index_documents
func indexDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_documents",
		Description: "Index a folder of documents (pdf, docx, txt, md) or a list of documents with inline text",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a folder to scan. Mutually exclusive with documents.",
				},
				"file_types": map[string]interface{}{
					"type":        "array",
					"description": "Extensions to index when scanning a folder",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{".pdf", ".docx", ".txt", ".md"},
					},
					"default": []string{".pdf", ".docx", ".txt"},
				},
				"max_files": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum files to process when scanning a folder (0 for no limit)",
					"default":     0,
					"minimum":     0,
				},
				"documents": map[string]interface{}{
					"type":        "array",
					"description": "Documents with already extracted text. Mutually exclusive with path.",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"path": map[string]interface{}{"type": "string"},
							"text": map[string]interface{}{"type": "string"},
							"name": map[string]interface{}{"type": "string"},
						},
						"required": []string{"path", "text"},
					},
				},
			},
		},
	}
}

// searchDocumentsTool returns the tool definition for search_documents
func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documents",
		Description: "Search indexed documents with a natural language query using hybrid semantic and keyword ranking",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (1-500 characters)",
					"minLength":   1,
					"maxLength":   500,
				},
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Number of results to return (1-50)",
					"default":     5,
					"minimum":     1,
					"maximum":     50,
				},
				"alpha": map[string]interface{}{
					"type":        "number",
					"description": "Semantic weight in the hybrid score; 1 is semantic only, 0 is keyword only",
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"use_context": map[string]interface{}{
					"type":        "boolean",
					"description": "Rerank results by file type, size and recency",
					"default":     true,
				},
				"use_hybrid": map[string]interface{}{
					"type":        "boolean",
					"description": "Fuse BM25 keyword scores; false ranks by semantic similarity only",
					"default":     true,
				},
				"min_score": map[string]interface{}{
					"type":        "number",
					"description": "Minimum hybrid score threshold (0.0-1.0)",
					"default":     0.0,
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"file_types": map[string]interface{}{
					"type":        "array",
					"description": "Only return documents with these extensions",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"explain": map[string]interface{}{
					"type":        "boolean",
					"description": "Include a human readable score breakdown per result",
					"default":     false,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return noArgsTool("get_status", "Report index size, keyword index readiness, cache state and indexing progress")
}

// cacheStatsTool returns the tool definition for cache_stats
func cacheStatsTool() mcp.Tool {
	return noArgsTool("cache_stats", "Report hit, miss and size counters for the embedding and result caches")
}

// clearCacheTool returns the tool definition for clear_cache
func clearCacheTool() mcp.Tool {
	return noArgsTool("clear_cache", "Empty the embedding and result caches and reset their counters")
}

// clearIndexTool returns the tool definition for clear_index
func clearIndexTool() mcp.Tool {
	return noArgsTool("clear_index", "Remove every indexed document")
}

// saveSnapshotTool returns the tool definition for save_snapshot
func saveSnapshotTool() mcp.Tool {
	return noArgsTool("save_snapshot", "Persist the index to the configured snapshot directory")
}

// loadSnapshotTool returns the tool definition for load_snapshot
func loadSnapshotTool() mcp.Tool {
	return noArgsTool("load_snapshot", "Replace the index with the snapshot in the configured snapshot directory")
}

func noArgsTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
