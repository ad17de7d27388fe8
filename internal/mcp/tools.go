package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docsearch/internal/extract"
	"github.com/dshills/docsearch/internal/indexer"
	"github.com/dshills/docsearch/internal/rerank"
	"github.com/dshills/docsearch/internal/searcher"
	"github.com/dshills/docsearch/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
	ErrorCodeSnapshotNotFound   = -32005 // No snapshot in the snapshot directory
	ErrorCodeCorruptSnapshot    = -32006 // Snapshot unreadable, index was reset
)

const (
	maxReportedErrors = 5
	excerptPreview    = 300
)

// handleIndexDocuments handles the index_documents tool invocation
func (s *Server) handleIndexDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path := getStringDefault(args, "path", "")
	rawDocs, hasDocs := args["documents"].([]interface{})

	switch {
	case path != "" && hasDocs:
		return nil, newMCPError(ErrorCodeInvalidParams, "path and documents are mutually exclusive", nil)
	case path == "" && !hasDocs:
		return nil, newMCPError(ErrorCodeInvalidParams, "path or documents parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	var (
		stats *indexer.Statistics
		err   error
	)

	if path != "" {
		if err := validatePath(path); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
				"param":  "path",
				"reason": err.Error(),
			})
		}

		maxFiles := getIntDefault(args, "max_files", 0)
		if maxFiles < 0 {
			return nil, newMCPError(ErrorCodeInvalidParams, "max_files cannot be negative", map[string]interface{}{
				"param": "max_files",
				"value": maxFiles,
			})
		}

		fileTypes := getStringSlice(args, "file_types")
		for _, ft := range fileTypes {
			if !extract.Supported(ft) {
				return nil, newMCPError(ErrorCodeInvalidParams, "unsupported file type", map[string]interface{}{
					"param":   "file_types",
					"value":   ft,
					"allowed": extract.SupportedExtensions,
				})
			}
		}

		stats, err = s.indexer.IndexDirectory(ctx, path, &indexer.ScanOptions{
			FileTypes: fileTypes,
			MaxFiles:  maxFiles,
		})
	} else {
		docs, perr := parseDocuments(rawDocs)
		if perr != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid documents", map[string]interface{}{
				"param":  "documents",
				"reason": perr.Error(),
			})
		}
		stats, err = s.indexer.IndexDocuments(ctx, docs)
	}

	if errors.Is(err, indexer.ErrIndexingInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":             stats.DocumentsIndexed > 0,
		"documents_indexed":   stats.DocumentsIndexed,
		"documents_failed":    stats.DocumentsFailed,
		"documents_truncated": stats.DocumentsTrimmed,
		"snapshot_saved":      stats.SnapshotSaved,
		"duration_ms":         stats.Duration.Milliseconds(),
	}
	if path != "" {
		response["files_scanned"] = stats.FilesScanned
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchDocuments handles the search_documents tool invocation
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, _ := args["query"].(string)

	k := getIntDefault(args, "k", s.config.Search.DefaultK)
	if k < 1 || k > searcher.MaxK {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("k must be between 1 and %d", searcher.MaxK), map[string]interface{}{
			"param": "k",
			"value": k,
		})
	}

	minScore := getFloatDefault(args, "min_score", 0)
	if minScore < 0 || minScore > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "min_score must be between 0 and 1", map[string]interface{}{
			"param": "min_score",
			"value": minScore,
		})
	}

	req := searcher.Request{
		Query:        query,
		K:            k,
		MinScore:     minScore,
		UseContext:   getBoolDefault(args, "use_context", s.config.Search.UseContext),
		SemanticOnly: !getBoolDefault(args, "use_hybrid", true),
		FileTypes:    getStringSlice(args, "file_types"),
	}
	if v, ok := args["alpha"].(float64); ok {
		req.Alpha = types.Float64(v)
	}

	resp, err := s.engine.Search(ctx, req)
	switch {
	case errors.Is(err, types.ErrEmptyQuery):
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	case errors.Is(err, searcher.ErrQueryTooLong), errors.Is(err, types.ErrInvalidAlpha):
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid search parameters", map[string]interface{}{
			"reason": err.Error(),
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	explain := getBoolDefault(args, "explain", false)
	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, formatResult(r, resp.Alpha, explain))
	}

	response := map[string]interface{}{
		"query":              query,
		"results":            results,
		"total_results":      len(results),
		"search_method":      resp.Method,
		"cache_hit":          resp.CacheHit,
		"context_ranked":     resp.ContextRanked,
		"alpha":              resp.Alpha,
		"processing_time_ms": float64(resp.Duration.Microseconds()) / 1000,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// formatResult renders one result, omitting scores that were not computed
func formatResult(r types.ScoredResult, alpha float64, explain bool) map[string]interface{} {
	excerpt := []rune(r.Record.TextExcerpt)
	if len(excerpt) > excerptPreview {
		excerpt = excerpt[:excerptPreview]
	}

	out := map[string]interface{}{
		"rank":             r.Rank,
		"path":             r.Record.Path,
		"name":             r.Record.Name,
		"extension":        r.Record.Extension,
		"size_bytes":       r.Record.SizeBytes,
		"excerpt":          string(excerpt),
		"distance":         r.Distance,
		"similarity_score": r.SimilarityScore,
		"method":           r.Method,
	}
	if r.BM25Score != nil {
		out["bm25_score"] = *r.BM25Score
	}
	if r.HybridScore != nil {
		out["hybrid_score"] = *r.HybridScore
	}
	if r.ContextScore != nil {
		out["context_score"] = *r.ContextScore
	}
	if r.ContextBreakdown != nil {
		out["context_breakdown"] = r.ContextBreakdown
	}
	if explain {
		out["explanation"] = searcher.Explain(r, alpha)
		if r.ContextScore != nil {
			out["context_explanation"] = rerank.Explain(r)
		}
	}
	return out
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := s.engine.Status(ctx)

	response := map[string]interface{}{
		"status":   "healthy",
		"version":  ServerVersion,
		"index":    status,
		"indexing": s.indexer.Progress(),
		"cache":    s.engine.CacheStats(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCacheStats handles the cache_stats tool invocation
func (s *Server) handleCacheStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response := map[string]interface{}{
		"enabled": s.config.Cache.Enabled,
		"caches":  s.engine.CacheStats(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleClearCache handles the clear_cache tool invocation
func (s *Server) handleClearCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.engine.CacheClear()
	s.logger.Info("caches cleared")

	response := map[string]interface{}{
		"cleared": true,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleClearIndex handles the clear_index tool invocation
func (s *Server) handleClearIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.indexer.Running() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "cannot clear the index while indexing is in progress", nil)
	}

	s.engine.Clear()

	response := map[string]interface{}{
		"cleared":   true,
		"documents": 0,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSaveSnapshot handles the save_snapshot tool invocation
func (s *Server) handleSaveSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.engine.Snapshot(); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to save snapshot", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status := s.engine.Status(ctx)
	response := map[string]interface{}{
		"saved":        true,
		"snapshot_dir": status.SnapshotDir,
		"documents":    status.Documents,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleLoadSnapshot handles the load_snapshot tool invocation
func (s *Server) handleLoadSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.indexer.Running() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "cannot load a snapshot while indexing is in progress", nil)
	}

	err := s.engine.Restore()
	switch {
	case errors.Is(err, types.ErrSnapshotNotFound):
		return nil, newMCPError(ErrorCodeSnapshotNotFound, "no snapshot found", map[string]interface{}{
			"snapshot_dir": s.config.SnapshotDir,
		})
	case errors.Is(err, types.ErrCorruptSnapshot):
		return nil, newMCPError(ErrorCodeCorruptSnapshot, "snapshot is corrupt, index reset to empty", map[string]interface{}{
			"error": err.Error(),
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "failed to load snapshot", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status := s.engine.Status(ctx)
	response := map[string]interface{}{
		"loaded":    true,
		"documents": status.Documents,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
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

// parseDocuments converts the documents argument into indexer inputs
func parseDocuments(raw []interface{}) ([]indexer.DocumentInput, error) {
	if len(raw) == 0 {
		return nil, errors.New("documents cannot be empty")
	}

	docs := make([]indexer.DocumentInput, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("document %d is not an object", i)
		}
		doc := indexer.DocumentInput{
			Path: getStringDefault(obj, "path", ""),
			Name: getStringDefault(obj, "name", ""),
			Text: getStringDefault(obj, "text", ""),
		}
		if doc.Path == "" {
			return nil, fmt.Errorf("document %d: %w", i, types.ErrEmptyPath)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// validatePath checks that path is an absolute, readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	// Check if path is absolute
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	// Check if path exists
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	// Check if it's a directory
	if !info.IsDir() {
		return ErrNotDirectory
	}

	// Check if directory is readable
	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
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

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	if val, ok := args[key].(int); ok {
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter, skipping non-strings
func getStringSlice(args map[string]interface{}, key string) []string {
	switch val := args[key].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
