package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docsearch/internal/config"
	"github.com/dshills/docsearch/internal/embedder"
	"github.com/dshills/docsearch/internal/engine"
	"github.com/dshills/docsearch/internal/indexer"
	"github.com/dshills/docsearch/internal/vectorindex"
)

const testDimension = 64

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Dimension = testDimension
	cfg.SnapshotDir = t.TempDir()

	emb, err := embedder.NewLocalProvider(testDimension)
	require.NoError(t, err)

	eng, err := engine.New(cfg, emb)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	idx := indexer.New(eng, emb, &indexer.Config{Workers: 2})
	return NewServer(eng, idx, cfg, nil)
}

func callTool(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok, "expected *MCPError, got %T", err)
	assert.Equal(t, code, mcpErr.Code)
	return mcpErr
}

func indexInline(t *testing.T, s *Server) {
	t.Helper()
	result, err := s.handleIndexDocuments(context.Background(), callTool(map[string]interface{}{
		"documents": []interface{}{
			map[string]interface{}{"path": "/docs/q3.pdf", "text": "quarterly revenue report for finance"},
			map[string]interface{}{"path": "/docs/deploy.txt", "text": "kubernetes deployment guide"},
			map[string]interface{}{"path": "/docs/cake.docx", "text": "chocolate cake recipe"},
		},
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	require.Equal(t, float64(3), out["documents_indexed"])
}

func TestIndexDocumentsInline(t *testing.T) {
	s := newTestServer(t)
	indexInline(t, s)

	status := s.engine.Status(context.Background())
	assert.Equal(t, 3, status.Documents)
}

func TestIndexDocumentsDirectory(t *testing.T) {
	s := newTestServer(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("meeting notes about budget"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.md"), []byte("project readme"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "image.png"), []byte("binary"), 0o644))

	result, err := s.handleIndexDocuments(context.Background(), callTool(map[string]interface{}{
		"path":       root,
		"file_types": []interface{}{".txt"},
	}))
	require.NoError(t, err)

	out := decodeResult(t, result)
	assert.Equal(t, float64(1), out["files_scanned"])
	assert.Equal(t, float64(1), out["documents_indexed"])
	assert.Equal(t, true, out["indexed"])
}

func TestIndexDocumentsValidation(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"neither path nor documents", map[string]interface{}{}},
		{"both path and documents", map[string]interface{}{
			"path":      dir,
			"documents": []interface{}{map[string]interface{}{"path": "/a.txt", "text": "x"}},
		}},
		{"relative path", map[string]interface{}{"path": "docs"}},
		{"missing path", map[string]interface{}{"path": filepath.Join(dir, "missing")}},
		{"negative max_files", map[string]interface{}{"path": dir, "max_files": float64(-1)}},
		{"unsupported file type", map[string]interface{}{"path": dir, "file_types": []interface{}{".exe"}}},
		{"empty documents", map[string]interface{}{"documents": []interface{}{}}},
		{"document without path", map[string]interface{}{
			"documents": []interface{}{map[string]interface{}{"text": "x"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleIndexDocuments(ctx, callTool(tt.args))
			requireMCPError(t, err, ErrorCodeInvalidParams)
		})
	}
}

func TestIndexDocumentsInvalidArguments(t *testing.T) {
	s := newTestServer(t)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = "not a map"

	_, err := s.handleIndexDocuments(context.Background(), req)
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestSearchDocuments(t *testing.T) {
	s := newTestServer(t)
	indexInline(t, s)

	result, err := s.handleSearchDocuments(context.Background(), callTool(map[string]interface{}{
		"query":   "quarterly revenue",
		"k":       float64(2),
		"explain": true,
	}))
	require.NoError(t, err)

	out := decodeResult(t, result)
	assert.Equal(t, "hybrid", out["search_method"])
	assert.Equal(t, false, out["cache_hit"])
	assert.Equal(t, true, out["context_ranked"])

	results, ok := out["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 2)

	first := results[0].(map[string]interface{})
	assert.Equal(t, "/docs/q3.pdf", first["path"])
	assert.Equal(t, float64(1), first["rank"])
	assert.Contains(t, first, "bm25_score")
	assert.Contains(t, first, "hybrid_score")
	assert.Contains(t, first, "context_score")
	assert.NotEmpty(t, first["explanation"])
	assert.Contains(t, first["context_explanation"], "context=")
	assert.Contains(t, first["context_explanation"], "keywords=quarterly,revenue,report,finance")
}

func TestSearchDocumentsCacheHit(t *testing.T) {
	s := newTestServer(t)
	indexInline(t, s)
	args := map[string]interface{}{"query": "kubernetes deployment"}

	_, err := s.handleSearchDocuments(context.Background(), callTool(args))
	require.NoError(t, err)

	result, err := s.handleSearchDocuments(context.Background(), callTool(args))
	require.NoError(t, err)

	out := decodeResult(t, result)
	assert.Equal(t, true, out["cache_hit"])
	assert.Equal(t, "cached", out["search_method"])
}

func TestSearchDocumentsSemanticOnly(t *testing.T) {
	s := newTestServer(t)
	indexInline(t, s)

	result, err := s.handleSearchDocuments(context.Background(), callTool(map[string]interface{}{
		"query":       "chocolate cake",
		"use_hybrid":  false,
		"use_context": false,
	}))
	require.NoError(t, err)

	out := decodeResult(t, result)
	assert.Equal(t, "semantic_only", out["search_method"])
	assert.Equal(t, false, out["context_ranked"])

	for _, r := range out["results"].([]interface{}) {
		res := r.(map[string]interface{})
		assert.NotContains(t, res, "bm25_score")
		assert.NotContains(t, res, "context_score")
	}
}

func TestSearchDocumentsFileTypes(t *testing.T) {
	s := newTestServer(t)
	indexInline(t, s)

	result, err := s.handleSearchDocuments(context.Background(), callTool(map[string]interface{}{
		"query":      "report",
		"file_types": []interface{}{"txt"},
	}))
	require.NoError(t, err)

	results := decodeResult(t, result)["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "/docs/deploy.txt", results[0].(map[string]interface{})["path"])
}

func TestSearchDocumentsValidation(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"missing query", map[string]interface{}{}, ErrorCodeEmptyQuery},
		{"blank query", map[string]interface{}{"query": "   "}, ErrorCodeEmptyQuery},
		{"k too small", map[string]interface{}{"query": "x", "k": float64(0)}, ErrorCodeInvalidParams},
		{"k too large", map[string]interface{}{"query": "x", "k": float64(51)}, ErrorCodeInvalidParams},
		{"alpha out of range", map[string]interface{}{"query": "x", "alpha": 1.5}, ErrorCodeInvalidParams},
		{"min_score out of range", map[string]interface{}{"query": "x", "min_score": -0.1}, ErrorCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleSearchDocuments(ctx, callTool(tt.args))
			requireMCPError(t, err, tt.code)
		})
	}
}

func TestGetStatus(t *testing.T) {
	s := newTestServer(t)
	indexInline(t, s)

	result, err := s.handleGetStatus(context.Background(), callTool(map[string]interface{}{}))
	require.NoError(t, err)

	out := decodeResult(t, result)
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, ServerVersion, out["version"])

	index := out["index"].(map[string]interface{})
	assert.Equal(t, float64(3), index["documents"])
	assert.Equal(t, float64(testDimension), index["dimension"])

	indexing := out["indexing"].(map[string]interface{})
	assert.Equal(t, false, indexing["running"])
	assert.Equal(t, float64(3), indexing["indexed"])
}

func TestCacheStatsAndClear(t *testing.T) {
	s := newTestServer(t)
	indexInline(t, s)
	ctx := context.Background()

	_, err := s.handleSearchDocuments(ctx, callTool(map[string]interface{}{"query": "cake"}))
	require.NoError(t, err)

	result, err := s.handleCacheStats(ctx, callTool(map[string]interface{}{}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, true, out["enabled"])
	assert.NotEmpty(t, out["caches"])

	result, err = s.handleClearCache(ctx, callTool(map[string]interface{}{}))
	require.NoError(t, err)
	assert.Equal(t, true, decodeResult(t, result)["cleared"])

	for _, st := range s.engine.CacheStats() {
		assert.Zero(t, st.Size)
		assert.Zero(t, st.Hits)
	}
}

func TestClearIndex(t *testing.T) {
	s := newTestServer(t)
	indexInline(t, s)

	result, err := s.handleClearIndex(context.Background(), callTool(map[string]interface{}{}))
	require.NoError(t, err)
	assert.Equal(t, true, decodeResult(t, result)["cleared"])
	assert.Zero(t, s.engine.Status(context.Background()).Documents)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestServer(t)
	indexInline(t, s)
	ctx := context.Background()

	result, err := s.handleSaveSnapshot(ctx, callTool(map[string]interface{}{}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, true, out["saved"])
	assert.Equal(t, float64(3), out["documents"])

	s.engine.Clear()

	result, err = s.handleLoadSnapshot(ctx, callTool(map[string]interface{}{}))
	require.NoError(t, err)
	out = decodeResult(t, result)
	assert.Equal(t, true, out["loaded"])
	assert.Equal(t, float64(3), out["documents"])
}

func TestLoadSnapshotErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		s := newTestServer(t)
		_, err := s.handleLoadSnapshot(context.Background(), callTool(map[string]interface{}{}))
		requireMCPError(t, err, ErrorCodeSnapshotNotFound)
	})

	t.Run("corrupt", func(t *testing.T) {
		s := newTestServer(t)
		indexInline(t, s)
		dir := s.config.SnapshotDir
		require.NoError(t, os.WriteFile(filepath.Join(dir, vectorindex.VectorsFile), []byte("garbage"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, vectorindex.MetadataFile), []byte("garbage"), 0o644))

		_, err := s.handleLoadSnapshot(context.Background(), callTool(map[string]interface{}{}))
		requireMCPError(t, err, ErrorCodeCorruptSnapshot)
		assert.Zero(t, s.engine.Status(context.Background()).Documents)
	})
}

func TestRegisteredTools(t *testing.T) {
	s := newTestServer(t)
	msg := s.mcp.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	for _, name := range []string{
		"index_documents", "search_documents", "get_status", "cache_stats",
		"clear_cache", "clear_index", "save_snapshot", "load_snapshot",
	} {
		assert.Contains(t, string(raw), `"`+name+`"`)
	}
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.NoError(t, validatePath(dir))
	assert.ErrorIs(t, validatePath(""), ErrPathRequired)
	assert.ErrorIs(t, validatePath("relative"), ErrPathNotAbsolute)
	assert.ErrorIs(t, validatePath(filepath.Join(dir, "missing")), ErrPathNotFound)
	assert.ErrorIs(t, validatePath(file), ErrNotDirectory)
}

func TestArgumentHelpers(t *testing.T) {
	args := map[string]interface{}{
		"b":     true,
		"i":     float64(7),
		"f":     0.25,
		"s":     "text",
		"list":  []interface{}{".pdf", 3, ".txt"},
		"plain": []string{".md"},
	}

	assert.True(t, getBoolDefault(args, "b", false))
	assert.True(t, getBoolDefault(args, "missing", true))
	assert.Equal(t, 7, getIntDefault(args, "i", 0))
	assert.Equal(t, 9, getIntDefault(args, "missing", 9))
	assert.Equal(t, 0.25, getFloatDefault(args, "f", 0))
	assert.Equal(t, 7.0, getFloatDefault(args, "i", 0))
	assert.Equal(t, "text", getStringDefault(args, "s", ""))
	assert.Equal(t, []string{".pdf", ".txt"}, getStringSlice(args, "list"))
	assert.Equal(t, []string{".md"}, getStringSlice(args, "plain"))
	assert.Nil(t, getStringSlice(args, "missing"))
}
