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

	"github.com/dshills/localsearch-mcp/internal/embedder"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv(embedder.EnvProvider, "mock")

	s, err := NewServer(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.embedder.Close()
		_ = s.registry.CloseAll()
	})
	return s
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &data))
	return data
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)

	assert.NotNil(t, s.mcp)
	assert.NotNil(t, s.engine)
	assert.NotNil(t, s.searcher)
	assert.NotNil(t, s.indexer)
	assert.NotNil(t, s.embedder)

	_, err := os.Stat(s.engine.Path())
	assert.NoError(t, err)
	assert.Equal(t, DBFilename, filepath.Base(s.engine.Path()))
}

func TestDocumentLifecycle(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleAddDocument(ctx, callRequest(map[string]interface{}{
		"doc_id":  "manual:0",
		"title":   "Manual Entry",
		"content": "a manually added document about search quality",
	}))
	require.NoError(t, err)
	data := resultJSON(t, result)
	assert.Equal(t, true, data["added"])

	result, err = s.handleSearch(ctx, callRequest(map[string]interface{}{
		"query": "search quality",
		"mode":  "keyword",
	}))
	require.NoError(t, err)
	data = resultJSON(t, result)
	require.EqualValues(t, 1, data["total"])

	results := data["results"].([]interface{})
	first := results[0].(map[string]interface{})
	assert.Equal(t, "manual:0", first["doc_id"])
	assert.Equal(t, "Manual Entry", first["title"])
	assert.Contains(t, first["snippet"], "<b>")

	result, err = s.handleRemoveDocument(ctx, callRequest(map[string]interface{}{
		"doc_id": "manual:0",
	}))
	require.NoError(t, err)
	data = resultJSON(t, result)
	assert.Equal(t, true, data["removed"])

	result, err = s.handleSearch(ctx, callRequest(map[string]interface{}{
		"query": "search quality",
		"mode":  "keyword",
	}))
	require.NoError(t, err)
	data = resultJSON(t, result)
	assert.EqualValues(t, 0, data["total"])
}

func TestFileIndexingTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "guide.md")
	require.NoError(t, os.WriteFile(path, []byte("installation guide for the desktop assistant"), 0o644))

	result, err := s.handleIndexPath(ctx, callRequest(map[string]interface{}{
		"path": path,
	}))
	require.NoError(t, err)
	data := resultJSON(t, result)
	assert.Equal(t, true, data["indexed"])

	result, err = s.handleSearch(ctx, callRequest(map[string]interface{}{
		"query": "installation guide",
		"mode":  "keyword",
	}))
	require.NoError(t, err)
	data = resultJSON(t, result)
	require.EqualValues(t, 1, data["total"])

	result, err = s.handleRemovePath(ctx, callRequest(map[string]interface{}{
		"path": path,
	}))
	require.NoError(t, err)
	data = resultJSON(t, result)
	assert.Equal(t, true, data["removed"])
}

func TestIndexDirectoryTool(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("first note"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("second note"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.bin"), []byte("skipped"), 0o644))

	result, err := s.handleIndexDirectory(ctx, callRequest(map[string]interface{}{
		"path": dir,
	}))
	require.NoError(t, err)
	data := resultJSON(t, result)
	assert.EqualValues(t, 2, data["indexed_files"])

	// Restricting extensions narrows the walk
	result, err = s.handleIndexDirectory(ctx, callRequest(map[string]interface{}{
		"path":       dir,
		"extensions": []interface{}{".md"},
	}))
	require.NoError(t, err)
	data = resultJSON(t, result)
	assert.EqualValues(t, 1, data["indexed_files"])
}

func TestGetStatsTool(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleAddDocument(ctx, callRequest(map[string]interface{}{
		"doc_id":  "stat:0",
		"content": "content for statistics",
	}))
	require.NoError(t, err)

	result, err := s.handleGetStats(ctx, callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	data := resultJSON(t, result)

	assert.EqualValues(t, 1, data["document_count"])
	assert.Equal(t, "mock", data["provider"])
	assert.NotEmpty(t, data["build_mode"])
	assert.Greater(t, data["index_size_bytes"].(float64), 0.0)
}

func TestRebuildIndexTool(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleAddDocument(ctx, callRequest(map[string]interface{}{
		"doc_id":  "keep:0",
		"content": "survives the rebuild",
	}))
	require.NoError(t, err)

	result, err := s.handleRebuildIndex(ctx, callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	data := resultJSON(t, result)
	assert.Equal(t, true, data["rebuilt"])
	assert.Equal(t, true, data["integrity_ok"])

	result, err = s.handleSearch(ctx, callRequest(map[string]interface{}{
		"query": "survives rebuild",
		"mode":  "keyword",
	}))
	require.NoError(t, err)
	data = resultJSON(t, result)
	assert.EqualValues(t, 1, data["total"])
}

func TestSearchMinScoreDisabled(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleAddDocument(ctx, callRequest(map[string]interface{}{
		"doc_id":  "weak:0",
		"content": "a short note about gardening",
	}))
	require.NoError(t, err)

	// -1 turns the score floor off entirely
	result, err := s.handleSearch(ctx, callRequest(map[string]interface{}{
		"query":     "gardening",
		"mode":      "keyword",
		"min_score": -1.0,
	}))
	require.NoError(t, err)
	data := resultJSON(t, result)
	assert.EqualValues(t, 1, data["total"])
}

func TestSearchParameterValidation(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{
			name: "missing query",
			args: map[string]interface{}{},
			code: ErrorCodeEmptyQuery,
		},
		{
			name: "empty query",
			args: map[string]interface{}{"query": ""},
			code: ErrorCodeEmptyQuery,
		},
		{
			name: "limit too large",
			args: map[string]interface{}{"query": "x", "limit": float64(500)},
			code: ErrorCodeInvalidParams,
		},
		{
			name: "bad mode",
			args: map[string]interface{}{"query": "x", "mode": "psychic"},
			code: ErrorCodeInvalidParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleSearch(ctx, callRequest(tt.args))
			require.Error(t, err)

			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, tt.code, mcpErr.Code)
		})
	}
}

func TestPathValidation(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleIndexPath(ctx, callRequest(map[string]interface{}{
		"path": "relative/path.md",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)

	_, err = s.handleRemovePath(ctx, callRequest(map[string]interface{}{}))
	require.Error(t, err)
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}
