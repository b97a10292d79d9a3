package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/localsearch-mcp/internal/searcher"
	"github.com/dshills/localsearch-mcp/internal/storage"
	"github.com/dshills/localsearch-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
	ErrorCodeNotFound      = -32005 // Document not found
)

// handleSearch handles the search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	mode := getStringDefault(args, "mode", string(searcher.SearchModeHybrid))
	switch searcher.SearchMode(mode) {
	case searcher.SearchModeHybrid, searcher.SearchModeSemantic, searcher.SearchModeKeyword:
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"value":   mode,
			"allowed": []string{"hybrid", "semantic", "keyword"},
		})
	}

	req := searcher.SearchRequest{
		Query:    query,
		Limit:    limit,
		Mode:     searcher.SearchMode(mode),
		FileType: getStringDefault(args, "file_type", ""),
		MinScore: getFloatDefault(args, "min_score", 0),
		UseCache: true,
	}

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		if errors.Is(err, storage.ErrVectorUnavailable) {
			return nil, newMCPError(ErrorCodeInvalidParams, "semantic search is not available in this build", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]interface{}{
			"doc_id":         r.DocID,
			"rank":           r.Rank,
			"score":          r.Score,
			"text_score":     r.TextScore,
			"semantic_score": r.SemanticScore,
			"match":          string(r.Match),
			"title":          r.Title,
			"snippet":        r.Snippet,
			"file_path":      r.FilePath,
			"file_type":      r.FileType,
			"chunk_index":    r.ChunkIndex,
		})
	}

	response := map[string]interface{}{
		"results":     results,
		"total":       resp.TotalResults,
		"mode":        string(resp.SearchMode),
		"duration_ms": resp.Duration.Milliseconds(),
		"cache_hit":   resp.CacheHit,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexPath handles the index_path tool invocation
func (s *Server) handleIndexPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := pathArg(request)
	if err != nil {
		return nil, err
	}

	ok, err := s.indexer.IndexPath(ctx, path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed": ok,
		"path":    path,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexDirectory handles the index_directory tool invocation
func (s *Server) handleIndexDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := pathArg(request)
	if err != nil {
		return nil, err
	}
	args, _ := request.Params.Arguments.(map[string]interface{})

	var extensions []string
	if raw, ok := args["extensions"].([]interface{}); ok {
		for _, v := range raw {
			if ext, ok := v.(string); ok && ext != "" {
				extensions = append(extensions, ext)
			}
		}
	}

	start := time.Now()
	count, err := s.indexer.IndexDirectory(ctx, path, extensions)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "directory indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed_files": count,
		"path":          path,
		"duration_ms":   time.Since(start).Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRemovePath handles the remove_path tool invocation
func (s *Server) handleRemovePath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := pathArg(request)
	if err != nil {
		return nil, err
	}

	removed, err := s.indexer.RemovePath(ctx, path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "removal failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"removed": removed,
		"path":    path,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleAddDocument handles the add_document tool invocation
func (s *Server) handleAddDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	docID, ok := args["doc_id"].(string)
	if !ok || docID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "doc_id parameter is required", map[string]interface{}{
			"param":  "doc_id",
			"reason": "missing or empty",
		})
	}
	content, ok := args["content"].(string)
	if !ok || content == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param":  "content",
			"reason": "missing or empty",
		})
	}

	doc := &types.Document{
		ID:         docID,
		Title:      getStringDefault(args, "title", ""),
		Content:    content,
		FilePath:   getStringDefault(args, "file_path", ""),
		FileType:   getStringDefault(args, "file_type", ""),
		ChunkIndex: getIntDefault(args, "chunk_index", 0),
		UpdatedAt:  time.Now().Unix(),
	}

	if err := s.searcher.AddDocument(ctx, doc); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to add document", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"added":  true,
		"doc_id": docID,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRemoveDocument handles the remove_document tool invocation
func (s *Server) handleRemoveDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	docID, ok := args["doc_id"].(string)
	if !ok || docID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "doc_id parameter is required", map[string]interface{}{
			"param":  "doc_id",
			"reason": "missing or empty",
		})
	}

	if err := s.searcher.RemoveDocument(ctx, docID); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to remove document", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"removed": true,
		"doc_id":  docID,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStats handles the get_stats tool invocation
func (s *Server) handleGetStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.searcher.Stats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get stats", map[string]interface{}{
			"error": err.Error(),
		})
	}

	size, err := s.engine.Size()
	if err != nil {
		size = 0
	}

	response := map[string]interface{}{
		"document_count":   stats.DocumentCount,
		"vector_count":     stats.VectorCount,
		"vector_enabled":   stats.VectorEnabled,
		"embedding_dims":   stats.EmbeddingDims,
		"provider":         stats.Provider,
		"model":            s.embedder.Model(),
		"index_size_bytes": size,
		"build_mode":       storage.BuildMode,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRebuildIndex handles the rebuild_index tool invocation
func (s *Server) handleRebuildIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.searcher.Rebuild(ctx); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "rebuild failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"rebuilt":      true,
		"integrity_ok": s.searcher.IntegrityCheck(ctx),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// pathArg extracts and validates the required absolute path parameter
func pathArg(request mcp.CallToolRequest) (string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if !filepath.IsAbs(path) {
		return "", newMCPError(ErrorCodeInvalidParams, "path must be absolute", map[string]interface{}{
			"param": "path",
			"value": path,
		})
	}
	return path, nil
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
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
