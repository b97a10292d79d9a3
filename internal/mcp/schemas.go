package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchTool returns the tool definition for search
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Search indexed documents with hybrid keyword and semantic matching",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language, keywords, or CJK text)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: hybrid (vector + keyword), semantic (vector only), or keyword (BM25 only)",
					"enum":        []string{"hybrid", "semantic", "keyword"},
					"default":     "hybrid",
				},
				"file_type": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one file type (e.g. md, txt, pdf)",
				},
				"min_score": map[string]interface{}{
					"type":        "number",
					"description": "Minimum fused relevance score (0.0-1.0). Omitted or 0 applies the default 0.05; -1 disables the filter",
					"minimum":     -1.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// indexPathTool returns the tool definition for index_path
func indexPathTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_path",
		Description: "Index a single file (txt, md, pdf, docx) into the search index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the file to index",
				},
			},
			Required: []string{"path"},
		},
	}
}

// indexDirectoryTool returns the tool definition for index_directory
func indexDirectoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_directory",
		Description: "Recursively index all supported files under a directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory to index",
				},
				"extensions": map[string]interface{}{
					"type":        "array",
					"description": "Restrict to these extensions (default: .txt .md .pdf .docx)",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"path"},
		},
	}
}

// removePathTool returns the tool definition for remove_path
func removePathTool() mcp.Tool {
	return mcp.Tool{
		Name:        "remove_path",
		Description: "Remove every indexed chunk of a file from the search index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the file to remove",
				},
			},
			Required: []string{"path"},
		},
	}
}

// addDocumentTool returns the tool definition for add_document
func addDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_document",
		Description: "Add or replace a single document in the search index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"doc_id": map[string]interface{}{
					"type":        "string",
					"description": "Unique document identifier",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Document title",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Document text content",
				},
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Source file path, if any",
				},
				"file_type": map[string]interface{}{
					"type":        "string",
					"description": "File type label (e.g. md, txt)",
				},
				"chunk_index": map[string]interface{}{
					"type":        "integer",
					"description": "Chunk position within the source file",
					"default":     0,
				},
			},
			Required: []string{"doc_id", "content"},
		},
	}
}

// removeDocumentTool returns the tool definition for remove_document
func removeDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "remove_document",
		Description: "Remove a single document from the search index by id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"doc_id": map[string]interface{}{
					"type":        "string",
					"description": "Unique document identifier",
				},
			},
			Required: []string{"doc_id"},
		},
	}
}

// getStatsTool returns the tool definition for get_stats
func getStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_stats",
		Description: "Report index statistics: document count, vector count, embedding provider, index size",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// rebuildIndexTool returns the tool definition for rebuild_index
func rebuildIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "rebuild_index",
		Description: "Rebuild the full-text index in place and verify its integrity",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
