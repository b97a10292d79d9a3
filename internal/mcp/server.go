package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/localsearch-mcp/internal/embedder"
	"github.com/dshills/localsearch-mcp/internal/indexer"
	"github.com/dshills/localsearch-mcp/internal/searcher"
	"github.com/dshills/localsearch-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "localsearch-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DBFilename is the SQLite file holding all indexes for one store
	DBFilename = "localsearch.db"

	ftsTable    = "documents"
	vectorTable = "documents_vec"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	registry *storage.Registry
	engine   *storage.Engine
	searcher *searcher.Searcher
	indexer  *indexer.Indexer
	embedder embedder.Embedder
}

// NewServer creates a new MCP server instance with its index stored under
// dataDir (default ~/.localsearch).
func NewServer(ctx context.Context, dataDir string) (*Server, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".localsearch")
	}

	registry := storage.NewRegistry()
	eng, err := registry.GetOrOpen(dataDir, DBFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	fts, err := storage.NewFTSIndex(eng, storage.TableConfig{
		Table:        ftsTable,
		ExtraColumns: []string{"file_path", "file_type", "chunk_index"},
	})
	if err != nil {
		return nil, err
	}
	if err := fts.EnsureTable(ctx); err != nil {
		return nil, err
	}

	manifest := storage.NewManifest(eng)
	if err := manifest.EnsureTable(ctx); err != nil {
		return nil, err
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	// Vector search degrades to keyword-only when the extension is not
	// compiled in or the table cannot be created
	var vec *storage.VectorIndex
	if eng.VectorAvailable() {
		vec, err = storage.NewVectorIndex(eng, vectorTable, emb.Dimension())
		if err != nil {
			return nil, err
		}
		if _, err := vec.CreateTable(ctx); err != nil {
			return nil, err
		}
	}

	srch := searcher.NewSearcher(fts, vec, emb)

	idx := indexer.New(srch, manifest, nil)
	if err := idx.LoadManifest(ctx); err != nil {
		return nil, err
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		registry: registry,
		engine:   eng,
		searcher: srch,
		indexer:  idx,
		embedder: emb,
	}
	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		_ = s.embedder.Close()
		_ = s.registry.CloseAll()
	}()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(indexPathTool(), s.handleIndexPath)
	s.mcp.AddTool(indexDirectoryTool(), s.handleIndexDirectory)
	s.mcp.AddTool(removePathTool(), s.handleRemovePath)
	s.mcp.AddTool(addDocumentTool(), s.handleAddDocument)
	s.mcp.AddTool(removeDocumentTool(), s.handleRemoveDocument)
	s.mcp.AddTool(getStatsTool(), s.handleGetStats)
	s.mcp.AddTool(rebuildIndexTool(), s.handleRebuildIndex)
}
