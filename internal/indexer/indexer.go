package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/localsearch-mcp/internal/searcher"
	"github.com/dshills/localsearch-mcp/internal/storage"
	"github.com/dshills/localsearch-mcp/pkg/types"
)

// DefaultMaxFileSize is the largest file IndexDirectory will pick up.
const DefaultMaxFileSize = 10 * 1024 * 1024

// DefaultExtensions are the file types indexed when none are specified.
var DefaultExtensions = []string{".txt", ".md", ".pdf", ".docx"}

// Config contains configuration for the indexer
type Config struct {
	ChunkSize    int      // Target chunk length in runes (default: 1000)
	ChunkOverlap int      // Overlap between consecutive chunks (default: 100)
	MaxFileSize  int64    // Largest indexable file in bytes (default: 10MB)
	Workers      int      // Concurrent files during directory indexing (default: runtime.NumCPU())
	Extensions   []string // Allowed extensions (default: .txt .md .pdf .docx)
}

// Indexer keeps the hybrid search index synchronized with files on disk.
// It owns chunk boundaries and the indexed-file manifest; all index writes
// go through the searcher's write path.
type Indexer struct {
	searcher *searcher.Searcher
	manifest *storage.Manifest

	chunkSize    int
	chunkOverlap int
	maxFileSize  int64
	workers      int
	extensions   map[string]bool

	// In-memory hash cache for the incremental short-circuit,
	// seeded from the manifest table on startup
	mu     sync.RWMutex
	hashes map[string]string
}

// New creates an Indexer writing through s, with bookkeeping in manifest.
func New(s *searcher.Searcher, manifest *storage.Manifest, config *Config) *Indexer {
	if config == nil {
		config = &Config{}
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.ChunkOverlap <= 0 {
		config.ChunkOverlap = DefaultChunkOverlap
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	exts := config.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	idx := &Indexer{
		searcher:     s,
		manifest:     manifest,
		chunkSize:    config.ChunkSize,
		chunkOverlap: config.ChunkOverlap,
		maxFileSize:  config.MaxFileSize,
		workers:      config.Workers,
		extensions:   make(map[string]bool, len(exts)),
		hashes:       make(map[string]string),
	}
	for _, ext := range exts {
		idx.extensions[strings.ToLower(ext)] = true
	}
	return idx
}

// LoadManifest seeds the in-memory hash cache from the manifest table so
// unchanged files survive a process restart without re-embedding.
func (idx *Indexer) LoadManifest(ctx context.Context) error {
	records, err := idx.manifest.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, rec := range records {
		idx.hashes[rec.FilePath] = rec.ContentHash
	}
	return nil
}

// IndexPath indexes a single file. It returns false without error for
// nonexistent paths, unsupported extensions, oversized files, and files
// with no extractable text; it returns true when the file was indexed or
// its content hash is unchanged since the last indexing.
func (idx *Indexer) IndexPath(ctx context.Context, path string) (bool, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		slog.Debug("not an indexable file", "path", path)
		return false, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !idx.extensions[ext] {
		slog.Debug("unsupported file type", "path", path, "ext", ext)
		return false, nil
	}

	if info.Size() > idx.maxFileSize {
		slog.Warn("file exceeds maximum size, skipping",
			"path", path, "size", info.Size(), "max", idx.maxFileSize)
		return false, nil
	}

	hash, err := hashFile(path)
	if err != nil {
		return false, err
	}
	if idx.cachedHash(path) == hash {
		slog.Debug("file unchanged, skipping", "path", path)
		return true, nil
	}

	content, err := extractText(path, ext)
	if err != nil {
		if errors.Is(err, types.ErrUnsupportedFile) {
			slog.Debug("extraction unavailable, skipping", "path", path, "error", err)
			return false, nil
		}
		return false, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	if strings.TrimSpace(content) == "" {
		slog.Debug("file has no text content", "path", path)
		return false, nil
	}

	chunks := SplitChunks(content, idx.chunkSize, idx.chunkOverlap)

	// Clear prior chunks first so a shrinking file leaves no orphans
	if _, err := idx.searcher.RemoveByFilePath(ctx, path); err != nil {
		return false, fmt.Errorf("failed to clear old chunks: %w", err)
	}

	title := strings.TrimSuffix(filepath.Base(path), ext)
	fileType := strings.TrimPrefix(ext, ".")
	now := time.Now().Unix()

	docs := make([]*types.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = &types.Document{
			ID:         fmt.Sprintf("%s:%d", path, i),
			Title:      title,
			Content:    chunk,
			FilePath:   path,
			FileType:   fileType,
			ChunkIndex: i,
			UpdatedAt:  now,
		}
	}

	if err := idx.searcher.AddDocuments(ctx, docs); err != nil {
		return false, fmt.Errorf("failed to index %s: %w", path, err)
	}

	if err := idx.manifest.Put(ctx, &storage.FileRecord{
		FilePath:    path,
		ContentHash: hash,
		ChunkCount:  len(chunks),
		SizeBytes:   info.Size(),
	}); err != nil {
		return false, err
	}
	idx.setCachedHash(path, hash)

	slog.Info("indexed file", "path", path, "chunks", len(chunks), "bytes", info.Size())
	return true, nil
}

// IndexDirectory recursively indexes every supported file under dir,
// skipping hidden files and directories and files over the size limit.
// A single file's failure is logged and does not abort the walk. Returns
// the number of files successfully indexed.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, extensions []string) (int, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve directory: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", dir)
	}

	allowed := idx.extensions
	if len(extensions) > 0 {
		allowed = make(map[string]bool, len(extensions))
		for _, ext := range extensions {
			allowed[strings.ToLower(ext)] = true
		}
	}

	files, err := idx.discoverFiles(dir, allowed)
	if err != nil {
		return 0, fmt.Errorf("failed to discover files: %w", err)
	}

	var indexed int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)

	for _, path := range files {
		g.Go(func() error {
			ok, err := idx.IndexPath(gctx, path)
			if err != nil {
				slog.Warn("failed to index file", "path", path, "error", err)
				return nil
			}
			if ok {
				atomic.AddInt32(&indexed, 1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(atomic.LoadInt32(&indexed)), err
	}

	count := int(atomic.LoadInt32(&indexed))
	slog.Info("directory indexed", "dir", dir, "files", count)
	return count, nil
}

// discoverFiles walks dir collecting indexable files
func (idx *Indexer) discoverFiles(dir string, allowed map[string]bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !allowed[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !info.Mode().IsRegular() || info.Size() > idx.maxFileSize {
			slog.Debug("skipping file", "path", path, "size", info.Size())
			return nil
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// RemovePath deletes every chunk for the file at path from both indexes
// and forgets its manifest entry. Returns whether anything was removed.
func (idx *Indexer) RemovePath(ctx context.Context, path string) (bool, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}

	removed, err := idx.searcher.RemoveByFilePath(ctx, path)
	if err != nil {
		return false, err
	}
	if err := idx.manifest.Delete(ctx, path); err != nil {
		return false, err
	}

	idx.mu.Lock()
	delete(idx.hashes, path)
	idx.mu.Unlock()

	if removed > 0 {
		slog.Info("removed file from index", "path", path, "chunks", removed)
	}
	return removed > 0, nil
}

func (idx *Indexer) cachedHash(path string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.hashes[path]
}

func (idx *Indexer) setCachedHash(path, hash string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.hashes[path] = hash
}

// hashFile computes the SHA-256 hash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
