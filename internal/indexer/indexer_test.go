package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/dshills/localsearch-mcp/internal/embedder"
	"github.com/dshills/localsearch-mcp/internal/searcher"
	"github.com/dshills/localsearch-mcp/internal/storage"
)

type testEnv struct {
	searcher *searcher.Searcher
	manifest *storage.Manifest
	indexer  *Indexer
	dir      string
}

func newTestEnv(t *testing.T, config *Config) *testEnv {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	eng, err := storage.Open(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	fts, err := storage.NewFTSIndex(eng, storage.TableConfig{
		Table:        "documents",
		ExtraColumns: []string{"file_path", "file_type", "chunk_index"},
	})
	require.NoError(t, err)
	require.NoError(t, fts.EnsureTable(ctx))

	manifest := storage.NewManifest(eng)
	require.NoError(t, manifest.EnsureTable(ctx))

	mock, err := embedder.NewMockProvider(embedder.MockDimension, nil)
	require.NoError(t, err)

	s := searcher.NewSearcher(fts, nil, mock)
	return &testEnv{
		searcher: s,
		manifest: manifest,
		indexer:  New(s, manifest, config),
		dir:      dir,
	}
}

func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (e *testEnv) docCount(t *testing.T) int64 {
	t.Helper()
	stats, err := e.searcher.Stats(context.Background())
	require.NoError(t, err)
	return stats.DocumentCount
}

func TestIndexPathTextFile(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	path := env.writeFile(t, "notes.md", "hybrid search combines keyword and vector retrieval")

	ok, err := env.indexer.IndexPath(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 1, env.docCount(t))

	resp, err := env.searcher.Search(ctx, searcher.SearchRequest{
		Query: "vector retrieval",
		Mode:  searcher.SearchModeKeyword,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	top := resp.Results[0]
	assert.Equal(t, path+":0", top.DocID)
	assert.Equal(t, "notes", top.Title)
	assert.Equal(t, path, top.FilePath)
	assert.Equal(t, "md", top.FileType)
	assert.Zero(t, top.ChunkIndex)

	rec, err := env.manifest.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ChunkCount)
	assert.NotEmpty(t, rec.ContentHash)
}

func TestIndexPathMultiChunk(t *testing.T) {
	env := newTestEnv(t, &Config{ChunkSize: 50, ChunkOverlap: 10})
	ctx := context.Background()

	path := env.writeFile(t, "long.txt", strings.Repeat("alpha beta gamma delta. ", 20))

	ok, err := env.indexer.IndexPath(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)

	count := env.docCount(t)
	assert.Greater(t, count, int64(1))

	rec, err := env.manifest.Get(ctx, path)
	require.NoError(t, err)
	assert.EqualValues(t, count, rec.ChunkCount)
}

func TestIndexPathMissingFile(t *testing.T) {
	env := newTestEnv(t, nil)

	ok, err := env.indexer.IndexPath(context.Background(), filepath.Join(env.dir, "nope.md"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexPathUnsupportedExtension(t *testing.T) {
	env := newTestEnv(t, nil)
	path := env.writeFile(t, "binary.exe", "not text")

	ok, err := env.indexer.IndexPath(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, env.docCount(t))
}

func TestIndexPathEmptyFile(t *testing.T) {
	env := newTestEnv(t, nil)
	path := env.writeFile(t, "empty.txt", "   \n\n  ")

	ok, err := env.indexer.IndexPath(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexPathTooLargeSkips(t *testing.T) {
	env := newTestEnv(t, &Config{MaxFileSize: 10})
	path := env.writeFile(t, "big.txt", strings.Repeat("x", 100))

	// Oversized files are a skip, like unsupported or empty ones,
	// never an error
	ok, err := env.indexer.IndexPath(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, env.docCount(t))
}

func TestIndexPathPDFWithoutExtraction(t *testing.T) {
	if extractionAvailable() {
		t.Skip("docext build has pdf extraction")
	}
	env := newTestEnv(t, nil)
	path := env.writeFile(t, "doc.pdf", "%PDF-1.4 fake")

	ok, err := env.indexer.IndexPath(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func extractionAvailable() bool {
	_, err := extractPDF(os.DevNull)
	return !strings.Contains(err.Error(), "docext")
}

func TestIndexPathIncrementalSkip(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	path := env.writeFile(t, "stable.md", "content that does not change")

	ok, err := env.indexer.IndexPath(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)

	// Remove the chunk behind the indexer's back; an unchanged hash must
	// short-circuit without rewriting it
	require.NoError(t, env.searcher.RemoveDocument(ctx, path+":0"))

	ok, err = env.indexer.IndexPath(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, env.docCount(t))
}

func TestIndexPathReindexChangedFile(t *testing.T) {
	env := newTestEnv(t, &Config{ChunkSize: 50, ChunkOverlap: 10})
	ctx := context.Background()

	path := env.writeFile(t, "doc.txt", strings.Repeat("first version sentence. ", 10))
	ok, err := env.indexer.IndexPath(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)
	oldCount := env.docCount(t)
	require.Greater(t, oldCount, int64(1))

	// Shrink the file; the old chunk set must not leave orphans
	env.writeFile(t, "doc.txt", "tiny second version")
	ok, err = env.indexer.IndexPath(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 1, env.docCount(t))

	resp, err := env.searcher.Search(ctx, searcher.SearchRequest{
		Query: "first version",
		Mode:  searcher.SearchModeKeyword,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestIndexPathGBKFallback(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	encoded, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte("这是中文编码测试文档"))
	require.NoError(t, err)
	path := filepath.Join(env.dir, "gbk.txt")
	require.NoError(t, os.WriteFile(path, encoded, 0o644))

	ok, err := env.indexer.IndexPath(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)

	resp, err := env.searcher.Search(ctx, searcher.SearchRequest{
		Query: "编码测试",
		Mode:  searcher.SearchModeKeyword,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, path+":0", resp.Results[0].DocID)
}

func TestIndexDirectory(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.writeFile(t, "a.md", "first document about search")
	env.writeFile(t, "sub/b.txt", "second document about vectors")
	env.writeFile(t, "sub/c.exe", "unsupported type")
	env.writeFile(t, ".hidden/secret.md", "hidden directory content")
	env.writeFile(t, ".dotfile.md", "hidden file content")

	count, err := env.indexer.IndexDirectory(ctx, env.dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	resp, err := env.searcher.Search(ctx, searcher.SearchRequest{
		Query: "hidden",
		Mode:  searcher.SearchModeKeyword,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestIndexDirectoryExtensionFilter(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.writeFile(t, "a.md", "markdown document")
	env.writeFile(t, "b.txt", "text document")

	count, err := env.indexer.IndexDirectory(ctx, env.dir, []string{".md"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIndexDirectorySkipsOversize(t *testing.T) {
	env := newTestEnv(t, &Config{MaxFileSize: 30})
	ctx := context.Background()

	env.writeFile(t, "small.txt", "fits")
	env.writeFile(t, "large.txt", strings.Repeat("too big ", 20))

	count, err := env.indexer.IndexDirectory(ctx, env.dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIndexDirectoryNotADirectory(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.indexer.IndexDirectory(context.Background(), filepath.Join(env.dir, "missing"), nil)
	assert.Error(t, err)
}

func TestRemovePath(t *testing.T) {
	env := newTestEnv(t, &Config{ChunkSize: 50, ChunkOverlap: 10})
	ctx := context.Background()

	path := env.writeFile(t, "gone.txt", strings.Repeat("removable content here. ", 10))
	ok, err := env.indexer.IndexPath(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)
	require.Greater(t, env.docCount(t), int64(1))

	removed, err := env.indexer.RemovePath(ctx, path)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Zero(t, env.docCount(t))

	_, err = env.manifest.Get(ctx, path)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Second removal finds nothing
	removed, err = env.indexer.RemovePath(ctx, path)
	require.NoError(t, err)
	assert.False(t, removed)

	// A fresh index works after removal since the hash cache was cleared
	ok, err = env.indexer.IndexPath(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Greater(t, env.docCount(t), int64(1))
}

func TestLoadManifest(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	path := env.writeFile(t, "persist.md", "survives a restart")
	ok, err := env.indexer.IndexPath(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)

	// A fresh indexer over the same store skips the unchanged file after
	// seeding its cache from the manifest
	fresh := New(env.searcher, env.manifest, nil)
	require.NoError(t, fresh.LoadManifest(ctx))

	require.NoError(t, env.searcher.RemoveDocument(ctx, path+":0"))
	ok, err = fresh.IndexPath(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, env.docCount(t))
}
