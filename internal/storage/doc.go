// Package storage provides SQLite-based persistence for search indexes.
//
// The storage layer manages:
//   - Database engines and the engine registry
//   - Generic FTS5 full-text tables (keyword search)
//   - vec0 vector tables (nearest-neighbor search)
//   - The indexer manifest (file hashes for incremental indexing)
//
// # Engines
//
// Each logical store is a single SQLite file holding all of its tables.
// The registry caches open engines by path so repeated lookups reuse one
// connection:
//
//	reg := storage.NewRegistry()
//	eng, err := reg.GetOrOpen("~/.localsearch", "knowledge.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.CloseAll()
//
// # Full-Text Search
//
// FTSIndex wraps one FTS5 virtual table with a fixed column layout of
// (id, title, content, extras...). Only title and content are tokenized;
// ID and extra columns are stored UNINDEXED. CJK text is spaced into
// unigrams on write and restored on read, so Chinese queries work with
// the stock unicode61 tokenizer:
//
//	fts, _ := storage.NewFTSIndex(eng, storage.TableConfig{
//	    Table:        "documents_fts",
//	    IDColumn:     "doc_id",
//	    ExtraColumns: []string{"file_path", "file_type"},
//	})
//	_ = fts.EnsureTable(ctx)
//	_ = fts.Upsert(ctx, "notes/a.md:0", "a.md", content, map[string]string{
//	    "file_path": "notes/a.md",
//	    "file_type": "md",
//	})
//
//	hits, err := fts.Search(ctx, "中文搜索", 10, 0, nil)
//
// Searches that hit FTS5 index corruption trigger one automatic rebuild
// and retry before the error surfaces.
//
// # Vector Search
//
// VectorIndex wraps a vec0 virtual table from the sqlite-vec extension.
// It is fully degradable: CreateTable returns false instead of failing
// when the extension is missing, and searches against an uninitialized
// table return empty results with a warning:
//
//	vec, _ := storage.NewVectorIndex(eng, "documents_vec", 1024)
//	ok, _ := vec.CreateTable(ctx)
//	if ok {
//	    _ = vec.Upsert(ctx, "notes/a.md:0", embedding, metaJSON)
//	    hits, _ := vec.Search(ctx, queryEmbedding, 10)
//	}
//
// Vector IDs must equal full-text doc IDs so hybrid search can merge the
// two branches by key.
//
// # Build Tags
//
// The storage package supports two build configurations:
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Loads the sqlite-vec extension for vec0 tables
//
//   - Requires a C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec,fts5"
//
// Pure Go Build (default or purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - No vector tables; hybrid search degrades to keyword-only
//
//     CGO_ENABLED=0 go build -tags "purego"
package storage
