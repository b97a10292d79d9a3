// Package indexer keeps the hybrid search index synchronized with files
// on disk.
//
// # Pipeline
//
// Indexing a file runs: hash -> extract -> chunk -> clear old chunks ->
// write chunks (with batch embedding when semantic search is enabled) ->
// update manifest. Document IDs are "<absolute path>:<chunk index>", so a
// file's chunks can always be removed as a unit by file path.
//
// # Incremental indexing
//
// The indexer keeps a SHA-256 content hash per indexed file, cached in
// memory and persisted in the manifest table alongside the search indexes.
// Re-indexing a file whose hash is unchanged is a no-op: the file is never
// re-read past hashing and never re-embedded. LoadManifest seeds the cache
// after a restart.
//
// # Chunking
//
// SplitChunks slides a fixed-size rune window over the text, preferring to
// cut at a paragraph break, then at a CJK or ASCII sentence terminator,
// when either falls in the second half of the window. Consecutive chunks
// overlap so context survives a cut.
//
// # File types
//
// Plain text and Markdown are read directly, with a GB18030 fallback for
// non-UTF-8 files. PDF and DOCX extraction is compiled in only under the
// docext build tag; without it those files are skipped as unsupported.
//
// # Directory indexing
//
// IndexDirectory walks the tree with a bounded worker pool, skipping
// hidden path segments and oversized files. One file failing to index is
// logged and does not stop the walk.
package indexer
