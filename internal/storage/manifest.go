package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const manifestSchema = `
CREATE TABLE IF NOT EXISTS indexed_files (
    file_path TEXT PRIMARY KEY,
    content_hash TEXT NOT NULL,
    chunk_count INTEGER NOT NULL DEFAULT 0,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_indexed_files_hash ON indexed_files(content_hash);
`

// FileRecord tracks one indexed file so re-indexing can skip files whose
// content hash is unchanged.
type FileRecord struct {
	FilePath    string
	ContentHash string
	ChunkCount  int
	SizeBytes   int64
	IndexedAt   time.Time
}

// Manifest is the indexer's bookkeeping table. It lives in the same
// database file as the search indexes so the whole store moves as one
// unit.
type Manifest struct {
	eng *Engine
}

// NewManifest binds the manifest to an engine
func NewManifest(eng *Engine) *Manifest {
	return &Manifest{eng: eng}
}

// EnsureTable creates the manifest table if absent
func (m *Manifest) EnsureTable(ctx context.Context) error {
	if _, err := m.eng.db.ExecContext(ctx, manifestSchema); err != nil {
		return fmt.Errorf("failed to create manifest table: %w", err)
	}
	return nil
}

// Get returns the record for filePath, or ErrNotFound
func (m *Manifest) Get(ctx context.Context, filePath string) (*FileRecord, error) {
	query := `
		SELECT file_path, content_hash, chunk_count, size_bytes, indexed_at
		FROM indexed_files
		WHERE file_path = ?
	`
	var rec FileRecord
	err := m.eng.db.QueryRowContext(ctx, query, filePath).Scan(
		&rec.FilePath, &rec.ContentHash, &rec.ChunkCount, &rec.SizeBytes, &rec.IndexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file record: %w", err)
	}
	return &rec, nil
}

// Put inserts or updates the record for rec.FilePath
func (m *Manifest) Put(ctx context.Context, rec *FileRecord) error {
	query := `
		INSERT INTO indexed_files (file_path, content_hash, chunk_count, size_bytes, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			content_hash = excluded.content_hash,
			chunk_count = excluded.chunk_count,
			size_bytes = excluded.size_bytes,
			indexed_at = excluded.indexed_at
	`
	now := time.Now()
	if _, err := m.eng.db.ExecContext(ctx, query,
		rec.FilePath, rec.ContentHash, rec.ChunkCount, rec.SizeBytes, now); err != nil {
		return fmt.Errorf("failed to put file record: %w", err)
	}
	rec.IndexedAt = now
	return nil
}

// Delete removes the record for filePath; no-op if absent
func (m *Manifest) Delete(ctx context.Context, filePath string) error {
	if _, err := m.eng.db.ExecContext(ctx,
		"DELETE FROM indexed_files WHERE file_path = ?", filePath); err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	return nil
}

// All returns every tracked file record
func (m *Manifest) All(ctx context.Context) ([]FileRecord, error) {
	query := `
		SELECT file_path, content_hash, chunk_count, size_bytes, indexed_at
		FROM indexed_files
		ORDER BY file_path
	`
	rows, err := m.eng.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list file records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []FileRecord
	for rows.Next() {
		var rec FileRecord
		if err := rows.Scan(&rec.FilePath, &rec.ContentHash, &rec.ChunkCount,
			&rec.SizeBytes, &rec.IndexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of tracked files
func (m *Manifest) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := m.eng.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM indexed_files").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count file records: %w", err)
	}
	return n, nil
}
