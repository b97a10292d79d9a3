package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// VectorHit is one row returned from a nearest-neighbor search. Distance
// is cosine distance, smaller is more similar. Similarity in [0,1] is
// recovered as max(0, 1 - Distance).
type VectorHit struct {
	DocID    string
	Distance float64
	Metadata []byte
}

// VectorIndex is a kNN index over one vec0 virtual table plus a
// companion metadata table. Entirely optional: in builds without the
// vector extension every operation degrades instead of failing, so
// hybrid search falls back to keyword-only.
type VectorIndex struct {
	eng   *Engine
	table string
	dims  int
	ready bool
}

// NewVectorIndex binds a vec0 table name to an engine. CreateTable must
// be called before any other operation.
func NewVectorIndex(eng *Engine, table string, dims int) (*VectorIndex, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %d", dims)
	}
	return &VectorIndex{eng: eng, table: table, dims: dims}, nil
}

// Table returns the underlying virtual table name
func (v *VectorIndex) Table() string {
	return v.table
}

// Dimensions returns the declared embedding width
func (v *VectorIndex) Dimensions() int {
	return v.dims
}

// Ready reports whether CreateTable succeeded and kNN queries can run
func (v *VectorIndex) Ready() bool {
	return v.ready
}

// CreateTable creates the vec0 virtual table and its metadata companion
// if absent. Returns false without error when the vector extension is
// unavailable or the declared dimensionality is rejected; callers treat
// false as "run keyword-only".
func (v *VectorIndex) CreateTable(ctx context.Context) (bool, error) {
	if !VectorExtensionAvailable {
		slog.Info("vector extension not available, semantic search disabled", "build", BuildMode)
		return false, nil
	}

	vecDDL := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(doc_id TEXT PRIMARY KEY, embedding float[%d])",
		v.table, v.dims)
	if _, err := v.eng.db.ExecContext(ctx, vecDDL); err != nil {
		slog.Warn("failed to create vector table", "table", v.table, "dims", v.dims, "error", err)
		return false, nil
	}

	metaDDL := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s_meta (doc_id TEXT PRIMARY KEY, metadata TEXT NOT NULL DEFAULT '{}')",
		v.table)
	if _, err := v.eng.db.ExecContext(ctx, metaDDL); err != nil {
		return false, fmt.Errorf("failed to create metadata table for %s: %w", v.table, err)
	}

	v.ready = true
	return true, nil
}

// Upsert writes an embedding, replacing any existing row with the same
// ID. The ID must equal the corresponding full-text doc_id so hybrid
// search can merge branches. vec0 does not support ON CONFLICT, so the
// upsert is a delete plus insert in one transaction.
func (v *VectorIndex) Upsert(ctx context.Context, docID string, embedding []float32, metadata []byte) error {
	if !v.ready {
		return ErrVectorUnavailable
	}
	if len(embedding) != v.dims {
		return fmt.Errorf("embedding has %d dimensions, table expects %d", len(embedding), v.dims)
	}

	blob, err := serializeVector(embedding)
	if err != nil {
		return fmt.Errorf("failed to serialize embedding: %w", err)
	}

	tx, err := v.eng.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin vector upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	del := fmt.Sprintf("DELETE FROM %s WHERE doc_id = ?", v.table)
	if _, err := tx.ExecContext(ctx, del, docID); err != nil {
		return fmt.Errorf("failed to delete existing vector %s: %w", docID, err)
	}

	ins := fmt.Sprintf("INSERT INTO %s(doc_id, embedding) VALUES (?, ?)", v.table)
	if _, err := tx.ExecContext(ctx, ins, docID, blob); err != nil {
		return fmt.Errorf("failed to insert vector %s: %w", docID, err)
	}

	meta := "{}"
	if len(metadata) > 0 {
		meta = string(metadata)
	}
	metaIns := fmt.Sprintf(
		"INSERT INTO %s_meta(doc_id, metadata) VALUES (?, ?) ON CONFLICT(doc_id) DO UPDATE SET metadata = excluded.metadata",
		v.table)
	if _, err := tx.ExecContext(ctx, metaIns, docID, meta); err != nil {
		return fmt.Errorf("failed to upsert vector metadata %s: %w", docID, err)
	}

	return tx.Commit()
}

// Search returns up to limit nearest records ordered by ascending
// distance. A missing or uninitialized table yields an empty result and
// a warning rather than an error.
func (v *VectorIndex) Search(ctx context.Context, query []float32, limit int) ([]VectorHit, error) {
	if limit <= 0 {
		return []VectorHit{}, nil
	}
	if !v.ready {
		slog.Warn("vector search against uninitialized table", "table", v.table)
		return []VectorHit{}, nil
	}
	if len(query) != v.dims {
		return nil, fmt.Errorf("query has %d dimensions, table expects %d", len(query), v.dims)
	}

	blob, err := serializeVector(query)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query vector: %w", err)
	}

	sel := fmt.Sprintf(`
		SELECT v.doc_id, v.distance, COALESCE(m.metadata, '{}')
		FROM %s v
		LEFT JOIN %s_meta m ON m.doc_id = v.doc_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, v.table, v.table)

	rows, err := v.eng.db.QueryContext(ctx, sel, blob, limit)
	if err != nil {
		slog.Warn("vector search failed, returning empty results", "table", v.table, "error", err)
		return []VectorHit{}, nil
	}
	defer func() { _ = rows.Close() }()

	hits := make([]VectorHit, 0, limit)
	for rows.Next() {
		var hit VectorHit
		var meta string
		if err := rows.Scan(&hit.DocID, &hit.Distance, &meta); err != nil {
			return nil, fmt.Errorf("failed to scan vector hit: %w", err)
		}
		hit.Metadata = []byte(meta)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return hits, nil
}

// Delete removes the vector and metadata for docID; no-op if absent
func (v *VectorIndex) Delete(ctx context.Context, docID string) error {
	if !v.ready {
		return nil
	}

	tx, err := v.eng.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin vector delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	del := fmt.Sprintf("DELETE FROM %s WHERE doc_id = ?", v.table)
	if _, err := tx.ExecContext(ctx, del, docID); err != nil {
		return fmt.Errorf("failed to delete vector %s: %w", docID, err)
	}
	metaDel := fmt.Sprintf("DELETE FROM %s_meta WHERE doc_id = ?", v.table)
	if _, err := tx.ExecContext(ctx, metaDel, docID); err != nil {
		return fmt.Errorf("failed to delete vector metadata %s: %w", docID, err)
	}

	return tx.Commit()
}

// Count returns the number of stored vectors, 0 when unavailable
func (v *VectorIndex) Count(ctx context.Context) (int64, error) {
	if !v.ready {
		return 0, nil
	}

	var n int64
	sel := fmt.Sprintf("SELECT COUNT(*) FROM %s", v.table)
	if err := v.eng.db.QueryRowContext(ctx, sel).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", v.table, err)
	}
	return n, nil
}
