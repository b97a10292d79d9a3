package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dshills/localsearch-mcp/internal/cjk"
)

// overFetchMultiple is how many times limit we fetch from FTS5 when a
// search carries extra-column filters. Predicates on UNINDEXED columns
// are fragile across SQLite versions, so we post-filter in Go instead
// and need headroom for rows the filter discards.
const overFetchMultiple = 5

// snippetTokens is the approximate context window around a match in a
// generated snippet.
const snippetTokens = 32

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableConfig describes the shape of one full-text table. ID and extra
// columns are stored but not tokenized; title and content are searchable.
type TableConfig struct {
	Table        string
	IDColumn     string
	ExtraColumns []string
}

// Validate checks that every identifier is safe to interpolate into DDL
func (c *TableConfig) Validate() error {
	if !identPattern.MatchString(c.Table) {
		return fmt.Errorf("invalid table name: %q", c.Table)
	}
	if !identPattern.MatchString(c.IDColumn) {
		return fmt.Errorf("invalid id column: %q", c.IDColumn)
	}
	for _, col := range c.ExtraColumns {
		if !identPattern.MatchString(col) {
			return fmt.Errorf("invalid extra column: %q", col)
		}
	}
	return nil
}

// SearchHit is one row returned from a full-text search
type SearchHit struct {
	DocID   string
	Title   string
	Snippet string
	Rank    float64 // Raw BM25 rank from FTS5, more negative is more relevant
	Extra   map[string]string
}

// FTSStats reports administrative counters for one full-text table
type FTSStats struct {
	DocumentCount int64
	TableName     string
}

// FTSIndex is a keyword-search index over one FTS5 virtual table. The
// column layout is fixed as (id, title, content, extras...) with only
// title and content tokenized.
type FTSIndex struct {
	eng *Engine
	cfg TableConfig
}

// NewFTSIndex binds a table config to an engine. EnsureTable must be
// called before any other operation.
func NewFTSIndex(eng *Engine, cfg TableConfig) (*FTSIndex, error) {
	if cfg.IDColumn == "" {
		cfg.IDColumn = "doc_id"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &FTSIndex{eng: eng, cfg: cfg}, nil
}

// Table returns the underlying virtual table name
func (f *FTSIndex) Table() string {
	return f.cfg.Table
}

// EnsureTable creates the FTS5 virtual table if absent and enables
// background segment auto-merging. Safe to call repeatedly.
func (f *FTSIndex) EnsureTable(ctx context.Context) error {
	cols := []string{f.cfg.IDColumn + " UNINDEXED", "title", "content"}
	for _, col := range f.cfg.ExtraColumns {
		cols = append(cols, col+" UNINDEXED")
	}

	ddl := fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(%s)",
		f.cfg.Table, strings.Join(cols, ", "))
	if _, err := f.eng.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create FTS table %s: %w", f.cfg.Table, err)
	}

	// Bounds search-latency growth under heavy write volume by merging
	// index segments in the background as they accumulate.
	merge := fmt.Sprintf("INSERT INTO %s(%s, rank) VALUES('automerge', 8)", f.cfg.Table, f.cfg.Table)
	if _, err := f.eng.db.ExecContext(ctx, merge); err != nil {
		return fmt.Errorf("failed to configure automerge on %s: %w", f.cfg.Table, err)
	}

	return nil
}

// upsertWithQuerier is the internal implementation that uses a querier
func (f *FTSIndex) upsertWithQuerier(ctx context.Context, q querier, docID, title, content string, extra map[string]string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	del := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", f.cfg.Table, f.cfg.IDColumn)
	if _, err := q.ExecContext(ctx, del, docID); err != nil {
		return fmt.Errorf("failed to delete existing row for %s: %w", docID, err)
	}

	cols := []string{f.cfg.IDColumn, "title", "content"}
	args := []interface{}{docID, cjk.Split(title), cjk.Split(content)}
	for _, col := range f.cfg.ExtraColumns {
		cols = append(cols, col)
		args = append(args, extra[col])
	}

	ins := fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s)",
		f.cfg.Table, strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	if _, err := q.ExecContext(ctx, ins, args...); err != nil {
		return fmt.Errorf("failed to insert row for %s: %w", docID, err)
	}

	return nil
}

// Upsert writes a document into the index, replacing any existing row
// with the same ID. Blank content is a no-op. The delete and insert run
// in one transaction so the row is never half applied.
func (f *FTSIndex) Upsert(ctx context.Context, docID, title, content string, extra map[string]string) error {
	tx, err := f.eng.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := f.upsertWithQuerier(ctx, tx, docID, title, content, extra); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertTx is Upsert running inside a caller-owned transaction
func (f *FTSIndex) UpsertTx(ctx context.Context, tx querier, docID, title, content string, extra map[string]string) error {
	return f.upsertWithQuerier(ctx, tx, docID, title, content, extra)
}

// Delete removes the row for docID; no-op if absent
func (f *FTSIndex) Delete(ctx context.Context, docID string) error {
	del := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", f.cfg.Table, f.cfg.IDColumn)
	if _, err := f.eng.db.ExecContext(ctx, del, docID); err != nil {
		return fmt.Errorf("failed to delete %s: %w", docID, err)
	}
	return nil
}

// DeleteTx is Delete running inside a caller-owned transaction
func (f *FTSIndex) DeleteTx(ctx context.Context, tx querier, docID string) error {
	del := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", f.cfg.Table, f.cfg.IDColumn)
	if _, err := tx.ExecContext(ctx, del, docID); err != nil {
		return fmt.Errorf("failed to delete %s: %w", docID, err)
	}
	return nil
}

// IDsWhere returns the doc IDs of every row whose extra column equals
// value. Used to mirror bulk deletes into the vector index.
func (f *FTSIndex) IDsWhere(ctx context.Context, column, value string) ([]string, error) {
	if !identPattern.MatchString(column) {
		return nil, fmt.Errorf("invalid column: %q", column)
	}
	sel := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", f.cfg.IDColumn, f.cfg.Table, column)
	rows, err := f.eng.db.QueryContext(ctx, sel, value)
	if err != nil {
		return nil, fmt.Errorf("failed to select ids where %s=%s: %w", column, value, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteWhere removes every row whose extra column equals value.
// Returns the number of rows removed.
func (f *FTSIndex) DeleteWhere(ctx context.Context, column, value string) (int64, error) {
	if !identPattern.MatchString(column) {
		return 0, fmt.Errorf("invalid column: %q", column)
	}
	del := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", f.cfg.Table, column)
	res, err := f.eng.db.ExecContext(ctx, del, value)
	if err != nil {
		return 0, fmt.Errorf("failed to delete where %s=%s: %w", column, value, err)
	}
	return res.RowsAffected()
}

// Search runs a ranked keyword query and returns at most limit hits,
// most relevant first. Filters reference extra columns by name and are
// applied in Go over an over-fetched candidate set. On an index
// corruption error the index is rebuilt once and the query retried.
func (f *FTSIndex) Search(ctx context.Context, query string, limit, offset int, filters map[string]string) ([]SearchHit, error) {
	if limit <= 0 {
		return []SearchHit{}, nil
	}

	sanitized := cjk.SanitizeQuery(query)
	if sanitized == "" {
		return []SearchHit{}, nil
	}

	hits, err := f.searchOnce(ctx, sanitized, limit, offset, filters)
	if err != nil && isCorruptionError(err) {
		slog.Warn("FTS index corruption detected, rebuilding", "table", f.cfg.Table, "error", err)
		if rerr := f.Rebuild(ctx); rerr != nil {
			return nil, fmt.Errorf("failed to rebuild corrupt index: %w", rerr)
		}
		hits, err = f.searchOnce(ctx, sanitized, limit, offset, filters)
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func (f *FTSIndex) searchOnce(ctx context.Context, sanitized string, limit, offset int, filters map[string]string) ([]SearchHit, error) {
	fetchLimit := limit
	fetchOffset := offset
	if len(filters) > 0 {
		// Post-filtering discards rows, so pull extra candidates and
		// re-apply offset/limit after the filter.
		fetchLimit = (limit + offset) * overFetchMultiple
		fetchOffset = 0
	}

	cols := []string{
		f.cfg.IDColumn,
		"title",
		fmt.Sprintf("snippet(%s, 2, '<b>', '</b>', '...', %d)", f.cfg.Table, snippetTokens),
		"rank",
	}
	cols = append(cols, f.cfg.ExtraColumns...)

	sqlQuery := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s MATCH ? ORDER BY rank LIMIT ? OFFSET ?",
		strings.Join(cols, ", "), f.cfg.Table, f.cfg.Table)

	rows, err := f.eng.db.QueryContext(ctx, sqlQuery, sanitized, fetchLimit, fetchOffset)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []SearchHit
	extraVals := make([]string, len(f.cfg.ExtraColumns))
	for rows.Next() {
		var hit SearchHit
		dest := []interface{}{&hit.DocID, &hit.Title, &hit.Snippet, &hit.Rank}
		for i := range extraVals {
			dest = append(dest, &extraVals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}

		if len(f.cfg.ExtraColumns) > 0 {
			hit.Extra = make(map[string]string, len(f.cfg.ExtraColumns))
			for i, col := range f.cfg.ExtraColumns {
				hit.Extra[col] = extraVals[i]
			}
		}

		if !matchesFilters(hit.Extra, filters) {
			continue
		}

		hit.Title = cjk.Restore(hit.Title)
		hit.Snippet = cjk.Restore(hit.Snippet)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(filters) > 0 {
		if offset >= len(hits) {
			return []SearchHit{}, nil
		}
		hits = hits[offset:]
		if len(hits) > limit {
			hits = hits[:limit]
		}
	}

	return hits, nil
}

func matchesFilters(extra, filters map[string]string) bool {
	for col, want := range filters {
		if extra[col] != want {
			return false
		}
	}
	return true
}

// GetContent returns the stored title and content for docID with CJK
// spacing removed. Returns ErrNotFound if the document is not indexed.
func (f *FTSIndex) GetContent(ctx context.Context, docID string) (title, content string, err error) {
	sel := fmt.Sprintf("SELECT title, content FROM %s WHERE %s = ?", f.cfg.Table, f.cfg.IDColumn)
	err = f.eng.db.QueryRowContext(ctx, sel, docID).Scan(&title, &content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrNotFound
		}
		return "", "", fmt.Errorf("failed to get content for %s: %w", docID, err)
	}
	return cjk.Restore(title), cjk.Restore(content), nil
}

// Count returns the number of indexed documents
func (f *FTSIndex) Count(ctx context.Context) (int64, error) {
	var n int64
	sel := fmt.Sprintf("SELECT COUNT(*) FROM %s", f.cfg.Table)
	if err := f.eng.db.QueryRowContext(ctx, sel).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", f.cfg.Table, err)
	}
	return n, nil
}

// Rebuild regenerates the full index contents from stored column values
func (f *FTSIndex) Rebuild(ctx context.Context) error {
	cmd := fmt.Sprintf("INSERT INTO %s(%s) VALUES('rebuild')", f.cfg.Table, f.cfg.Table)
	if _, err := f.eng.db.ExecContext(ctx, cmd); err != nil {
		return fmt.Errorf("failed to rebuild %s: %w", f.cfg.Table, err)
	}
	return nil
}

// Optimize merges all index segments without changing contents
func (f *FTSIndex) Optimize(ctx context.Context) error {
	cmd := fmt.Sprintf("INSERT INTO %s(%s) VALUES('optimize')", f.cfg.Table, f.cfg.Table)
	if _, err := f.eng.db.ExecContext(ctx, cmd); err != nil {
		return fmt.Errorf("failed to optimize %s: %w", f.cfg.Table, err)
	}
	return nil
}

// IntegrityCheck reports whether the index structure is internally
// consistent. Never mutates the index.
func (f *FTSIndex) IntegrityCheck(ctx context.Context) bool {
	cmd := fmt.Sprintf("INSERT INTO %s(%s, rank) VALUES('integrity-check', 1)", f.cfg.Table, f.cfg.Table)
	if _, err := f.eng.db.ExecContext(ctx, cmd); err != nil {
		slog.Warn("integrity check failed", "table", f.cfg.Table, "error", err)
		return false
	}
	return true
}

// Stats returns administrative counters for this table
func (f *FTSIndex) Stats(ctx context.Context) (*FTSStats, error) {
	count, err := f.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &FTSStats{DocumentCount: count, TableName: f.cfg.Table}, nil
}

// isCorruptionError reports whether err looks like FTS5 index corruption
// rather than a query or transport failure.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") ||
		strings.Contains(msg, "corrupt") ||
		strings.Contains(msg, "fts5: missing")
}
