package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrVectorUnavailable is returned when a vector operation is attempted
	// in a build without the vector extension
	ErrVectorUnavailable = errors.New("vector extension not available")
)

// Engine owns a single SQLite database file. All indexes for one logical
// store (full-text tables, vector tables, the indexer manifest) live in
// the same file so a store can be backed up or deleted as one unit.
type Engine struct {
	db   *sql.DB
	path string
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// WAL mode is required for concurrent readers during writes. Unlike
	// the remaining pragmas this one is fatal on failure.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA mmap_size=268435456",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			slog.Warn("pragma failed", "pragma", p, "error", err)
		}
	}

	// Single connection: SQLite benefits from single writer, and FTS5
	// virtual tables do not tolerate concurrent writes well.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// Open opens (creating if necessary) the database at path. The parent
// directory is created if it does not exist.
func Open(path string) (*Engine, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Engine{db: db, path: path}, nil
}

// DB exposes the underlying connection pool
func (e *Engine) DB() *sql.DB {
	return e.db
}

// Path returns the database file path
func (e *Engine) Path() string {
	return e.path
}

// VectorAvailable reports whether this build can serve vector queries
func (e *Engine) VectorAvailable() bool {
	return VectorExtensionAvailable
}

// Size returns the on-disk size of the database file in bytes
func (e *Engine) Size() (int64, error) {
	info, err := os.Stat(e.path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat database: %w", err)
	}
	return info.Size(), nil
}

// Close closes the database connection
func (e *Engine) Close() error {
	return e.db.Close()
}

// BeginTx starts a new transaction
func (e *Engine) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return e.db.BeginTx(ctx, nil)
}

// Registry caches open engines keyed by database path so that repeated
// lookups for the same store reuse one connection instead of opening the
// file again. Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	engines map[string]*Engine
}

// NewRegistry creates an empty engine registry
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]*Engine)}
}

// GetOrOpen returns the cached engine for dir/filename, opening it on
// first use.
func (r *Registry) GetOrOpen(dir, filename string) (*Engine, error) {
	key := filepath.Join(dir, filename)

	r.mu.Lock()
	defer r.mu.Unlock()

	if eng, ok := r.engines[key]; ok {
		return eng, nil
	}

	eng, err := Open(key)
	if err != nil {
		return nil, err
	}
	r.engines[key] = eng
	return eng, nil
}

// Remove closes and evicts the engine for dir/filename if open
func (r *Registry) Remove(dir, filename string) error {
	key := filepath.Join(dir, filename)

	r.mu.Lock()
	defer r.mu.Unlock()

	eng, ok := r.engines[key]
	if !ok {
		return nil
	}
	delete(r.engines, key)
	return eng.Close()
}

// CloseAll closes every cached engine, returning the first error seen
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for key, eng := range r.engines {
		if err := eng.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s: %w", key, err)
		}
		delete(r.engines, key)
	}
	return firstErr
}
