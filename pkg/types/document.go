package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Document is the unit of indexed content. A document carries the text
// that gets tokenized into FTS and embedded into the vector index, plus
// the metadata columns stored alongside it.
type Document struct {
	// Identification
	ID string // Stable external identifier, e.g. "notes/a.md:3"

	// Content
	Title   string
	Content string

	// Metadata
	FilePath   string
	FileType   string // Extension without the dot, e.g. "md", "pdf"
	ChunkIndex int
	UpdatedAt  int64 // Unix seconds
}

// ContentHash returns the SHA-256 hex digest of the document content.
// Used by the indexer to skip re-embedding unchanged files.
func (d *Document) ContentHash() string {
	sum := sha256.Sum256([]byte(d.Content))
	return hex.EncodeToString(sum[:])
}

// Validate checks if the document can be indexed
func (d *Document) Validate() error {
	if d.ID == "" {
		return ErrInvalidDocID
	}

	if d.Content == "" {
		return ErrEmptyContent
	}

	return nil
}

// Chunk is a slice of extracted file text produced by the splitter.
// Consecutive chunks overlap so sentences spanning a boundary remain
// searchable in both.
type Chunk struct {
	Index   int
	Content string
}

// Validate checks if the chunk content is valid
func (c *Chunk) Validate() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}

	if c.Index < 0 {
		return errors.New("chunk index must be non-negative")
	}

	return nil
}
