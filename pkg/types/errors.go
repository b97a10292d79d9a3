package types

import "errors"

// Domain errors shared across packages
var (
	// Document and result validation
	ErrInvalidDocID = errors.New("invalid document ID")
	ErrInvalidRank  = errors.New("rank must be >= 1")
	ErrInvalidScore = errors.New("score must be between 0 and 1")
	ErrEmptyContent = errors.New("content cannot be empty")

	// Embedding providers
	ErrModelNotAvailable = errors.New("embedding model not available")

	// File indexing
	ErrUnsupportedFile = errors.New("unsupported file type")
)
