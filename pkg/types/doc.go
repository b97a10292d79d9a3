// Package types provides shared type definitions for the LocalSearch MCP server.
//
// This package defines domain types used across multiple components of
// LocalSearch, including documents, file chunks, search results, and the
// sentinel errors shared between the storage, embedding, and indexing layers.
//
// # Core Types
//
// Document is the unit of indexed content. A document may be a whole note
// or one chunk of a larger file:
//
//	doc := &types.Document{
//	    ID:       "notes/design.md:0",
//	    Title:    "design.md",
//	    Content:  chunkText,
//	    FilePath: "notes/design.md",
//	    FileType: "md",
//	}
//
// SearchResult combines a fused relevance score with the per-branch scores
// that produced it:
//
//	result := &types.SearchResult{
//	    DocID:   "notes/design.md:0",
//	    Rank:    1,
//	    Score:   0.92,
//	    Match:   types.MatchHybrid,
//	    Snippet: "<b>vector</b> fusion strategy...",
//	}
//
// Scores are normalized to [0, 1], with higher values indicating better
// matches.
//
// # Sentinel Errors
//
// ErrModelNotAvailable distinguishes "the embedding model is not pulled"
// from transport failures, so callers can degrade to keyword-only search:
//
//	if errors.Is(err, types.ErrModelNotAvailable) {
//	    // fall back to FTS-only search
//	}
package types
