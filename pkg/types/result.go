package types

// MatchType identifies which search branch produced a result
type MatchType string

const (
	MatchKeyword  MatchType = "keyword"
	MatchSemantic MatchType = "semantic"
	MatchHybrid   MatchType = "hybrid"
)

// SearchResult represents a single search result with relevance information
type SearchResult struct {
	// Identification
	DocID string
	Rank  int // Position in result set (1-based)

	// Scoring
	Score         float64 // Fused score in [0, 1]
	TextScore     float64 // Normalized BM25 contribution, 0 if no keyword match
	SemanticScore float64 // Cosine similarity contribution, 0 if no vector match
	Match         MatchType

	// Content
	Title   string
	Snippet string // Highlighted excerpt from FTS, or a content prefix

	// Metadata
	FilePath   string
	FileType   string
	ChunkIndex int
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.DocID == "" {
		return ErrInvalidDocID
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.Score < 0 || sr.Score > 1 {
		return ErrInvalidScore
	}

	return nil
}

// IndexStats summarizes the state of one search index
type IndexStats struct {
	DocumentCount int64  `json:"document_count"`
	VectorCount   int64  `json:"vector_count"`
	IndexSize     int64  `json:"index_size_bytes"`
	EmbeddingDims int    `json:"embedding_dims,omitempty"`
	Provider      string `json:"provider,omitempty"`
	VectorEnabled bool   `json:"vector_enabled"`
}
