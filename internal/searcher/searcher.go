package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/localsearch-mcp/internal/embedder"
	"github.com/dshills/localsearch-mcp/internal/storage"
	"github.com/dshills/localsearch-mcp/pkg/types"
)

// SearchMode defines how search is performed
type SearchMode string

const (
	SearchModeHybrid   SearchMode = "hybrid"   // Weighted fusion of vector + BM25
	SearchModeSemantic SearchMode = "semantic" // Vector similarity only
	SearchModeKeyword  SearchMode = "keyword"  // BM25 text search only
)

// Default fusion parameters. The weights should sum to 1.0; this is a
// documented contract, not an enforced one.
const (
	DefaultVectorWeight = 0.6
	DefaultTextWeight   = 0.4
	DefaultMinScore     = 0.05
	DefaultLimit        = 10
	MaxLimit            = 100
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query        string
	Limit        int
	Mode         SearchMode
	FileType     string  // Optional: restrict to one file type
	MinScore     float64 // Score floor; 0 applies the default, negative disables the filter
	VectorWeight float64
	TextWeight   float64
	UseCache     bool // Whether to use query cache
	CacheTTL     time.Duration
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results      []types.SearchResult
	TotalResults int
	SearchMode   SearchMode
	Duration     time.Duration
	CacheHit     bool
	VectorHits   int // Candidates returned by the vector branch
	TextHits     int // Candidates returned by the keyword branch
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher coordinates hybrid search over one full-text index and its
// paired vector index, and owns the write path that keeps the two in
// sync.
type Searcher struct {
	fts      *storage.FTSIndex
	vec      *storage.VectorIndex
	embedder embedder.Embedder
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// NewSearcher creates a new Searcher instance. vec may be nil (or not
// ready) and emb may be nil; either disables the semantic branch.
func NewSearcher(fts *storage.FTSIndex, vec *storage.VectorIndex, emb embedder.Embedder) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](1000)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		fts:      fts,
		vec:      vec,
		embedder: emb,
		cache:    cache,
	}
}

// SemanticEnabled reports whether the vector branch can run
func (s *Searcher) SemanticEnabled() bool {
	return s.vec != nil && s.vec.Ready() && s.embedder != nil
}

// Search performs a search based on the request parameters. Empty
// queries return an empty response without touching any index.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	s.normalizeRequest(&req)

	if strings.TrimSpace(req.Query) == "" || req.Limit <= 0 {
		return &SearchResponse{Results: []types.SearchResult{}, SearchMode: req.Mode}, nil
	}

	// Check cache if enabled
	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	var response *SearchResponse
	var err error

	switch req.Mode {
	case SearchModeHybrid:
		response, err = s.hybridSearch(ctx, req)
	case SearchModeSemantic:
		response, err = s.semanticSearch(ctx, req)
	case SearchModeKeyword:
		response, err = s.keywordSearch(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported search mode: %s", req.Mode)
	}

	if err != nil {
		return nil, err
	}

	response.Duration = time.Since(startTime)
	// A degraded branch may have already stamped the mode it actually ran
	if response.SearchMode == "" {
		response.SearchMode = req.Mode
	}

	if req.UseCache {
		s.storeInCache(req, response)
	}

	return response, nil
}

// branchResult holds results from one concurrent search branch
type branchResult struct {
	vectorHits []storage.VectorHit
	textHits   []storage.SearchHit
	err        error
}

// runVectorSearch executes the semantic branch in a goroutine. It asks
// for 2x limit candidates so fusion has room to re-rank before
// truncating.
func (s *Searcher) runVectorSearch(ctx context.Context, req SearchRequest, resultChan chan<- branchResult) {
	var res branchResult
	embedding, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
	if err != nil {
		res.err = fmt.Errorf("failed to generate query embedding: %w", err)
	} else {
		res.vectorHits, res.err = s.vec.Search(ctx, embedding.Vector, req.Limit*2)
	}
	select {
	case resultChan <- res:
	case <-ctx.Done():
	}
}

// runTextSearch executes the keyword branch in a goroutine
func (s *Searcher) runTextSearch(ctx context.Context, req SearchRequest, resultChan chan<- branchResult) {
	var res branchResult
	res.textHits, res.err = s.fts.Search(ctx, req.Query, req.Limit*2, 0, nil)
	select {
	case resultChan <- res:
	case <-ctx.Done():
	}
}

// hybridSearch fuses the keyword and semantic branches. The branches run
// concurrently, each degrades to empty on its own failure, and the
// merged candidates are scored by weighted sum.
func (s *Searcher) hybridSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if !s.SemanticEnabled() {
		return s.keywordSearch(ctx, req)
	}

	vectorChan := make(chan branchResult, 1)
	textChan := make(chan branchResult, 1)

	go s.runVectorSearch(ctx, req, vectorChan)
	go s.runTextSearch(ctx, req, textChan)

	var vectorRes, textRes branchResult
	var vectorDone, textDone bool
	for !vectorDone || !textDone {
		select {
		case vectorRes = <-vectorChan:
			vectorDone = true
		case textRes = <-textChan:
			textDone = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// One branch failing must not fail the whole call
	if vectorRes.err != nil && textRes.err != nil {
		return nil, fmt.Errorf("both searches failed: vector=%w, text=%v", vectorRes.err, textRes.err)
	}
	if vectorRes.err != nil {
		slog.Warn("vector branch failed, using keyword results only", "error", vectorRes.err)
		vectorRes.vectorHits = nil
	}
	if textRes.err != nil {
		slog.Warn("keyword branch failed, using vector results only", "error", textRes.err)
		textRes.textHits = nil
	}

	results := fuseResults(vectorRes.vectorHits, textRes.textHits, req)

	return &SearchResponse{
		Results:      results,
		TotalResults: len(results),
		VectorHits:   len(vectorRes.vectorHits),
		TextHits:     len(textRes.textHits),
	}, nil
}

// semanticSearch runs only the vector branch
func (s *Searcher) semanticSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if !s.SemanticEnabled() {
		return nil, fmt.Errorf("semantic search unavailable: %w", storage.ErrVectorUnavailable)
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	vectorHits, err := s.vec.Search(ctx, embedding.Vector, req.Limit*2)
	if err != nil {
		return nil, err
	}

	results := fuseResults(vectorHits, nil, req)

	return &SearchResponse{
		Results:      results,
		TotalResults: len(results),
		VectorHits:   len(vectorHits),
	}, nil
}

// keywordSearch runs only the BM25 branch
func (s *Searcher) keywordSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	textHits, err := s.fts.Search(ctx, req.Query, req.Limit*2, 0, nil)
	if err != nil {
		return nil, err
	}

	results := fuseResults(nil, textHits, req)

	return &SearchResponse{
		Results:      results,
		TotalResults: len(results),
		TextHits:     len(textHits),
		SearchMode:   SearchModeKeyword,
	}, nil
}

// normalizeRequest fills in defaults in place
func (s *Searcher) normalizeRequest(req *SearchRequest) {
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	if req.Mode == "" {
		req.Mode = SearchModeHybrid
	}
	if req.VectorWeight == 0 && req.TextWeight == 0 {
		req.VectorWeight = DefaultVectorWeight
		req.TextWeight = DefaultTextWeight
	}
	if req.MinScore < 0 {
		req.MinScore = 0
	} else if req.MinScore == 0 {
		req.MinScore = DefaultMinScore
	}
	if req.CacheTTL == 0 {
		req.CacheTTL = 1 * time.Hour
	}
}

// checkCache looks up cached search results, returning nil on miss
func (s *Searcher) checkCache(req SearchRequest) *SearchResponse {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()
		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}

	// Deep copy while holding the read lock so the entry cannot change
	// mid copy
	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()

	return response
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached query. Called on any write so stale
// results never outlive the documents they rank.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := &SearchResponse{
		TotalResults: src.TotalResults,
		SearchMode:   src.SearchMode,
		Duration:     src.Duration,
		CacheHit:     src.CacheHit,
		VectorHits:   src.VectorHits,
		TextHits:     src.TextHits,
		Results:      make([]types.SearchResult, len(src.Results)),
	}
	copy(dst.Results, src.Results)

	return dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(string(req.Mode))
	data.WriteString("|")
	data.WriteString(req.FileType)
	data.WriteString("|")
	fmt.Fprintf(&data, "%d|%.3f|%.3f|%.3f", req.Limit, req.MinScore, req.VectorWeight, req.TextWeight)

	return sha256.Sum256([]byte(data.String()))
}
