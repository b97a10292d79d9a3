package searcher

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/dshills/localsearch-mcp/internal/storage"
	"github.com/dshills/localsearch-mcp/pkg/types"
)

// vectorMeta is the JSON blob stored alongside each embedding so that
// vector-only hits still carry display fields.
type vectorMeta struct {
	Title      string `json:"title,omitempty"`
	FilePath   string `json:"file_path,omitempty"`
	FileType   string `json:"file_type,omitempty"`
	ChunkIndex int    `json:"chunk_index,omitempty"`
	Preview    string `json:"preview,omitempty"`
}

// bm25Score normalizes an FTS5 rank into [0, 1]. FTS5 ranks are
// negative with larger magnitude meaning more relevant, so
// |rank|/(1+|rank|) is monotone in relevance and bounded without
// needing a corpus-wide maximum. Zero and non-finite ranks map to 0.
func bm25Score(rank float64) float64 {
	if rank == 0 || math.IsNaN(rank) || math.IsInf(rank, 0) {
		return 0
	}
	abs := math.Abs(rank)
	return abs / (1 + abs)
}

// similarityFromDistance converts a cosine distance into a similarity
// in [0, 1]
func similarityFromDistance(distance float64) float64 {
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return 0
	}
	return math.Max(0, 1-distance)
}

// fusedEntry accumulates per-document scores from both branches
type fusedEntry struct {
	docID      string
	vecScore   float64
	textScore  float64
	title      string
	snippet    string
	filePath   string
	fileType   string
	chunkIndex int
	order      int // insertion order, breaks score ties
}

// fuseResults merges the two candidate lists by doc ID, computes the
// weighted fused score, and applies min-score/file-type filtering and
// the final truncation. Vector hits seed the map; keyword hits merge in
// afterwards, and their highlighted snippet wins when both branches saw
// the same document.
func fuseResults(vectorHits []storage.VectorHit, textHits []storage.SearchHit, req SearchRequest) []types.SearchResult {
	entries := make(map[string]*fusedEntry, len(vectorHits)+len(textHits))
	order := 0

	for _, hit := range vectorHits {
		entry := &fusedEntry{
			docID:    hit.DocID,
			vecScore: similarityFromDistance(hit.Distance),
			order:    order,
		}
		order++

		var meta vectorMeta
		if len(hit.Metadata) > 0 {
			if err := json.Unmarshal(hit.Metadata, &meta); err == nil {
				entry.title = meta.Title
				entry.snippet = meta.Preview
				entry.filePath = meta.FilePath
				entry.fileType = meta.FileType
				entry.chunkIndex = meta.ChunkIndex
			}
		}

		entries[hit.DocID] = entry
	}

	for _, hit := range textHits {
		entry, ok := entries[hit.DocID]
		if !ok {
			entry = &fusedEntry{docID: hit.DocID, order: order}
			order++
			entries[hit.DocID] = entry
		}

		entry.textScore += bm25Score(hit.Rank)
		entry.title = hit.Title
		// The FTS snippet carries highlight markers; it always wins
		entry.snippet = hit.Snippet
		if fp, ok := hit.Extra["file_path"]; ok && fp != "" {
			entry.filePath = fp
		}
		if ft, ok := hit.Extra["file_type"]; ok && ft != "" {
			entry.fileType = ft
		}
		if ci, ok := hit.Extra["chunk_index"]; ok && ci != "" {
			if n, err := strconv.Atoi(ci); err == nil {
				entry.chunkIndex = n
			}
		}
	}

	fused := make([]*fusedEntry, 0, len(entries))
	for _, entry := range entries {
		fused = append(fused, entry)
	}

	sort.SliceStable(fused, func(i, j int) bool {
		si := req.VectorWeight*fused[i].vecScore + req.TextWeight*fused[i].textScore
		sj := req.VectorWeight*fused[j].vecScore + req.TextWeight*fused[j].textScore
		if si != sj {
			return si > sj
		}
		return fused[i].order < fused[j].order
	})

	results := make([]types.SearchResult, 0, req.Limit)
	for _, entry := range fused {
		if len(results) >= req.Limit {
			break
		}

		score := req.VectorWeight*entry.vecScore + req.TextWeight*entry.textScore
		if score < req.MinScore {
			continue
		}
		if req.FileType != "" && entry.fileType != req.FileType {
			continue
		}

		match := types.MatchHybrid
		switch {
		case entry.vecScore > 0 && entry.textScore == 0:
			match = types.MatchSemantic
		case entry.textScore > 0 && entry.vecScore == 0:
			match = types.MatchKeyword
		}

		results = append(results, types.SearchResult{
			DocID:         entry.docID,
			Rank:          len(results) + 1,
			Score:         score,
			TextScore:     entry.textScore,
			SemanticScore: entry.vecScore,
			Match:         match,
			Title:         entry.title,
			Snippet:       entry.snippet,
			FilePath:      entry.filePath,
			FileType:      entry.fileType,
			ChunkIndex:    entry.chunkIndex,
		})
	}

	return results
}
