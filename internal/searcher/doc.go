// Package searcher implements hybrid document search combining vector
// similarity and keyword matching.
//
// The searcher provides three search modes:
//   - Hybrid: weighted fusion of vector + BM25 keyword search (default)
//   - Semantic: pure vector search using embeddings
//   - Keyword: BM25 full-text search only
//
// # Basic Usage
//
//	s := searcher.NewSearcher(fts, vec, emb)
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query: "vector database design",
//	    Limit: 10,
//	})
//
//	for _, result := range resp.Results {
//	    fmt.Printf("[%d] %s (score: %.2f)\n",
//	        result.Rank, result.Title, result.Score)
//	}
//
// # Fusion
//
// In hybrid mode the two branches run concurrently, each fetching twice
// the requested limit so fusion has room to re-rank. Per-branch scores
// are normalized into [0, 1]:
//
//   - keyword: |bm25 rank| / (1 + |bm25 rank|)
//   - semantic: max(0, 1 - cosine distance)
//
// and combined as vector_weight*semantic + text_weight*keyword, default
// weights 0.6/0.4. Entries below MinScore (default 0.05) are dropped.
// A branch failing on its own degrades to an empty candidate list; the
// call fails only when both branches fail.
//
// When the vector extension or the embedder is unavailable, hybrid mode
// transparently becomes keyword-only.
//
// # Write Path
//
// The searcher also owns index writes so the full-text and vector
// tables never diverge: AddDocument/AddDocuments upsert both sides
// under the same doc ID, RemoveDocument and RemoveByFilePath delete
// from both. Every write purges the query cache.
//
// # Caching
//
// Responses are cached in an LRU keyed by a hash of the full request
// (query, mode, limit, weights, filters) with a TTL, so repeated
// queries over an unchanged index cost nothing.
package searcher
