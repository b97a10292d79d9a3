// Package embedder generates vector embeddings for document chunks.
//
// The embedder supports a local Ollama backend, the OpenAI API, and a
// deterministic mock, with batching, LRU caching, and retry handling.
// All providers return L2-normalized vectors.
//
// # Basic Usage
//
//	// Create embedder (auto-detects provider from environment)
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	// Generate single embedding
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "hybrid search combines keyword and semantic retrieval",
//	})
//	fmt.Printf("Vector dimension: %d\n", len(result.Vector))
//
// # Batch Processing
//
// Always batch when embedding more than one text in the same operation:
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: chunkTexts,
//	})
//
//	for i, embedding := range resp.Embeddings {
//	    // Store embedding for chunk i
//	}
//
// Per-call overhead (model load, network round-trip) dominates embedding
// cost, so a batch call is 1-2 orders of magnitude faster than N
// sequential single calls.
//
// # Provider Selection
//
// LOCALSEARCH_EMBEDDING_PROVIDER selects the backend explicitly. The
// default "auto" prefers a reachable Ollama server so text never leaves
// the machine, falls back to OpenAI when OPENAI_API_KEY is set, and
// finally to the mock provider.
//
// A missing local model surfaces as types.ErrModelNotAvailable, distinct
// from transient network errors, so callers can degrade to keyword-only
// search or tell the user to pull the model.
package embedder
