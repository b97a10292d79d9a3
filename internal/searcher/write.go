package searcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dshills/localsearch-mcp/internal/embedder"
	"github.com/dshills/localsearch-mcp/pkg/types"
)

// previewChars is how much document text is carried in vector metadata
// so vector-only hits can show an excerpt.
const previewChars = 200

// AddDocument indexes one document in the full-text index and, when the
// semantic branch is available, embeds it into the vector index under
// the same doc ID. The embedding failure path degrades: the document is
// still keyword-searchable.
func (s *Searcher) AddDocument(ctx context.Context, doc *types.Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	extra := map[string]string{
		"file_path":   doc.FilePath,
		"file_type":   doc.FileType,
		"chunk_index": strconv.Itoa(doc.ChunkIndex),
	}
	if err := s.fts.Upsert(ctx, doc.ID, doc.Title, doc.Content, extra); err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}

	if s.SemanticEnabled() {
		if err := s.embedDocument(ctx, doc); err != nil {
			// Missing model is permanent; surface it so the caller can
			// tell the user. Everything else degrades to keyword-only.
			if errors.Is(err, types.ErrModelNotAvailable) {
				return err
			}
			slog.Warn("failed to embed document, keyword-only", "doc_id", doc.ID, "error", err)
		}
	}

	s.InvalidateCache()
	return nil
}

// AddDocumentWithEmbedding indexes doc using a caller-supplied embedding
// instead of asking the provider. A nil embedding behaves exactly like
// AddDocument.
func (s *Searcher) AddDocumentWithEmbedding(ctx context.Context, doc *types.Document, embedding []float32) error {
	if embedding == nil {
		return s.AddDocument(ctx, doc)
	}
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	extra := map[string]string{
		"file_path":   doc.FilePath,
		"file_type":   doc.FileType,
		"chunk_index": strconv.Itoa(doc.ChunkIndex),
	}
	if err := s.fts.Upsert(ctx, doc.ID, doc.Title, doc.Content, extra); err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}

	if s.vec != nil && s.vec.Ready() {
		if err := s.vec.Upsert(ctx, doc.ID, embedding, vectorMetaJSON(doc)); err != nil {
			slog.Warn("failed to store supplied vector, keyword-only", "doc_id", doc.ID, "error", err)
		}
	}

	s.InvalidateCache()
	return nil
}

// AddDocuments indexes a batch, embedding all contents in one provider
// call.
func (s *Searcher) AddDocuments(ctx context.Context, docs []*types.Document) error {
	if len(docs) == 0 {
		return nil
	}

	for _, doc := range docs {
		if err := doc.Validate(); err != nil {
			return fmt.Errorf("invalid document %s: %w", doc.ID, err)
		}
		extra := map[string]string{
			"file_path":   doc.FilePath,
			"file_type":   doc.FileType,
			"chunk_index": strconv.Itoa(doc.ChunkIndex),
		}
		if err := s.fts.Upsert(ctx, doc.ID, doc.Title, doc.Content, extra); err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
	}

	if s.SemanticEnabled() {
		if err := s.embedDocuments(ctx, docs); err != nil {
			if errors.Is(err, types.ErrModelNotAvailable) {
				return err
			}
			slog.Warn("failed to embed batch, keyword-only", "count", len(docs), "error", err)
		}
	}

	s.InvalidateCache()
	return nil
}

func (s *Searcher) embedDocument(ctx context.Context, doc *types.Document) error {
	emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: doc.Content})
	if err != nil {
		return err
	}
	return s.vec.Upsert(ctx, doc.ID, emb.Vector, vectorMetaJSON(doc))
}

func (s *Searcher) embedDocuments(ctx context.Context, docs []*types.Document) error {
	// Provider batch limits cap one call; chunk the input
	for start := 0; start < len(docs); start += embedder.MaxBatchSize {
		end := start + embedder.MaxBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = doc.Content
		}

		resp, err := s.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return err
		}
		if len(resp.Embeddings) != len(batch) {
			return fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Embeddings))
		}

		for i, doc := range batch {
			if err := s.vec.Upsert(ctx, doc.ID, resp.Embeddings[i].Vector, vectorMetaJSON(doc)); err != nil {
				return fmt.Errorf("failed to store vector for %s: %w", doc.ID, err)
			}
		}
	}
	return nil
}

func vectorMetaJSON(doc *types.Document) []byte {
	preview := doc.Content
	if runes := []rune(preview); len(runes) > previewChars {
		preview = string(runes[:previewChars])
	}

	data, err := json.Marshal(vectorMeta{
		Title:      doc.Title,
		FilePath:   doc.FilePath,
		FileType:   doc.FileType,
		ChunkIndex: doc.ChunkIndex,
		Preview:    preview,
	})
	if err != nil {
		return nil
	}
	return data
}

// RemoveDocument deletes one document from both indexes; no-op if absent
func (s *Searcher) RemoveDocument(ctx context.Context, docID string) error {
	if err := s.fts.Delete(ctx, docID); err != nil {
		return err
	}
	if s.vec != nil {
		if err := s.vec.Delete(ctx, docID); err != nil {
			return err
		}
	}

	s.InvalidateCache()
	return nil
}

// RemoveByFilePath deletes every chunk indexed for filePath, mirroring
// the delete into the vector index. Returns the number of documents
// removed.
func (s *Searcher) RemoveByFilePath(ctx context.Context, filePath string) (int64, error) {
	if s.vec != nil && s.vec.Ready() {
		ids, err := s.fts.IDsWhere(ctx, "file_path", filePath)
		if err != nil {
			return 0, err
		}
		for _, id := range ids {
			if err := s.vec.Delete(ctx, id); err != nil {
				return 0, err
			}
		}
	}

	n, err := s.fts.DeleteWhere(ctx, "file_path", filePath)
	if err != nil {
		return 0, err
	}

	s.InvalidateCache()
	return n, nil
}

// GetDocument returns the stored title and content for a doc ID
func (s *Searcher) GetDocument(ctx context.Context, docID string) (title, content string, err error) {
	return s.fts.GetContent(ctx, docID)
}

// Stats reports the current state of both indexes
func (s *Searcher) Stats(ctx context.Context) (*types.IndexStats, error) {
	docCount, err := s.fts.Count(ctx)
	if err != nil {
		return nil, err
	}

	stats := &types.IndexStats{
		DocumentCount: docCount,
		VectorEnabled: s.SemanticEnabled(),
	}

	if s.vec != nil {
		vecCount, err := s.vec.Count(ctx)
		if err != nil {
			return nil, err
		}
		stats.VectorCount = vecCount
		stats.EmbeddingDims = s.vec.Dimensions()
	}

	if s.embedder != nil {
		stats.Provider = s.embedder.Provider()
	}

	return stats, nil
}

// Optimize merges FTS index segments; contents are unchanged
func (s *Searcher) Optimize(ctx context.Context) error {
	return s.fts.Optimize(ctx)
}

// Rebuild regenerates the FTS index in place
func (s *Searcher) Rebuild(ctx context.Context) error {
	s.InvalidateCache()
	return s.fts.Rebuild(ctx)
}

// IntegrityCheck reports whether the FTS index is internally consistent
func (s *Searcher) IntegrityCheck(ctx context.Context) bool {
	return s.fts.IntegrityCheck(ctx)
}
