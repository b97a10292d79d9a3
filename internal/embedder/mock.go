package embedder

import (
	"context"
	"crypto/sha256"
	"fmt"
)

// MockProvider is a deterministic in-process embedder for tests and for
// running without any backend. Vectors are derived from the content hash
// so equal texts always embed identically.
type MockProvider struct {
	model     string
	dimension int
	cache     *Cache
}

// NewMockProvider creates a mock embedder with the given dimension
// (MockDimension when dim <= 0)
func NewMockProvider(dim int, cache *Cache) (*MockProvider, error) {
	if dim <= 0 {
		dim = MockDimension
	}
	return &MockProvider{
		model:     "mock-embeddings",
		dimension: dim,
		cache:     cache,
	}, nil
}

func (m *MockProvider) GenerateEmbedding(_ context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if m.cache != nil {
		if emb, ok := m.cache.Get(hash); ok {
			return emb, nil
		}
	}

	// Deterministic pseudo-embedding: repeat the content hash bytes
	// across the vector, then normalize.
	digest := sha256.Sum256([]byte(req.Text))
	vector := make([]float32, m.dimension)
	for i := range vector {
		vector[i] = float32(digest[i%len(digest)]) / 255.0
	}

	emb := &Embedding{
		Vector:    NormalizeVector(vector),
		Dimension: m.dimension,
		Provider:  ProviderMock,
		Model:     m.model,
		Hash:      hash,
	}

	if m.cache != nil {
		m.cache.Set(hash, emb)
	}

	return emb, nil
}

func (m *MockProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := m.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderMock,
		Model:      m.model,
	}, nil
}

func (m *MockProvider) Dimension() int {
	return m.dimension
}

func (m *MockProvider) Provider() string {
	return ProviderMock
}

func (m *MockProvider) Model() string {
	return m.model
}

func (m *MockProvider) Close() error {
	return nil
}
