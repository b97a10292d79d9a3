package embedder

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetSet(t *testing.T) {
	cache := NewCache(10)

	emb := &Embedding{
		Vector:    []float32{1, 2, 3},
		Dimension: 3,
		Provider:  ProviderMock,
		Hash:      "abc",
	}
	cache.Set("abc", emb)

	got, ok := cache.Get("abc")
	require.True(t, ok)
	assert.Equal(t, emb.Vector, got.Vector)

	// Mutating the returned copy must not affect the cached value
	got.Vector[0] = 99
	again, ok := cache.Get("abc")
	require.True(t, ok)
	assert.Equal(t, float32(1), again.Vector[0])
}

func TestCacheMiss(t *testing.T) {
	cache := NewCache(10)
	_, ok := cache.Get("missing")
	assert.False(t, ok)
}

func TestCacheEviction(t *testing.T) {
	cache := NewCache(2)

	cache.Set("a", &Embedding{Hash: "a"})
	cache.Set("b", &Embedding{Hash: "b"})
	cache.Set("c", &Embedding{Hash: "c"})

	assert.Equal(t, 2, cache.Size())
	_, ok := cache.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
}

func TestComputeHash(t *testing.T) {
	h1 := ComputeHash("hello")
	h2 := ComputeHash("hello")
	h3 := ComputeHash("world")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestValidateRequest(t *testing.T) {
	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{}), ErrEmptyText)
	assert.NoError(t, ValidateRequest(EmbeddingRequest{Text: "hi"}))
}

func TestValidateBatchRequest(t *testing.T) {
	assert.ErrorIs(t, ValidateBatchRequest(BatchEmbeddingRequest{}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"a", ""}}), ErrInvalidInput)
	assert.NoError(t, ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"a", "b"}}))
}

func TestNormalizeVector(t *testing.T) {
	normalized := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, normalized[0], 1e-6)
	assert.InDelta(t, 0.8, normalized[1], 1e-6)

	var norm float64
	for _, v := range normalized {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-6)
}

func TestNormalizeVectorZero(t *testing.T) {
	zero := []float32{0, 0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}

func TestNormalizeVectorNonFinite(t *testing.T) {
	bad := []float32{1, float32(math.NaN()), 2}
	// Returned unchanged instead of propagating NaN everywhere
	assert.Equal(t, bad, NormalizeVector(bad))

	inf := []float32{float32(math.Inf(1)), 1}
	assert.Equal(t, inf, NormalizeVector(inf))
}

func TestTruncateText(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, truncateText(short))

	long := strings.Repeat("x", maxEmbedChars+100)
	assert.Len(t, truncateText(long), maxEmbedChars)

	// Multibyte text is clipped on rune boundaries
	cjk := strings.Repeat("中", maxEmbedChars)
	truncated := truncateText(cjk)
	assert.LessOrEqual(t, len([]rune(truncated)), maxEmbedChars)
	for _, r := range truncated {
		assert.Equal(t, '中', r)
	}
}

func TestMockProviderDeterministic(t *testing.T) {
	mock, err := NewMockProvider(0, nil)
	require.NoError(t, err)
	defer func() { _ = mock.Close() }()

	ctx := context.Background()
	a, err := mock.GenerateEmbedding(ctx, EmbeddingRequest{Text: "same text"})
	require.NoError(t, err)
	b, err := mock.GenerateEmbedding(ctx, EmbeddingRequest{Text: "same text"})
	require.NoError(t, err)
	c, err := mock.GenerateEmbedding(ctx, EmbeddingRequest{Text: "other text"})
	require.NoError(t, err)

	assert.Equal(t, a.Vector, b.Vector)
	assert.NotEqual(t, a.Vector, c.Vector)
	assert.Len(t, a.Vector, MockDimension)
	assert.Equal(t, ProviderMock, a.Provider)
}

func TestMockProviderNormalized(t *testing.T) {
	mock, err := NewMockProvider(8, nil)
	require.NoError(t, err)

	emb, err := mock.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "anything"})
	require.NoError(t, err)

	var norm float64
	for _, v := range emb.Vector {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestMockProviderBatch(t *testing.T) {
	mock, err := NewMockProvider(0, NewCache(10))
	require.NoError(t, err)

	resp, err := mock.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"one", "two", "three"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 3)

	single, err := mock.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "two"})
	require.NoError(t, err)
	assert.Equal(t, resp.Embeddings[1].Vector, single.Vector)
}
