package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVectorIndex(t *testing.T, dims int) *VectorIndex {
	t.Helper()

	eng, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	vec, err := NewVectorIndex(eng, "documents_vec", dims)
	require.NoError(t, err)
	return vec
}

func TestNewVectorIndexValidation(t *testing.T) {
	eng, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()

	_, err = NewVectorIndex(eng, "bad name", 4)
	assert.Error(t, err)

	_, err = NewVectorIndex(eng, "vecs", 0)
	assert.Error(t, err)
}

func TestVectorSearchUninitialized(t *testing.T) {
	vec := newTestVectorIndex(t, 4)

	// Without CreateTable the index degrades instead of failing
	hits, err := vec.Search(context.Background(), []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	count, err := vec.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.NoError(t, vec.Delete(context.Background(), "doc1"))
}

func TestVectorUpsertUninitialized(t *testing.T) {
	vec := newTestVectorIndex(t, 4)

	err := vec.Upsert(context.Background(), "doc1", []float32{1, 0, 0, 0}, nil)
	assert.ErrorIs(t, err, ErrVectorUnavailable)
}

func TestVectorCreateTableDegrades(t *testing.T) {
	if VectorExtensionAvailable {
		t.Skip("extension available in this build")
	}

	vec := newTestVectorIndex(t, 4)
	ok, err := vec.CreateTable(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, vec.Ready())
}

func TestVectorRoundTrip(t *testing.T) {
	if !VectorExtensionAvailable {
		t.Skip("requires sqlite_vec build")
	}

	vec := newTestVectorIndex(t, 4)
	ctx := context.Background()

	ok, err := vec.CreateTable(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, vec.Upsert(ctx, "a", []float32{1, 0, 0, 0}, []byte(`{"file_path":"a.md"}`)))
	require.NoError(t, vec.Upsert(ctx, "b", []float32{0, 1, 0, 0}, nil))

	hits, err := vec.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// Nearest first, exact match at distance ~0
	assert.Equal(t, "a", hits[0].DocID)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-5)
	assert.Less(t, hits[0].Distance, hits[1].Distance)
	assert.JSONEq(t, `{"file_path":"a.md"}`, string(hits[0].Metadata))
}

func TestVectorUpsertReplaces(t *testing.T) {
	if !VectorExtensionAvailable {
		t.Skip("requires sqlite_vec build")
	}

	vec := newTestVectorIndex(t, 4)
	ctx := context.Background()

	ok, err := vec.CreateTable(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, vec.Upsert(ctx, "a", []float32{1, 0, 0, 0}, nil))
	require.NoError(t, vec.Upsert(ctx, "a", []float32{0, 0, 0, 1}, nil))

	count, err := vec.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	hits, err := vec.Search(ctx, []float32{0, 0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-5)
}

func TestVectorDimensionMismatch(t *testing.T) {
	if !VectorExtensionAvailable {
		t.Skip("requires sqlite_vec build")
	}

	vec := newTestVectorIndex(t, 4)
	ctx := context.Background()

	ok, err := vec.CreateTable(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	err = vec.Upsert(ctx, "a", []float32{1, 0}, nil)
	assert.Error(t, err)

	_, err = vec.Search(ctx, []float32{1, 0}, 1)
	assert.Error(t, err)
}
