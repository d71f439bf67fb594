package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEnsureCollectionIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.EnsureCollection(ctx, 4, DistanceCosine))
	require.NoError(t, m.Upsert(ctx, []Point{{ID: "p1", Vector: []float32{1, 0, 0, 0}, Content: "a"}}))

	before, err := m.Count(ctx)
	require.NoError(t, err)

	require.NoError(t, m.EnsureCollection(ctx, 4, DistanceCosine))

	after, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMemoryEnsureCollectionMismatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.EnsureCollection(ctx, 4, DistanceCosine))

	err := m.EnsureCollection(ctx, 8, DistanceCosine)
	require.ErrorIs(t, err, ErrIncompatibleCollection)

	err = m.EnsureCollection(ctx, 4, DistanceDot)
	require.ErrorIs(t, err, ErrIncompatibleCollection)
}

func TestMemoryUpsertSearchRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.EnsureCollection(ctx, 4, DistanceCosine))

	vector := []float32{0.1, 0.2, 0.3, 0.4}
	require.NoError(t, m.Upsert(ctx, []Point{{
		ID:       "doc1",
		Vector:   vector,
		Content:  "hello world",
		Metadata: map[string]any{"title": "Greetings"},
	}}))

	passages, err := m.Search(ctx, vector, 1, 0.0)
	require.NoError(t, err)
	require.Len(t, passages, 1)

	assert.Equal(t, "doc1", passages[0].ID)
	assert.Equal(t, "hello world", passages[0].Content)
	assert.Equal(t, "Greetings", passages[0].Metadata["title"])
	assert.InDelta(t, 1.0, passages[0].Score, 1e-6)
}

func TestMemoryUpsertOverwritesByID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.EnsureCollection(ctx, 2, DistanceCosine))

	require.NoError(t, m.Upsert(ctx, []Point{{ID: "p", Vector: []float32{1, 0}, Content: "old"}}))
	require.NoError(t, m.Upsert(ctx, []Point{{ID: "p", Vector: []float32{1, 0}, Content: "new"}}))

	count, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	passages, err := m.Search(ctx, []float32{1, 0}, 1, 0.0)
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, "new", passages[0].Content)
}

func TestMemorySearchOrderingAndThreshold(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.EnsureCollection(ctx, 2, DistanceCosine))

	require.NoError(t, m.Upsert(ctx, []Point{
		{ID: "exact", Vector: []float32{1, 0}, Content: "exact"},
		{ID: "close", Vector: []float32{0.9, 0.1}, Content: "close"},
		{ID: "far", Vector: []float32{0, 1}, Content: "far"},
	}))

	passages, err := m.Search(ctx, []float32{1, 0}, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, passages, 2, "orthogonal vector must be filtered by threshold")

	assert.Equal(t, "exact", passages[0].ID)
	assert.Equal(t, "close", passages[1].ID)
	for i := 1; i < len(passages); i++ {
		assert.Less(t, passages[i].Score, passages[i-1].Score)
	}
	for _, p := range passages {
		assert.GreaterOrEqual(t, p.Score, 0.5)
	}
}

func TestMemorySearchLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.EnsureCollection(ctx, 2, DistanceCosine))

	require.NoError(t, m.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0.9, 0.1}},
		{ID: "c", Vector: []float32{0.8, 0.2}},
	}))

	passages, err := m.Search(ctx, []float32{1, 0}, 2, 0.0)
	require.NoError(t, err)
	assert.Len(t, passages, 2)
}

func TestMemoryUpsertSizeMismatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.EnsureCollection(ctx, 4, DistanceCosine))

	err := m.Upsert(ctx, []Point{{ID: "bad", Vector: []float32{1, 0}}})
	require.ErrorIs(t, err, ErrStore)
}
