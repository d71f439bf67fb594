// In-memory cosine similarity store.
//
// Serves tests and no-infrastructure setups behind the same Store
// interface as the Qdrant client. Thread-safe.

package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/richinex/libretto/model"
)

// Memory is an in-process vector store using cosine similarity.
type Memory struct {
	mu         sync.RWMutex
	vectorSize int
	distance   string
	points     map[string]Point
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{points: make(map[string]Point)}
}

// EnsureCollection records the collection configuration on first call and
// verifies compatibility afterwards.
func (m *Memory) EnsureCollection(_ context.Context, vectorSize int, distance string) error {
	if vectorSize <= 0 {
		return fmt.Errorf("%w: invalid vector size %d", ErrStore, vectorSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.vectorSize == 0 {
		m.vectorSize = vectorSize
		m.distance = distance
		return nil
	}
	if m.vectorSize != vectorSize || m.distance != distance {
		return fmt.Errorf("%w: have size=%d distance=%s, want size=%d distance=%s",
			ErrIncompatibleCollection, m.vectorSize, m.distance, vectorSize, distance)
	}
	return nil
}

// Search scores every point against the query vector and returns the top
// matches above the threshold, strictly descending.
func (m *Memory) Search(_ context.Context, vector []float32, limit int, scoreThreshold float64) ([]model.Passage, error) {
	if limit <= 0 {
		limit = 5
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		point Point
		score float64
	}
	var results []scored
	for _, p := range m.points {
		score := cosineSimilarity(vector, p.Vector)
		if score < scoreThreshold {
			continue
		}
		results = append(results, scored{point: p, score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	passages := make([]model.Passage, len(results))
	for i, r := range results {
		passages[i] = model.Passage{
			ID:       r.point.ID,
			Content:  r.point.Content,
			Score:    r.score,
			Metadata: r.point.Metadata,
		}
	}
	return passages, nil
}

// Upsert overwrites points by ID.
func (m *Memory) Upsert(_ context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range points {
		if m.vectorSize != 0 && len(p.Vector) != m.vectorSize {
			return fmt.Errorf("%w: vector size %d, collection expects %d", ErrStore, len(p.Vector), m.vectorSize)
		}
		m.points[p.ID] = p
	}
	return nil
}

// Count returns the number of stored points.
func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points), nil
}

// CollectionInfo returns the recorded configuration and point count.
func (m *Memory) CollectionInfo(_ context.Context) (CollectionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return CollectionInfo{
		VectorSize: m.vectorSize,
		Distance:   m.distance,
		Points:     len(m.points),
	}, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Verify Memory implements Store
var _ Store = (*Memory)(nil)
