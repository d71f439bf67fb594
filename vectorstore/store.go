// Package vectorstore provides persistent vector similarity stores.
//
// Two implementations are available: a Qdrant REST client for production
// and an in-memory cosine store for tests and no-infrastructure setups.
package vectorstore

import (
	"context"
	"errors"

	"github.com/richinex/libretto/model"
)

// Distance metric names as the store understands them.
const (
	DistanceCosine = "Cosine"
	DistanceDot    = "Dot"
	DistanceEuclid = "Euclid"
)

var (
	// ErrStore wraps any search/upsert/collection failure.
	ErrStore = errors.New("vector store error")

	// ErrIncompatibleCollection marks an existing collection whose vector
	// size or distance metric does not match the requested configuration.
	// This is a fatal startup condition, never silently ignored.
	ErrIncompatibleCollection = errors.New("incompatible collection configuration")
)

// Point is one indexed vector with its payload.
type Point struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata map[string]any
}

// CollectionInfo describes a collection's configuration and size.
type CollectionInfo struct {
	VectorSize int
	Distance   string
	Points     int
}

// Store persists content vectors and supports similarity search.
type Store interface {
	// EnsureCollection is idempotent: it creates the collection if absent,
	// else fails with ErrIncompatibleCollection on a size/metric mismatch.
	EnsureCollection(ctx context.Context, vectorSize int, distance string) error

	// Search returns passages strictly descending by score, at most limit
	// entries, every score >= scoreThreshold.
	Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64) ([]model.Passage, error)

	// Upsert overwrites points by ID.
	Upsert(ctx context.Context, points []Point) error

	// Count returns the total number of indexed points.
	Count(ctx context.Context) (int, error)

	// CollectionInfo returns the collection's configuration and point count.
	CollectionInfo(ctx context.Context) (CollectionInfo, error)
}
