// Package retrieval turns a text query into ranked passages.
//
// The engine is deliberately forgiving: embedding failures, store failures,
// an empty collection, and nothing-above-threshold all yield an empty
// result, never an error. Downstream components treat "no context" as a
// normal, common case.
package retrieval

import (
	"context"
	"log/slog"

	"github.com/richinex/libretto/llm"
	"github.com/richinex/libretto/model"
	"github.com/richinex/libretto/vectorstore"
)

// Embedder is the slice of llm.Registry the engine needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string, intent llm.EmbedIntent) ([][]float32, error)
}

// Engine retrieves relevant passages for a query.
type Engine struct {
	embedder Embedder
	store    vectorstore.Store
	log      *slog.Logger
}

// NewEngine creates a retrieval engine.
func NewEngine(embedder Embedder, store vectorstore.Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{embedder: embedder, store: store, log: log}
}

// Search embeds the query and delegates to the vector store. The result is
// ranked strictly descending by score with every entry at or above
// scoreThreshold. Failures degrade to an empty result.
func (e *Engine) Search(ctx context.Context, query string, limit int, scoreThreshold float64) []model.Passage {
	vectors, err := e.embedder.Embed(ctx, []string{query}, llm.IntentQuery)
	if err != nil {
		e.log.Error("query embedding failed, returning no passages", "error", err)
		return nil
	}
	if len(vectors) == 0 {
		e.log.Error("embedder returned no vectors, returning no passages")
		return nil
	}

	passages, err := e.store.Search(ctx, vectors[0], limit, scoreThreshold)
	if err != nil {
		e.log.Error("vector search failed, returning no passages", "error", err)
		return nil
	}

	if len(passages) == 0 {
		// Diagnostic only: distinguishes an empty collection from an
		// over-strict threshold when operators debug empty answers.
		count, countErr := e.store.Count(ctx)
		if countErr != nil {
			e.log.Warn("no passages found; collection size unknown",
				"threshold", scoreThreshold, "limit", limit, "error", countErr)
		} else {
			e.log.Warn("no passages found",
				"threshold", scoreThreshold, "limit", limit, "collection_points", count)
		}
	}

	return passages
}
