// Provider registry with a static model allow-list.
//
// The registry is an explicit object constructed once at startup and passed
// into the services that need it. There is no package-level mutable state,
// which keeps tests free to substitute fakes.

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"
)

// DefaultCatalog maps each provider to its allowed model set.
// Requests naming a pair outside this mapping fail before any network call.
func DefaultCatalog() map[string][]string {
	return map[string][]string{
		"openai": {
			"gpt-4o",
			"gpt-4o-mini",
		},
		"cohere": {
			"command-r",
			"command-r-plus",
			"command-r-plus-08-2024",
			"command-a-03-2025",
		},
		"anthropic": {
			"claude-sonnet-4-20250514",
			"claude-haiku-4-20250514",
		},
		"gemini": {
			"gemini-2.5-flash",
			"gemini-2.5-pro",
		},
	}
}

// DefaultRetryWait is how long Embed waits before its single retry after
// a rate-limit response.
const DefaultRetryWait = 60 * time.Second

// Registry holds the configured generation providers, the embedding
// provider, and the model catalog. Safe for concurrent use after setup:
// registration happens during startup, reads afterwards.
type Registry struct {
	generators map[string]Generator
	embedder   Embedder
	catalog    map[string][]string
	retryWait  time.Duration
	log        *slog.Logger
}

// NewRegistry creates an empty registry over the given catalog.
// A nil catalog means DefaultCatalog; a nil logger discards nothing
// and falls back to slog.Default.
func NewRegistry(catalog map[string][]string, log *slog.Logger) *Registry {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		generators: make(map[string]Generator),
		catalog:    catalog,
		retryWait:  DefaultRetryWait,
		log:        log,
	}
}

// Register adds a generation provider, keyed by its Name().
func (r *Registry) Register(g Generator) {
	r.generators[g.Name()] = g
}

// SetEmbedder designates the embedding provider.
func (r *Registry) SetEmbedder(e Embedder) {
	r.embedder = e
}

// SetRetryWait overrides the rate-limit backoff delay. Used by tests.
func (r *Registry) SetRetryWait(d time.Duration) {
	r.retryWait = d
}

// ValidateModel reports whether the (provider, model) pair is in the catalog.
func (r *Registry) ValidateModel(provider, model string) bool {
	models, ok := r.catalog[provider]
	if !ok {
		return false
	}
	return slices.Contains(models, model)
}

// Providers returns the registered provider names in sorted order.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModelsFor returns the allowed models for a provider, or nil if unknown.
func (r *Registry) ModelsFor(provider string) []string {
	return slices.Clone(r.catalog[provider])
}

// Generate validates the request against the catalog and dispatches to the
// named provider. Validation failures return ErrInvalidModelSelection with
// no I/O attempted and no partial state.
func (r *Registry) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	if !r.ValidateModel(req.Provider, req.Model) {
		return GenerationResult{}, fmt.Errorf("%w: %s/%s", ErrInvalidModelSelection, req.Provider, req.Model)
	}

	g, ok := r.generators[req.Provider]
	if !ok {
		return GenerationResult{}, fmt.Errorf("%w: provider %q not registered", ErrInvalidModelSelection, req.Provider)
	}

	r.log.Debug("generating response",
		"provider", req.Provider, "model", req.Model, "turns", len(req.Messages))

	return g.Generate(ctx, req)
}

// Embed delegates to the embedding provider. On a rate-limit error it waits
// the configured backoff once and retries a single time; the wait is
// abandoned when ctx is cancelled.
func (r *Registry) Embed(ctx context.Context, texts []string, intent EmbedIntent) ([][]float32, error) {
	if r.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured", ErrProviderUnavailable)
	}

	vectors, err := r.embedder.Embed(ctx, texts, intent)
	if err == nil {
		return vectors, nil
	}
	if !errors.Is(err, ErrRateLimited) {
		return nil, err
	}

	r.log.Warn("embedding rate limited, retrying once", "wait", r.retryWait)
	timer := time.NewTimer(r.retryWait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return r.embedder.Embed(ctx, texts, intent)
}
