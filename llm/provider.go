// LLM provider capability interfaces.
//
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error classification

package llm

import (
	"context"
)

// Generator is the capability interface for text generation backends.
// Implementations normalize their native response shape into GenerationResult,
// preserving turn order and role semantics of the request messages.
type Generator interface {
	// Name returns the provider name (for registry lookup and logging).
	Name() string

	// Generate sends the conversation and returns the normalized result.
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}

// Embedder is the capability interface for embedding backends.
// One vector is returned per input text; vectors have the fixed
// dimensionality of the configured embedding model.
type Embedder interface {
	Embed(ctx context.Context, texts []string, intent EmbedIntent) ([][]float32, error)
}
