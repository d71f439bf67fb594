package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingGenerator records calls so tests can assert no network I/O happened.
type countingGenerator struct {
	name   string
	calls  int
	result GenerationResult
	err    error
}

func (g *countingGenerator) Name() string { return g.name }

func (g *countingGenerator) Generate(_ context.Context, req GenerationRequest) (GenerationResult, error) {
	g.calls++
	if g.err != nil {
		return GenerationResult{}, g.err
	}
	res := g.result
	res.Provider = g.name
	res.ModelUsed = req.Model
	return res, nil
}

type countingEmbedder struct {
	calls   int
	intents []EmbedIntent
	vectors [][]float32
	errs    []error // consumed per call; nil entry means success
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string, intent EmbedIntent) ([][]float32, error) {
	e.calls++
	e.intents = append(e.intents, intent)
	if len(e.errs) > 0 {
		err := e.errs[0]
		e.errs = e.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if e.vectors != nil {
		return e.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2, 0.3, 0.4}
	}
	return out, nil
}

func TestValidateModel(t *testing.T) {
	r := NewRegistry(nil, nil)

	assert.True(t, r.ValidateModel("cohere", "command-r-plus-08-2024"))
	assert.True(t, r.ValidateModel("openai", "gpt-4o-mini"))
	assert.False(t, r.ValidateModel("openai", "gpt-3"))
	assert.False(t, r.ValidateModel("mistral", "mistral-large"))
}

func TestGenerateRejectsUnknownModelWithoutDispatch(t *testing.T) {
	r := NewRegistry(nil, nil)
	gen := &countingGenerator{name: "openai"}
	r.Register(gen)

	_, err := r.Generate(context.Background(), GenerationRequest{
		Messages: []ChatMessage{UserMessage("hi")},
		Provider: "openai",
		Model:    "gpt-3",
	})

	require.ErrorIs(t, err, ErrInvalidModelSelection)
	assert.Equal(t, 0, gen.calls, "no provider call may happen for an invalid pair")
}

func TestGenerateRejectsUnregisteredProvider(t *testing.T) {
	r := NewRegistry(nil, nil)

	_, err := r.Generate(context.Background(), GenerationRequest{
		Provider: "cohere",
		Model:    "command-r",
	})

	require.ErrorIs(t, err, ErrInvalidModelSelection)
}

func TestGenerateDispatches(t *testing.T) {
	r := NewRegistry(nil, nil)
	gen := &countingGenerator{
		name:   "cohere",
		result: GenerationResult{Text: "ok", Usage: TokenUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}},
	}
	r.Register(gen)

	res, err := r.Generate(context.Background(), GenerationRequest{
		Messages: []ChatMessage{SystemMessage("sys"), UserMessage("hi")},
		Provider: "cohere",
		Model:    "command-r",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, "cohere", res.Provider)
	assert.Equal(t, "command-r", res.ModelUsed)
	assert.Equal(t, 5, res.Usage.TotalTokens)
}

func TestEmbedForwardsIntent(t *testing.T) {
	r := NewRegistry(nil, nil)
	emb := &countingEmbedder{}
	r.SetEmbedder(emb)

	vectors, err := r.Embed(context.Background(), []string{"hello world"}, IntentQuery)

	require.NoError(t, err)
	require.Len(t, vectors, 1)
	require.Len(t, emb.intents, 1)
	assert.Equal(t, IntentQuery, emb.intents[0])
}

func TestEmbedRetriesOnceAfterRateLimit(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.SetRetryWait(time.Millisecond)
	emb := &countingEmbedder{errs: []error{ErrRateLimited, nil}}
	r.SetEmbedder(emb)

	_, err := r.Embed(context.Background(), []string{"a"}, IntentDocument)

	require.NoError(t, err)
	assert.Equal(t, 2, emb.calls)
}

func TestEmbedDoesNotRetryOtherFailures(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.SetRetryWait(time.Millisecond)
	emb := &countingEmbedder{errs: []error{ErrProviderUnavailable}}
	r.SetEmbedder(emb)

	_, err := r.Embed(context.Background(), []string{"a"}, IntentDocument)

	require.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 1, emb.calls)
}

func TestEmbedRetryWaitHonorsCancellation(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.SetRetryWait(time.Minute)
	emb := &countingEmbedder{errs: []error{ErrRateLimited}}
	r.SetEmbedder(emb)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Embed(ctx, []string{"a"}, IntentDocument)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, emb.calls)
}

func TestEmbedWithoutEmbedder(t *testing.T) {
	r := NewRegistry(nil, nil)

	_, err := r.Embed(context.Background(), []string{"a"}, IntentDocument)

	require.ErrorIs(t, err, ErrProviderUnavailable)
}
