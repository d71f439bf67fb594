package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/libretto/llm"
	"github.com/richinex/libretto/model"
)

type stubGenerator struct {
	calls    int
	lastReq  llm.GenerationRequest
	result   llm.GenerationResult
	err      error
	validate func(provider, modelName string) bool
}

func (g *stubGenerator) ValidateModel(provider, modelName string) bool {
	if g.validate != nil {
		return g.validate(provider, modelName)
	}
	return true
}

func (g *stubGenerator) Generate(_ context.Context, req llm.GenerationRequest) (llm.GenerationResult, error) {
	g.calls++
	g.lastReq = req
	if g.err != nil {
		return llm.GenerationResult{}, g.err
	}
	res := g.result
	if res.Provider == "" {
		res.Provider = req.Provider
	}
	if res.ModelUsed == "" {
		res.ModelUsed = req.Model
	}
	return res, nil
}

type stubRetriever struct {
	passages []model.Passage
}

func (r *stubRetriever) Search(context.Context, string, int, float64) []model.Passage {
	return r.passages
}

func testDefaults() Defaults {
	return Defaults{
		Provider:       "cohere",
		Model:          "command-r-plus",
		Temperature:    0.7,
		MaxTokens:      500,
		SearchLimit:    5,
		ScoreThreshold: 0.3,
	}
}

func TestQueryGroundedAnswerCarriesSources(t *testing.T) {
	gen := &stubGenerator{result: llm.GenerationResult{
		Text:  "Robots need sensors to perceive their environment [Source 1].",
		Usage: llm.TokenUsage{PromptTokens: 40, CompletionTokens: 12, TotalTokens: 52},
	}}
	ret := &stubRetriever{passages: []model.Passage{
		{ID: "chunk-7", Content: "Robots need sensors.", Score: 0.9, Metadata: map[string]any{"title": "Perception"}},
	}}

	p := NewPipeline(gen, ret, testDefaults(), nil)
	resp, err := p.Query(context.Background(), Request{Query: "What do robots need?"})
	require.NoError(t, err)

	assert.Equal(t, "Robots need sensors to perceive their environment [Source 1].", resp.Text)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "chunk-7", resp.Sources[0].ID)
	assert.InDelta(t, 0.9, resp.Sources[0].Score, 1e-9)
	assert.Empty(t, resp.Warning)
	assert.Empty(t, resp.Err)
	assert.Equal(t, 52, resp.Usage.TotalTokens)

	user := gen.lastReq.Messages[1].Content
	assert.Contains(t, user, "Source 1: Robots need sensors.")
	assert.Contains(t, user, "Question: What do robots need?")
}

func TestQueryEmptyRetrievalFallsBackUngrounded(t *testing.T) {
	gen := &stubGenerator{result: llm.GenerationResult{Text: "General knowledge answer."}}
	p := NewPipeline(gen, &stubRetriever{}, testDefaults(), nil)

	resp, err := p.Query(context.Background(), Request{Query: "anything"})
	require.NoError(t, err)

	assert.Equal(t, WarningNoContext, resp.Warning)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, "General knowledge answer.", resp.Text)
	assert.NotContains(t, gen.lastReq.Messages[1].Content, "Context:")
}

func TestQueryRejectsInvalidModelBeforeGeneration(t *testing.T) {
	gen := &stubGenerator{validate: func(string, string) bool { return false }}
	p := NewPipeline(gen, &stubRetriever{}, testDefaults(), nil)

	_, err := p.Query(context.Background(), Request{Query: "q", Provider: "openai", Model: "gpt-3"})
	require.ErrorIs(t, err, llm.ErrInvalidModelSelection)
	assert.Zero(t, gen.calls)
}

func TestQueryAbsorbsGenerationFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("upstream exploded")}
	ret := &stubRetriever{passages: []model.Passage{{ID: "a", Content: "ctx", Score: 0.5}}}
	p := NewPipeline(gen, ret, testDefaults(), nil)

	resp, err := p.Query(context.Background(), Request{Query: "q"})
	require.NoError(t, err)

	assert.Equal(t, "Sorry, I encountered an error. Please try again.", resp.Text)
	assert.Equal(t, "An error occurred while processing your request", resp.Err)
	assert.Empty(t, resp.Sources)
}

func TestQuerySourcePreviewTruncated(t *testing.T) {
	long := strings.Repeat("x", 300)
	gen := &stubGenerator{result: llm.GenerationResult{Text: "ok"}}
	ret := &stubRetriever{passages: []model.Passage{{ID: "a", Content: long, Score: 0.8}}}
	p := NewPipeline(gen, ret, testDefaults(), nil)

	resp, err := p.Query(context.Background(), Request{Query: "q"})
	require.NoError(t, err)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, model.PreviewLength+3, len([]rune(resp.Sources[0].Content)))
	assert.True(t, strings.HasSuffix(resp.Sources[0].Content, "..."))

	// The generation prompt keeps the full passage.
	assert.Contains(t, gen.lastReq.Messages[1].Content, long)
}

func TestQueryAppliesDefaults(t *testing.T) {
	gen := &stubGenerator{result: llm.GenerationResult{Text: "ok"}}
	p := NewPipeline(gen, &stubRetriever{}, testDefaults(), nil)

	_, err := p.Query(context.Background(), Request{Query: "q"})
	require.NoError(t, err)

	assert.Equal(t, "cohere", gen.lastReq.Provider)
	assert.Equal(t, "command-r-plus", gen.lastReq.Model)
	assert.InDelta(t, 0.7, float64(gen.lastReq.Temperature), 1e-6)
	assert.Equal(t, 500, gen.lastReq.MaxTokens)
}

func TestSimpleQueryPropagatesErrors(t *testing.T) {
	gen := &stubGenerator{err: llm.ErrProviderUnavailable}
	p := NewPipeline(gen, &stubRetriever{}, testDefaults(), nil)

	_, err := p.SimpleQuery(context.Background(), Request{Query: "q"})
	require.ErrorIs(t, err, llm.ErrProviderUnavailable)
}

func TestSimpleQuerySkipsRetrieval(t *testing.T) {
	gen := &stubGenerator{result: llm.GenerationResult{Text: "plain"}}
	ret := &stubRetriever{passages: []model.Passage{{ID: "a", Content: "never used", Score: 1}}}
	p := NewPipeline(gen, ret, testDefaults(), nil)

	res, err := p.SimpleQuery(context.Background(), Request{Query: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "plain", res.Text)
	assert.NotContains(t, gen.lastReq.Messages[1].Content, "never used")
}
