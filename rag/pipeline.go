// Package rag combines retrieval and generation into grounded answers.
//
// The pipeline is a per-request state machine: retrieve, then either a
// grounded generation over the retrieved context or an ungrounded fallback
// when nothing relevant exists. Every downstream failure is absorbed at
// this boundary into a well-formed response; callers never see raw
// provider errors, with one exception: an invalid provider/model pair is
// a caller programming error and is rejected synchronously before any
// network call.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/richinex/libretto/llm"
	"github.com/richinex/libretto/model"
)

// Fallback and error texts surfaced to callers.
const (
	WarningNoContext = "no relevant context found"
	apologyText      = "Sorry, I encountered an error. Please try again."
	errorText        = "An error occurred while processing your request"
)

const groundedSystemPrompt = "You are a helpful AI assistant that answers questions based on provided documentation. " +
	"Use only the context provided below to answer the user's question. " +
	"If the context doesn't contain enough information, say so. " +
	"Always cite sources when possible."

// Generator is the slice of llm.Registry the pipeline needs.
type Generator interface {
	ValidateModel(provider, model string) bool
	Generate(ctx context.Context, req llm.GenerationRequest) (llm.GenerationResult, error)
}

// Retriever produces ranked passages for a query, degrading to empty on
// failure.
type Retriever interface {
	Search(ctx context.Context, query string, limit int, scoreThreshold float64) []model.Passage
}

// Defaults fills unset request fields.
type Defaults struct {
	Provider       string
	Model          string
	Temperature    float32
	MaxTokens      int
	SearchLimit    int
	ScoreThreshold float64
	Timeout        time.Duration
}

// Request is one RAG query. Zero-valued fields fall back to the pipeline
// defaults.
type Request struct {
	Query          string
	Provider       string
	Model          string
	Temperature    float32
	MaxTokens      int
	SearchLimit    int
	ScoreThreshold float64
}

// Response is the assembled answer with citations. Warning is set when the
// pipeline fell back to ungrounded generation; Err is set when a failure
// was absorbed.
type Response struct {
	Text      string         `json:"text"`
	Sources   []model.Source `json:"sources"`
	Provider  string         `json:"provider"`
	ModelUsed string         `json:"model_used"`
	Usage     llm.TokenUsage `json:"usage"`
	Warning   string         `json:"warning,omitempty"`
	Err       string         `json:"error,omitempty"`
}

// Pipeline orchestrates retrieval and generation.
type Pipeline struct {
	generator Generator
	retriever Retriever
	defaults  Defaults
	log       *slog.Logger
}

// NewPipeline creates a RAG pipeline.
func NewPipeline(generator Generator, retriever Retriever, defaults Defaults, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{generator: generator, retriever: retriever, defaults: defaults, log: log}
}

// Query runs the full retrieve-then-generate flow. The returned error is
// non-nil only for an invalid provider/model selection; every other
// failure is absorbed into the response.
func (p *Pipeline) Query(ctx context.Context, req Request) (Response, error) {
	req = p.applyDefaults(req)

	if !p.generator.ValidateModel(req.Provider, req.Model) {
		return Response{}, fmt.Errorf("%w: %s/%s", llm.ErrInvalidModelSelection, req.Provider, req.Model)
	}

	passages := p.retriever.Search(ctx, req.Query, req.SearchLimit, req.ScoreThreshold)

	var (
		messages []llm.ChatMessage
		warning  string
	)
	if len(passages) == 0 {
		messages = []llm.ChatMessage{
			llm.SystemMessage("You are a helpful AI assistant."),
			llm.UserMessage(req.Query),
		}
		warning = WarningNoContext
	} else {
		messages = []llm.ChatMessage{
			llm.SystemMessage(groundedSystemPrompt),
			llm.UserMessage(contextPrompt(passages, req.Query)),
		}
	}

	result, err := p.generate(ctx, messages, req)
	if err != nil {
		p.log.Error("generation failed", "provider", req.Provider, "model", req.Model, "error", err)
		return Response{
			Text:      apologyText,
			Sources:   []model.Source{},
			Provider:  req.Provider,
			ModelUsed: req.Model,
			Err:       errorText,
		}, nil
	}

	sources := make([]model.Source, len(passages))
	for i, passage := range passages {
		sources[i] = model.SourceOf(passage)
	}

	return Response{
		Text:      result.Text,
		Sources:   sources,
		Provider:  result.Provider,
		ModelUsed: result.ModelUsed,
		Usage:     result.Usage,
		Warning:   warning,
	}, nil
}

// SimpleQuery generates without retrieval. It is a thin passthrough:
// provider errors propagate typed to the caller.
func (p *Pipeline) SimpleQuery(ctx context.Context, req Request) (llm.GenerationResult, error) {
	req = p.applyDefaults(req)

	messages := []llm.ChatMessage{
		llm.SystemMessage("You are a helpful AI assistant."),
		llm.UserMessage(req.Query),
	}
	return p.generate(ctx, messages, req)
}

func (p *Pipeline) generate(ctx context.Context, messages []llm.ChatMessage, req Request) (llm.GenerationResult, error) {
	if p.defaults.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.defaults.Timeout)
		defer cancel()
	}
	return p.generator.Generate(ctx, llm.GenerationRequest{
		Messages:    messages,
		Provider:    req.Provider,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
}

func (p *Pipeline) applyDefaults(req Request) Request {
	if req.Provider == "" {
		req.Provider = p.defaults.Provider
	}
	if req.Model == "" {
		req.Model = p.defaults.Model
	}
	if req.Temperature == 0 {
		req.Temperature = p.defaults.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = p.defaults.MaxTokens
	}
	if req.SearchLimit == 0 {
		req.SearchLimit = p.defaults.SearchLimit
	}
	if req.ScoreThreshold == 0 {
		req.ScoreThreshold = p.defaults.ScoreThreshold
	}
	return req
}

// contextPrompt concatenates passages under labeled source headers in
// retrieval order so the highest scoring passage leads.
func contextPrompt(passages []model.Passage, query string) string {
	var b strings.Builder
	b.WriteString("Context: ")
	for i, passage := range passages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Source %d: %s", i+1, passage.Content)
	}
	fmt.Fprintf(&b, "\n\nQuestion: %s\n\n", query)
	b.WriteString("Based on the provided context, please answer the question and cite relevant sources. " +
		"If the context doesn't contain enough information to answer, please say so.")
	return b.String()
}
