// Package book implements the strictly grounded question service for the
// Physical AI & Humanoid Robotics book. Unlike the general rag pipeline it
// never falls back to the model's own knowledge: when the corpus or the
// supplied excerpt cannot support an answer, it returns a canonical refusal
// sentence instead.
package book

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/richinex/libretto/llm"
	"github.com/richinex/libretto/model"
	"github.com/richinex/libretto/rag"
)

// Canonical refusal sentences. The post-generation check matches these
// case-insensitively so a paraphrased refusal still normalizes to the
// exact sentence with no stale citations attached.
const (
	RefusalBook     = "This is not covered in the book."
	RefusalSelected = "This is not covered in the selected text."
)

// MinExcerptRunes is the shortest selected excerpt worth sending to a
// model, measured after trimming whitespace.
const MinExcerptRunes = 5

const fullBookSystemPrompt = "You are an AI assistant for the Physical AI & Humanoid Robotics book. " +
	"Answer the user's question based ONLY on the provided book content. " +
	"Do not use any external knowledge or general AI knowledge. " +
	"If the provided context doesn't contain enough information to answer the question, respond with 'This is not covered in the book.' " +
	"Always cite chapter titles when possible and maintain academic tone appropriate for educational content."

const selectedTextSystemPrompt = "You are an AI assistant for the Physical AI & Humanoid Robotics book. " +
	"Answer the user's question based ONLY on the provided selected text. " +
	"Do not use any external knowledge or general AI knowledge. " +
	"If the selected text doesn't contain enough information to answer the question, respond with 'This is not covered in the selected text.' " +
	"Always maintain academic tone appropriate for educational content."

// PassageFilter decides whether a retrieved passage counts as book content.
// It runs after retrieval and before any generation call.
type PassageFilter func(p model.Passage) bool

// AcceptAll is the default provenance filter. Real provenance tagging
// would key on metadata like document_type or source; until the index
// carries it, every retrieved passage is treated as book content.
func AcceptAll(model.Passage) bool { return true }

// Request is one grounded book question.
type Request struct {
	Query          string
	Mode           model.QueryMode
	SelectedText   string
	Provider       string
	Model          string
	Temperature    float32
	MaxTokens      int
	SearchLimit    int
	ScoreThreshold float64
}

// Response carries the grounded answer or a canonical refusal.
type Response struct {
	Text      string          `json:"text"`
	Sources   []model.Source  `json:"sources"`
	Mode      model.QueryMode `json:"mode"`
	Provider  string          `json:"provider"`
	ModelUsed string          `json:"model_used"`
	Usage     llm.TokenUsage  `json:"usage"`
}

// Service answers questions grounded in the book corpus or a selected
// excerpt.
type Service struct {
	generator rag.Generator
	retriever rag.Retriever
	filter    PassageFilter
	defaults  rag.Defaults
	log       *slog.Logger
}

// NewService creates a book query service. A nil filter accepts every
// passage.
func NewService(generator rag.Generator, retriever rag.Retriever, defaults rag.Defaults, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		generator: generator,
		retriever: retriever,
		filter:    AcceptAll,
		defaults:  defaults,
		log:       log,
	}
}

// SetFilter replaces the provenance filter. Must be called before the
// service is shared between goroutines.
func (s *Service) SetFilter(f PassageFilter) {
	if f != nil {
		s.filter = f
	}
}

// Query dispatches on the request mode. The returned error is non-nil
// only for an invalid mode or provider/model selection; internal
// failures become the mode's canonical refusal.
func (s *Service) Query(ctx context.Context, req Request) (Response, error) {
	req = s.applyDefaults(req)

	if !req.Mode.Valid() {
		return Response{}, fmt.Errorf("unknown query mode %q", req.Mode)
	}
	if !s.generator.ValidateModel(req.Provider, req.Model) {
		return Response{}, fmt.Errorf("%w: %s/%s", llm.ErrInvalidModelSelection, req.Provider, req.Model)
	}

	switch req.Mode {
	case model.ModeSelectedText:
		return s.querySelectedText(ctx, req), nil
	default:
		return s.queryFullBook(ctx, req), nil
	}
}

func (s *Service) queryFullBook(ctx context.Context, req Request) Response {
	passages := s.retriever.Search(ctx, req.Query, req.SearchLimit, req.ScoreThreshold)

	kept := passages[:0:0]
	for _, p := range passages {
		if s.filter(p) {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return s.refuse(req, RefusalBook)
	}

	var b strings.Builder
	for i, p := range kept {
		if i > 0 {
			b.WriteString("\n\n")
		}
		title, ok := p.Metadata["title"].(string)
		if !ok || title == "" {
			title = "Unknown"
		}
		fmt.Fprintf(&b, "Source %d (Chapter: %s): %s", i+1, title, p.Content)
	}

	user := fmt.Sprintf("Book Content Context:\n%s\n\nQuestion: %s\n\n"+
		"Based only on the provided book content, please answer the question and cite relevant chapters. "+
		"If the book content doesn't contain enough information to answer, please respond with 'This is not covered in the book.'",
		b.String(), req.Query)

	result, err := s.generate(ctx, req, fullBookSystemPrompt, user)
	if err != nil {
		s.log.Error("full book query failed", "provider", req.Provider, "model", req.Model, "error", err)
		return s.refuse(req, RefusalBook)
	}

	if strings.Contains(strings.ToLower(result.Text), "not covered in the book") {
		resp := s.refuse(req, RefusalBook)
		resp.Provider = result.Provider
		resp.ModelUsed = result.ModelUsed
		resp.Usage = result.Usage
		return resp
	}

	sources := make([]model.Source, len(kept))
	for i, p := range kept {
		sources[i] = model.SourceOf(p)
	}
	return Response{
		Text:      result.Text,
		Sources:   sources,
		Mode:      model.ModeFullBook,
		Provider:  result.Provider,
		ModelUsed: result.ModelUsed,
		Usage:     result.Usage,
	}
}

func (s *Service) querySelectedText(ctx context.Context, req Request) Response {
	excerpt := req.SelectedText
	if utf8.RuneCountInString(strings.TrimSpace(excerpt)) < MinExcerptRunes {
		return s.refuse(req, RefusalSelected)
	}

	user := fmt.Sprintf("Selected text: %s\n\nQuestion: %s\n\n"+
		"Please answer the question based ONLY on the selected text above. "+
		"Do not provide any information that is not directly supported by the selected text. "+
		"If the selected text does not contain enough information to answer the question, "+
		"please respond with 'This is not covered in the selected text.'",
		excerpt, req.Query)

	result, err := s.generate(ctx, req, selectedTextSystemPrompt, user)
	if err != nil {
		s.log.Error("selected text query failed", "provider", req.Provider, "model", req.Model, "error", err)
		return s.refuse(req, RefusalSelected)
	}

	if strings.Contains(strings.ToLower(result.Text), "not covered in the selected text") {
		resp := s.refuse(req, RefusalSelected)
		resp.Provider = result.Provider
		resp.ModelUsed = result.ModelUsed
		resp.Usage = result.Usage
		return resp
	}

	return Response{
		Text: result.Text,
		Sources: []model.Source{{
			ID:      "selected_text",
			Content: model.Preview(excerpt),
			Score:   1.0,
			Metadata: map[string]any{
				"type":   "selected_text",
				"source": "user_selection",
			},
		}},
		Mode:      model.ModeSelectedText,
		Provider:  result.Provider,
		ModelUsed: result.ModelUsed,
		Usage:     result.Usage,
	}
}

func (s *Service) generate(ctx context.Context, req Request, system, user string) (llm.GenerationResult, error) {
	if s.defaults.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.defaults.Timeout)
		defer cancel()
	}
	return s.generator.Generate(ctx, llm.GenerationRequest{
		Messages: []llm.ChatMessage{
			llm.SystemMessage(system),
			llm.UserMessage(user),
		},
		Provider:    req.Provider,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
}

func (s *Service) refuse(req Request, text string) Response {
	return Response{
		Text:      text,
		Sources:   []model.Source{},
		Mode:      req.Mode,
		Provider:  req.Provider,
		ModelUsed: req.Model,
	}
}

func (s *Service) applyDefaults(req Request) Request {
	if req.Provider == "" {
		req.Provider = s.defaults.Provider
	}
	if req.Model == "" {
		req.Model = s.defaults.Model
	}
	if req.Temperature == 0 {
		req.Temperature = s.defaults.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = s.defaults.MaxTokens
	}
	if req.SearchLimit == 0 {
		req.SearchLimit = s.defaults.SearchLimit
	}
	if req.ScoreThreshold == 0 {
		req.ScoreThreshold = s.defaults.ScoreThreshold
	}
	return req
}
