// Google Gemini provider implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for Gemini API
// - System instruction handling via config

package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider implements the Generator interface for Google Gemini.
type GeminiProvider struct {
	client  *genai.Client
	initErr error // Stores client initialization error for deferred reporting
}

// NewGeminiProvider creates a new Gemini provider.
// If client initialization fails, the error is stored and returned on first use.
func NewGeminiProvider(apiKey string) *GeminiProvider {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return &GeminiProvider{
			initErr: fmt.Errorf("%w: gemini client init: %v", ErrProviderUnavailable, err),
		}
	}

	return &GeminiProvider{client: client}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Generate sends a chat completion request.
func (p *GeminiProvider) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	if p.initErr != nil {
		return GenerationResult{}, p.initErr
	}

	contents, systemInstruction := convertToGeminiMessages(req.Messages)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens),
	}

	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	response, err := p.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return GenerationResult{}, fmt.Errorf("%w: gemini: %v", ErrGeneration, err)
	}

	var usage TokenUsage
	if response.UsageMetadata != nil {
		usage = TokenUsage{
			PromptTokens:     int(response.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(response.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(response.UsageMetadata.TotalTokenCount),
		}
	}

	return GenerationResult{
		Text:      response.Text(),
		Usage:     usage,
		Provider:  "gemini",
		ModelUsed: req.Model,
	}, nil
}

// convertToGeminiMessages converts our ChatMessage to Gemini format.
// Extracts system message and returns it separately.
func convertToGeminiMessages(messages []ChatMessage) ([]*genai.Content, string) {
	var contents []*genai.Content
	var systemInstruction string

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			systemInstruction = msg.Content
		case "user":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case "assistant":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		}
	}

	return contents, systemInstruction
}

// Verify GeminiProvider implements Generator
var _ Generator = (*GeminiProvider)(nil)
