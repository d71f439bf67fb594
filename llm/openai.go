// OpenAI provider implementation using go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for OpenAI Chat Completions API

package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Generator interface for OpenAI.
// The model is chosen per request, not per client.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Generate sends a chat completion request.
func (p *OpenAIProvider) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	oaReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    convertToOpenAIMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	resp, err := p.client.CreateChatCompletion(ctx, oaReq)
	if err != nil {
		return GenerationResult{}, classifyOpenAIError(err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return GenerationResult{
		Text: content,
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Provider:  "openai",
		ModelUsed: req.Model,
	}, nil
}

// convertToOpenAIMessages converts our ChatMessage to openai.ChatCompletionMessage
func convertToOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		result[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return result
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider:   "openai",
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        classifyStatus(apiErr.HTTPStatusCode),
		}
	}
	return fmt.Errorf("%w: openai: %v", ErrProviderUnavailable, err)
}

// Verify OpenAIProvider implements Generator
var _ Generator = (*OpenAIProvider)(nil)
