// Cohere provider implementation as a direct HTTP translation layer.
//
// Cohere's chat endpoint expects a single flattened transcript rather than
// role-tagged turns, and nests token accounting under meta.tokens; both
// shapes are translated losslessly into the common request/result types.
// The same client serves embeddings, forwarding the embed intent as
// Cohere's input_type so document and query vectors get the calibration
// the model family expects.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const cohereDefaultBaseURL = "https://api.cohere.ai"

// CohereProvider implements Generator and Embedder for Cohere.
type CohereProvider struct {
	baseURL    string
	apiKey     string
	embedModel string
	client     *http.Client
}

// NewCohereProvider creates a new Cohere provider. embedModel is the
// embedding model used for Embed calls, e.g. "embed-english-v3.0".
func NewCohereProvider(apiKey, embedModel string, timeout time.Duration) *CohereProvider {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &CohereProvider{
		baseURL:    cohereDefaultBaseURL,
		apiKey:     apiKey,
		embedModel: embedModel,
		client:     &http.Client{Timeout: timeout},
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (p *CohereProvider) SetBaseURL(url string) {
	p.baseURL = strings.TrimRight(url, "/")
}

// Name returns the provider name.
func (p *CohereProvider) Name() string {
	return "cohere"
}

type cohereChatRequest struct {
	Model       string  `json:"model"`
	Message     string  `json:"message"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type cohereChatResponse struct {
	Text string `json:"text"`
	Meta struct {
		Tokens struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"tokens"`
	} `json:"meta"`
}

// Generate sends a chat request, flattening the role-tagged turns into a
// single transcript in original order.
func (p *CohereProvider) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	body := cohereChatRequest{
		Model:       req.Model,
		Message:     flattenTranscript(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var resp cohereChatResponse
	if err := p.postJSON(ctx, "/v1/chat", body, &resp); err != nil {
		return GenerationResult{}, err
	}

	input := resp.Meta.Tokens.InputTokens
	output := resp.Meta.Tokens.OutputTokens
	return GenerationResult{
		Text: resp.Text,
		Usage: TokenUsage{
			PromptTokens:     input,
			CompletionTokens: output,
			TotalTokens:      input + output,
		},
		Provider:  "cohere",
		ModelUsed: req.Model,
	}, nil
}

type cohereEmbedRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type cohereEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates one vector per input text using the configured
// embedding model. The intent is forwarded verbatim as input_type.
func (p *CohereProvider) Embed(ctx context.Context, texts []string, intent EmbedIntent) ([][]float32, error) {
	body := cohereEmbedRequest{
		Texts:     texts,
		Model:     p.embedModel,
		InputType: string(intent),
	}

	var resp cohereEmbedResponse
	if err := p.postJSON(ctx, "/v1/embed", body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: cohere returned %d embeddings for %d texts",
			ErrGeneration, len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

// flattenTranscript converts role-tagged turns into Cohere's single-message
// format, preserving turn order and role labels.
func flattenTranscript(messages []ChatMessage) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			b.WriteString("System: ")
		case "assistant":
			b.WriteString("Assistant: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n ")
}

func (p *CohereProvider) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal cohere request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create cohere request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return &ProviderError{Provider: "cohere", Message: err.Error(), Err: ErrProviderUnavailable}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseCohereError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse cohere response: %w", err)
	}
	return nil
}

func parseCohereError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	msg := string(body)
	var errResp struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
		msg = errResp.Message
	}

	return &ProviderError{
		Provider:   "cohere",
		StatusCode: resp.StatusCode,
		Message:    msg,
		Err:        classifyStatus(resp.StatusCode),
	}
}

// Verify CohereProvider implements both capabilities
var (
	_ Generator = (*CohereProvider)(nil)
	_ Embedder  = (*CohereProvider)(nil)
)
