// Package llm provides shared data models for LLM providers.
package llm

// ChatMessage represents a chat message with role and content.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    "system",
		Content: content,
	}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    "user",
		Content: content,
	}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    "assistant",
		Content: content,
	}
}

// TokenUsage contains token usage statistics. Fields default to zero when
// a provider omits accounting.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerationRequest bundles one generation call. The (Provider, Model) pair
// must be a member of the registry's catalog; requests violating this are
// rejected before any network call.
type GenerationRequest struct {
	Messages    []ChatMessage
	Provider    string
	Model       string
	Temperature float32
	MaxTokens   int
}

// GenerationResult is the normalized output of a generation call,
// regardless of which provider produced it.
type GenerationResult struct {
	Text      string     `json:"text"`
	Usage     TokenUsage `json:"usage"`
	Provider  string     `json:"provider"`
	ModelUsed string     `json:"model_used"`
}

// EmbedIntent tells the embedding model whether the text is being indexed
// or used as a query. Document and query embeddings are produced with
// different calibration; using the wrong intent silently degrades retrieval
// quality rather than erroring.
type EmbedIntent string

const (
	// IntentDocument embeds text for indexing.
	IntentDocument EmbedIntent = "search_document"
	// IntentQuery embeds text for query-time search.
	IntentQuery EmbedIntent = "search_query"
)
