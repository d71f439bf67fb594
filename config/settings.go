// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings holds all application configuration.
type Settings struct {
	LLM       LLMConfig
	Retrieval RetrievalConfig
	Qdrant    QdrantConfig
	Embedding EmbeddingConfig
	Catalog   CatalogConfig
}

// LLMConfig holds generation provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// RetrievalConfig holds vector search defaults.
type RetrievalConfig struct {
	SearchLimit    int
	ScoreThreshold float64
}

// QdrantConfig holds vector store connection settings.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
	PreferGRPC bool
}

// EmbeddingConfig holds the embedding model settings. The vector size must
// match the model: changing the model requires re-creating the collection.
type EmbeddingConfig struct {
	Model      string
	VectorSize int
}

// CatalogConfig holds the ingest manifest database settings.
type CatalogConfig struct {
	Path string
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-4o-mini", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"cohere":    {"COHERE_MODEL", "command-r-plus", "COHERE_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// New creates settings for the specified provider, loading values from environment variables.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	maxTokens, err := getEnvInt("LLM_MAX_TOKENS", 500)
	if err != nil {
		return Settings{}, err
	}

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	llmTimeout, err := getEnvDuration("LLM_TIMEOUT", 120*time.Second)
	if err != nil {
		return Settings{}, err
	}

	searchLimit, err := getEnvInt("SEARCH_LIMIT", 5)
	if err != nil {
		return Settings{}, err
	}

	scoreThreshold, err := getEnvFloat64("SCORE_THRESHOLD", 0.3)
	if err != nil {
		return Settings{}, err
	}

	qdrantTimeout, err := getEnvDuration("QDRANT_TIMEOUT", 30*time.Second)
	if err != nil {
		return Settings{}, err
	}

	preferGRPC, err := getEnvBool("QDRANT_PREFER_GRPC", false)
	if err != nil {
		return Settings{}, err
	}

	vectorSize, err := getEnvInt("EMBEDDING_VECTOR_SIZE", 1024)
	if err != nil {
		return Settings{}, err
	}

	// Get model from environment or use default
	model := os.Getenv(info.modelEnv)
	if model == "" {
		model = info.defaultModel
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: float32(temperature),
			Timeout:     llmTimeout,
		},
		Retrieval: RetrievalConfig{
			SearchLimit:    searchLimit,
			ScoreThreshold: scoreThreshold,
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", "http://localhost:6333"),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			Collection: getEnv("QDRANT_COLLECTION", "book_content"),
			Timeout:    qdrantTimeout,
			PreferGRPC: preferGRPC,
		},
		Embedding: EmbeddingConfig{
			Model:      getEnv("EMBEDDING_MODEL", "embed-english-v3.0"),
			VectorSize: vectorSize,
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", "libretto.db"),
		},
	}, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(provider)
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	if val := os.Getenv(info.modelEnv); val != "" {
		return val, nil
	}
	return info.defaultModel, nil
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	return result
}

// Environment variable helpers with proper error handling

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return d, nil
}
