package config

import (
	"os"
	"testing"
	"time"
)

func TestNewValidProvider(t *testing.T) {
	settings, err := New("cohere")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "cohere" {
		t.Errorf("expected provider 'cohere', got %q", settings.LLM.Provider)
	}
}

func TestNewWithAlias(t *testing.T) {
	settings, err := New("claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic' (normalized from 'claude'), got %q", settings.LLM.Provider)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("unknown_provider")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewDefaults(t *testing.T) {
	for _, key := range []string{
		"LLM_MAX_TOKENS", "LLM_TEMPERATURE", "SEARCH_LIMIT", "SCORE_THRESHOLD",
		"QDRANT_URL", "QDRANT_COLLECTION", "QDRANT_TIMEOUT", "EMBEDDING_MODEL",
	} {
		original := os.Getenv(key)
		os.Unsetenv(key)
		defer os.Setenv(key, original)
	}

	settings, err := New("cohere")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.MaxTokens != 500 {
		t.Errorf("expected max tokens 500, got %d", settings.LLM.MaxTokens)
	}
	if settings.Retrieval.SearchLimit != 5 {
		t.Errorf("expected search limit 5, got %d", settings.Retrieval.SearchLimit)
	}
	if settings.Retrieval.ScoreThreshold != 0.3 {
		t.Errorf("expected score threshold 0.3, got %v", settings.Retrieval.ScoreThreshold)
	}
	if settings.Qdrant.URL != "http://localhost:6333" {
		t.Errorf("unexpected qdrant url %q", settings.Qdrant.URL)
	}
	if settings.Qdrant.Collection != "book_content" {
		t.Errorf("unexpected collection %q", settings.Qdrant.Collection)
	}
	if settings.Qdrant.Timeout != 30*time.Second {
		t.Errorf("unexpected qdrant timeout %v", settings.Qdrant.Timeout)
	}
	if settings.Embedding.Model != "embed-english-v3.0" {
		t.Errorf("unexpected embedding model %q", settings.Embedding.Model)
	}
	if settings.Embedding.VectorSize != 1024 {
		t.Errorf("unexpected vector size %d", settings.Embedding.VectorSize)
	}
}

func TestNewEnvOverrides(t *testing.T) {
	originalLimit := os.Getenv("SEARCH_LIMIT")
	originalTimeout := os.Getenv("QDRANT_TIMEOUT")
	os.Setenv("SEARCH_LIMIT", "10")
	os.Setenv("QDRANT_TIMEOUT", "5s")
	defer func() {
		os.Setenv("SEARCH_LIMIT", originalLimit)
		os.Setenv("QDRANT_TIMEOUT", originalTimeout)
	}()

	settings, err := New("cohere")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Retrieval.SearchLimit != 10 {
		t.Errorf("expected search limit 10, got %d", settings.Retrieval.SearchLimit)
	}
	if settings.Qdrant.Timeout != 5*time.Second {
		t.Errorf("expected qdrant timeout 5s, got %v", settings.Qdrant.Timeout)
	}
}

func TestAPIKeyForValidProvider(t *testing.T) {
	original := os.Getenv("COHERE_API_KEY")
	os.Setenv("COHERE_API_KEY", "test-key")
	defer os.Setenv("COHERE_API_KEY", original)

	key, err := APIKeyFor("cohere")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-key" {
		t.Errorf("expected 'test-key', got %q", key)
	}
}

func TestAPIKeyForMissing(t *testing.T) {
	original := os.Getenv("OPENAI_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")
	defer os.Setenv("OPENAI_API_KEY", original)

	_, err := APIKeyFor("openai")
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestAPIKeyForUnknownProvider(t *testing.T) {
	_, err := APIKeyFor("unknown")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestModelFor(t *testing.T) {
	model, err := ModelFor("cohere")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model == "" {
		t.Error("expected non-empty model")
	}
}

func TestNewWithInvalidEnvVar(t *testing.T) {
	original := os.Getenv("LLM_MAX_TOKENS")
	os.Setenv("LLM_MAX_TOKENS", "not-a-number")
	defer os.Setenv("LLM_MAX_TOKENS", original)

	_, err := New("cohere")
	if err == nil {
		t.Error("expected error for invalid LLM_MAX_TOKENS")
	}
}

func TestNewWithInvalidDuration(t *testing.T) {
	original := os.Getenv("QDRANT_TIMEOUT")
	os.Setenv("QDRANT_TIMEOUT", "thirty seconds")
	defer os.Setenv("QDRANT_TIMEOUT", original)

	_, err := New("cohere")
	if err == nil {
		t.Error("expected error for invalid QDRANT_TIMEOUT")
	}
}

func TestMustNewPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for unknown provider")
		}
	}()
	MustNew("unknown_provider")
}

func TestSupportedProviders(t *testing.T) {
	providers := SupportedProviders()
	if len(providers) == 0 {
		t.Error("expected at least one supported provider")
	}
}
