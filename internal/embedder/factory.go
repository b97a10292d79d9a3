package embedder

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	OllamaURL string
	CacheSize int
}

// NewFromEnv creates an embedder based on environment variables
// Priority:
// 1. LOCALSEARCH_EMBEDDING_PROVIDER (auto, ollama, openai, mock)
// 2. "auto": prefer a reachable local Ollama server (nothing leaves the
// machine), then OPENAI_API_KEY if set
// 3. Fall back to the mock provider so the server still starts
func NewFromEnv() (Embedder, error) {
	return New(Config{
		Provider:  os.Getenv(EnvProvider),
		Model:     os.Getenv(EnvModel),
		APIKey:    os.Getenv(EnvOpenAIAPIKey),
		OllamaURL: os.Getenv(EnvOllamaURL),
		CacheSize: 10000,
	})
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case "", "auto":
		return newAutoProvider(cfg, cache)
	case ProviderOllama, "local":
		return NewOllamaProvider(cfg.OllamaURL, cfg.Model, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache)
	case ProviderMock:
		return NewMockProvider(0, cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// newAutoProvider picks the best available backend, local first
func newAutoProvider(cfg Config, cache *Cache) (Embedder, error) {
	ollama, err := NewOllamaProvider(cfg.OllamaURL, cfg.Model, cache)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if ollama.Ping(ctx) {
			return ollama, nil
		}
		_ = ollama.Close()
	}

	if cfg.APIKey != "" {
		return NewOpenAIProvider(cfg.APIKey, cache)
	}

	return NewMockProvider(0, cache)
}

// DetectProvider returns the provider name that New would select for the
// current environment, without opening any connections
func DetectProvider() string {
	provider := strings.ToLower(os.Getenv(EnvProvider))
	if provider != "" && provider != "auto" {
		return provider
	}
	return "auto"
}
