package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	CacheSize int
}

// New creates an embedder with explicit configuration.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cache)
	case ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, cache)
	case ProviderLocal, "":
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. CODEATLAS_EMBEDDING_PROVIDER (openai, ollama, local)
//  2. OPENAI_API_KEY present -> openai
//  3. OLLAMA_HOST present -> ollama
//  4. local fallback
func NewFromEnv() (Embedder, error) {
	cache := NewCache(10000)

	switch DetectProvider() {
	case ProviderOpenAI:
		return NewOpenAIProvider("", "", "", cache)
	case ProviderOllama:
		return NewOllamaProvider("", "", cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, os.Getenv("CODEATLAS_EMBEDDING_PROVIDER"))
	}
}

// DetectProvider returns the provider that NewFromEnv would select.
func DetectProvider() string {
	if provider := os.Getenv("CODEATLAS_EMBEDDING_PROVIDER"); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	if os.Getenv(EnvOllamaHost) != "" {
		return ProviderOllama
	}
	return ProviderLocal
}
