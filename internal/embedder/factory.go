package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder construction parameters.
type Config struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	CacheSize int
	RPS       float64 // client-side rate limit; 0 disables
}

// New creates an embedder with explicit configuration.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize != 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cache, cfg.RPS)
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cache, cfg.RPS)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProviderEnabled, cfg.Provider)
	}
}

// NewFromEnv creates an embedder based on environment variables, preferring
// OpenAI, then Jina, then the local provider.
func NewFromEnv() (Embedder, error) {
	cache := NewCache(10000)

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return NewOpenAIProvider(key, "", "", cache, 0)
	}
	if key := os.Getenv("JINA_API_KEY"); key != "" {
		return NewJinaProvider(key, "", "", cache, 0)
	}
	return NewLocalProvider(cache)
}
