package embeddings

import (
	"fmt"
)

// Embedder is the interface for embedding providers (Ollama, LM Studio, ...).
// Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed generates an embedding for a single text string
	Embed(text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple text strings in a single request
	EmbedBatch(texts []string) ([][]float32, error)

	// Health checks if the service is available and the model is loaded
	Health() error
}

// NewEmbedder creates a new embedding client based on the provider type.
// Supported providers: "ollama", "lmstudio", "hash" (deterministic, for
// tests and offline development).
func NewEmbedder(provider, baseURL, model string) (Embedder, error) {
	switch provider {
	case "ollama":
		return NewOllamaClient(baseURL, model), nil
	case "lmstudio":
		return NewLMStudioClient(baseURL, model), nil
	case "hash":
		return NewHashEmbedder(DefaultHashDimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: ollama, lmstudio, hash)", provider)
	}
}

// DefaultURL returns the default base URL for a given provider.
func DefaultURL(provider string) string {
	switch provider {
	case "ollama":
		return "http://localhost:11434"
	case "lmstudio":
		return "http://localhost:1234"
	default:
		return ""
	}
}

// DefaultModel returns the default multilingual embedding model for a given
// provider. Event titles and chat audiences are not English-only, so the
// defaults are sentence-transformer multilingual models.
func DefaultModel(provider string) string {
	switch provider {
	case "ollama":
		return "paraphrase-multilingual"
	case "lmstudio":
		return "text-embedding-paraphrase-multilingual-minilm-l12-v2"
	case "hash":
		return HashModelName
	default:
		return ""
	}
}
