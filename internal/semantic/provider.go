package semantic

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/streamevents/streamevents/internal/embeddings"
)

// Provider turns normalized text into unit-norm vectors through a lazily
// initialized embedding client. Construction of the client (and its health
// probe, which may pull in a multi-second model load on the server side)
// happens at most once per process under a double-checked lock: concurrent
// first callers race to the mutex, exactly one performs the load, and all
// later calls take the lock-free fast path. A failed load is not cached, so
// a later call may retry once the model server is back.
type Provider struct {
	model string
	load  func() (embeddings.Embedder, error)

	mu     sync.Mutex
	cached atomic.Pointer[embeddings.Embedder]
}

// NewProvider creates a provider for the named embedding backend.
func NewProvider(provider, baseURL, model string) *Provider {
	if baseURL == "" {
		baseURL = embeddings.DefaultURL(provider)
	}
	if model == "" {
		model = embeddings.DefaultModel(provider)
	}
	return &Provider{
		model: model,
		load: func() (embeddings.Embedder, error) {
			e, err := embeddings.NewEmbedder(provider, baseURL, model)
			if err != nil {
				return nil, err
			}
			if err := e.Health(); err != nil {
				return nil, fmt.Errorf("embedding model unavailable: %w", err)
			}
			return e, nil
		},
	}
}

// NewProviderWith creates a provider around an explicit loader. Tests use it
// to inject fakes.
func NewProviderWith(model string, load func() (embeddings.Embedder, error)) *Provider {
	return &Provider{model: model, load: load}
}

// Embedder returns the shared embedding client, loading it on first use.
func (p *Provider) Embedder() (embeddings.Embedder, error) {
	if e := p.cached.Load(); e != nil {
		return *e, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if e := p.cached.Load(); e != nil {
		return *e, nil
	}

	e, err := p.load()
	if err != nil {
		return nil, err
	}
	p.cached.Store(&e)
	return e, nil
}

// EmbedText embeds a single text. Blank input returns (nil, nil) without
// touching the embedder: empty text is "not embeddable", not an error. The
// returned vector is scaled to unit L2 norm so that rankers can treat dot
// products as cosine similarities.
func (p *Provider) EmbedText(text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	e, err := p.Embedder()
	if err != nil {
		return nil, err
	}

	vec, err := e.Embed(text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	embeddings.Normalize(vec)
	return vec, nil
}

// ModelName returns the identifier persisted alongside every embedding this
// provider computes. Events embedded under an older identifier can be found
// and re-embedded after a model migration.
func (p *Provider) ModelName() string {
	return p.model
}
