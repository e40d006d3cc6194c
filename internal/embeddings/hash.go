package embeddings

import (
	"hash/fnv"
	"strings"
)

const (
	// HashModelName identifies vectors produced by the hash embedder.
	HashModelName = "hash-embedder-v1"

	// DefaultHashDimensions is the output size of the hash embedder.
	DefaultHashDimensions = 64
)

// Ensure HashEmbedder implements Embedder interface at compile time
var _ Embedder = (*HashEmbedder)(nil)

// HashEmbedder is a deterministic embedder that maps token hashes into a
// fixed-dimension bag-of-words vector. It has no semantic power; it exists
// so tests and offline development can exercise the full embedding pipeline
// without a model server.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder with the given output dimension.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Embed produces a unit-norm vector derived from token hashes. Identical
// texts always produce identical vectors.
func (h *HashEmbedder) Embed(text string) ([]float32, error) {
	vec := make([]float32, h.dims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		hasher := fnv.New32a()
		hasher.Write([]byte(token))
		sum := hasher.Sum32()
		// Low bits pick the bucket, next bit picks the sign.
		bucket := int(sum % uint32(h.dims))
		if sum&(1<<31) != 0 {
			vec[bucket] -= 1
		} else {
			vec[bucket] += 1
		}
	}
	Normalize(vec)
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (h *HashEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := h.Embed(text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// Health always succeeds; there is no external service.
func (h *HashEmbedder) Health() error {
	return nil
}
