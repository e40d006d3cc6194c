package semantic

import (
	"sort"

	"github.com/streamevents/streamevents/internal/embeddings"
)

// DefaultTopK is the ranking depth used when the caller passes k <= 0.
const DefaultTopK = 20

// Candidate pairs an item with its stored embedding vector.
type Candidate[T any] struct {
	Item   T
	Vector []float32
}

// Scored is a ranked item with its cosine similarity to the query.
type Scored[T any] struct {
	Item  T
	Score float32
}

// CosineTopK ranks candidates by cosine similarity to the query vector and
// returns the k best in descending order. Both query and candidate vectors
// are trusted to be unit-norm (the provider normalizes at embedding time),
// so the score is a plain dot product.
//
// An empty or zero-norm query yields no results. Candidates with an empty
// vector, a dimensionality different from the query's, or zero norm are
// unrankable and silently skipped; dimension mismatches are counted in a
// metric so an incomplete model migration shows up on a dashboard instead
// of as quietly missing recall.
func CosineTopK[T any](query []float32, items []Candidate[T], k int) []Scored[T] {
	if k <= 0 {
		k = DefaultTopK
	}
	if len(query) == 0 || embeddings.Norm(query) == 0 {
		return nil
	}

	scored := make([]Scored[T], 0, len(items))
	for _, c := range items {
		if len(c.Vector) == 0 {
			continue
		}
		if len(c.Vector) != len(query) {
			dimensionMismatches.Inc()
			continue
		}
		if embeddings.Norm(c.Vector) == 0 {
			continue
		}
		scored = append(scored, Scored[T]{Item: c.Item, Score: embeddings.Dot(query, c.Vector)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
