package search

import (
	"fmt"
	"sort"
)

// Merge combines keyword and semantic result sets into one ranking.
// keywordWeight is the share given to keyword scores (0.0-1.0); semantic
// scores get the rest. Scores from each set are min-max normalized to 0-1
// before weighting, since bleve scores and cosine similarities live on
// different scales. Events appearing in both sets sum their weighted scores.
func Merge(keyword, semantic []*Result, keywordWeight float64, limit int) ([]*Result, error) {
	if keywordWeight < 0 || keywordWeight > 1 {
		return nil, fmt.Errorf("keywordWeight must be between 0 and 1")
	}
	semanticWeight := 1.0 - keywordWeight

	keywordScores := normalizeScores(keyword)
	semanticScores := normalizeScores(semantic)

	merged := make(map[int64]*Result)
	for _, r := range keyword {
		r.Score = keywordScores[r.EventID] * keywordWeight
		merged[r.EventID] = r
	}
	for _, r := range semantic {
		if existing, found := merged[r.EventID]; found {
			existing.Score += semanticScores[r.EventID] * semanticWeight
		} else {
			r.Score = semanticScores[r.EventID] * semanticWeight
			merged[r.EventID] = r
		}
	}

	combined := make([]*Result, 0, len(merged))
	for _, r := range merged {
		combined = append(combined, r)
	}
	sort.Slice(combined, func(i, j int) bool {
		return combined[i].Score > combined[j].Score
	})

	if limit > 0 && len(combined) > limit {
		combined = combined[:limit]
	}
	return combined, nil
}

// normalizeScores min-max normalizes result scores to the 0-1 range, keyed
// by event ID.
func normalizeScores(results []*Result) map[int64]float64 {
	normalized := make(map[int64]float64, len(results))
	if len(results) == 0 {
		return normalized
	}

	minScore := results[0].Score
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}

	scoreRange := maxScore - minScore
	if scoreRange == 0 {
		// All scores equal; give everything full weight.
		for _, r := range results {
			normalized[r.EventID] = 1.0
		}
		return normalized
	}

	for _, r := range results {
		normalized[r.EventID] = (r.Score - minScore) / scoreRange
	}
	return normalized
}
