// Package vectormath holds the similarity math shared by every index backend.
//
// All similarities are reported on one scale: cosine remapped to [0,1] as (cos+1)/2.
package vectormath

import (
	"errors"
	"math"
	"sort"
)

// ErrInvalidK is returned by TopK when k < 1.
var ErrInvalidK = errors.New("k must be at least 1")

// Scored is a candidate position with its similarity to the query.
type Scored struct {
	Index int
	Score float64
}

// CosineSimilarity returns cosine similarity of a and b remapped to [0,1].
// Empty input, mismatched dimensions and zero-norm vectors give 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}

	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return clamp01((cos + 1) / 2)
}

// FromCosineDistance converts a store cosine distance (1-cos, range [0,2])
// into the remapped similarity used by CosineSimilarity.
func FromCosineDistance(d float64) float64 {
	if math.IsNaN(d) {
		return 0
	}
	return clamp01((2 - d) / 2)
}

// TopK scores candidates against query and returns the k best, highest first.
// Ties keep input order.
func TopK(query []float32, candidates [][]float32, k int) ([]Scored, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if len(candidates) == 0 {
		return []Scored{}, nil
	}

	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Index: i, Score: CosineSimilarity(query, c)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
