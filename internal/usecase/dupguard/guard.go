// Package dupguard detects near-identical templates before they are inserted.
package dupguard

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/draftdex/internal/domain"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
)

// Duplicate is an existing template close enough to count as the same document.
type Duplicate struct {
	Template   domtpl.Template
	Similarity float64
}

// Guard checks candidate vectors against the catalog.
type Guard struct {
	index     Index
	threshold float64
}

// New creates a Guard with the default threshold of domain.DefaultMatchingPolicy.
func New(index Index, threshold float64) *Guard {
	if threshold <= 0 || threshold > 1 {
		threshold = domain.DefaultMatchingPolicy().DuplicateThreshold
	}
	return &Guard{index: index, threshold: threshold}
}

// Threshold returns the configured similarity threshold.
func (g *Guard) Threshold() float64 { return g.threshold }

// Check looks for a duplicate using the configured threshold. Nil means none.
func (g *Guard) Check(ctx context.Context, vec []float32) (*Duplicate, error) {
	return g.CheckThreshold(ctx, vec, g.threshold)
}

// CheckThreshold looks for a template whose similarity to vec is at least threshold.
func (g *Guard) CheckThreshold(ctx context.Context, vec []float32, threshold float64) (*Duplicate, error) {
	if len(vec) == 0 {
		return nil, domain.NewValidationError("embedding", "must not be empty")
	}
	if threshold < 0 || threshold > 1 {
		return nil, domain.NewValidationError("threshold", fmt.Sprintf("must be in [0,1], got %v", threshold))
	}

	nearest, err := g.index.Nearest(ctx, vec, 1)
	if err != nil {
		return nil, fmt.Errorf("find nearest template: %w", err)
	}
	if len(nearest) == 0 || nearest[0].Similarity < threshold {
		return nil, nil
	}
	return &Duplicate{Template: nearest[0].Template, Similarity: nearest[0].Similarity}, nil
}
