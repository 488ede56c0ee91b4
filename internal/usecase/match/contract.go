package match

import (
	"context"

	dommatch "github.com/kailas-cloud/draftdex/internal/domain/match"
)

// Embedder turns the request text into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the read side of the template index used by matching.
type Index interface {
	Nearest(ctx context.Context, vec []float32, k int) ([]dommatch.Candidate, error)
}

// Reranker judges candidates against the raw request.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []dommatch.Candidate) (dommatch.Verdict, error)
}

// FallbackSource produces a template from outside the catalog.
// found=false with a nil error means the source had nothing suitable.
type FallbackSource interface {
	Find(ctx context.Context, query string) (finding dommatch.WebFinding, found bool, err error)
}
