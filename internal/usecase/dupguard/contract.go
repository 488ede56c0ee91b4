package dupguard

import (
	"context"

	dommatch "github.com/kailas-cloud/draftdex/internal/domain/match"
)

// Index finds the templates nearest to a vector.
type Index interface {
	Nearest(ctx context.Context, vec []float32, k int) ([]dommatch.Candidate, error)
}
