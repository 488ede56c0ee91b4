package catalog

import (
	"context"

	dommatch "github.com/kailas-cloud/draftdex/internal/domain/match"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
)

// TemplateStore is the catalog view of the template index.
type TemplateStore interface {
	Get(ctx context.Context, id string) (domtpl.Template, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, skip, limit int) ([]domtpl.Template, error)
	Count(ctx context.Context) (int, error)
	NearestFiltered(ctx context.Context, vec []float32, k int, f domtpl.Filter) ([]dommatch.Candidate, error)
}

// Embedder vectorizes search queries.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
