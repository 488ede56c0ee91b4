package ingest

import (
	"context"

	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
	"github.com/kailas-cloud/draftdex/internal/usecase/dupguard"
)

// Synthesizer turns a raw document into a template proposal.
type Synthesizer interface {
	Synthesize(ctx context.Context, name, text string) (domtpl.Draft, error)
}

// Embedder vectorizes text. Blank text and backend failures are errors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DuplicateGuard finds an existing near-identical template.
type DuplicateGuard interface {
	Check(ctx context.Context, vec []float32) (*dupguard.Duplicate, error)
}

// TemplateWriter persists new templates.
type TemplateWriter interface {
	Insert(ctx context.Context, t domtpl.Template) error
}
