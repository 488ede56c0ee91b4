package draft

import (
	"context"

	dominst "github.com/kailas-cloud/draftdex/internal/domain/instance"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
)

// TemplateReader loads templates.
type TemplateReader interface {
	Get(ctx context.Context, id string) (domtpl.Template, error)
}

// Prefiller extracts variable values mentioned in a free-text request.
type Prefiller interface {
	Prefill(ctx context.Context, query string, vars []domtpl.Variable) (map[string]any, error)
}

// InstanceStore persists rendered drafts.
type InstanceStore interface {
	Save(ctx context.Context, inst dominst.Instance) error
	Get(ctx context.Context, id string) (dominst.Instance, error)
}
