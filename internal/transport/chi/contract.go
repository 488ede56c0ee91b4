package chi

import (
	"context"

	dombatch "github.com/kailas-cloud/draftdex/internal/domain/batch"
	"github.com/kailas-cloud/draftdex/internal/domain/export"
	dominst "github.com/kailas-cloud/draftdex/internal/domain/instance"
	dommatch "github.com/kailas-cloud/draftdex/internal/domain/match"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
	"github.com/kailas-cloud/draftdex/internal/usecase/catalog"
	draftuc "github.com/kailas-cloud/draftdex/internal/usecase/draft"
	healthuc "github.com/kailas-cloud/draftdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/draftdex/internal/usecase/ingest"
)

// Matcher runs the matching pipeline.
type Matcher interface {
	Match(ctx context.Context, query string) (dommatch.Result, error)
	Stream(ctx context.Context, query string) <-chan dommatch.Event
}

// Ingester adds documents to the catalog.
type Ingester interface {
	Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Outcome, error)
	IngestBatch(ctx context.Context, reqs []ingestuc.Request) []dombatch.Result[ingestuc.Outcome]
}

// Catalog browses and exports templates.
type Catalog interface {
	List(ctx context.Context, skip, limit int) (catalog.Page, error)
	Get(ctx context.Context, id string) (domtpl.Template, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, topK int, f domtpl.Filter) ([]dommatch.Candidate, error)
	Similar(ctx context.Context, id string, topK int) ([]dommatch.Candidate, error)
	Download(ctx context.Context, id string, f export.Format) (export.File, error)
}

// Drafts collects answers and renders drafts.
type Drafts interface {
	Questions(ctx context.Context, templateID, userQuery string) (draftuc.QuestionSet, error)
	Generate(ctx context.Context, req draftuc.GenerateRequest) (draftuc.Generated, error)
	GetInstance(ctx context.Context, id string) (dominst.Instance, error)
	DownloadInstance(ctx context.Context, id string, f export.Format) (export.File, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Extractor turns an uploaded file into text.
type Extractor interface {
	Extract(filename, contentType string, data []byte) (string, error)
}
