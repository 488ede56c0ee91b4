package fallback

import (
	"context"

	"github.com/kailas-cloud/draftdex/internal/domain/source"
	"github.com/kailas-cloud/draftdex/internal/usecase/ingest"
)

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string, numResults int) ([]source.Page, error)
}

// Fetcher downloads the readable text of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Ingester turns a document into a catalog template.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (ingest.Outcome, error)
}
