// Package fallback builds a template from the web when the catalog has no good match.
package fallback

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/domain"
	dommatch "github.com/kailas-cloud/draftdex/internal/domain/match"
	"github.com/kailas-cloud/draftdex/internal/domain/source"
	"github.com/kailas-cloud/draftdex/internal/logger"
	"github.com/kailas-cloud/draftdex/internal/usecase/ingest"
)

const (
	defaultMaxResults = 3
	defaultTitle      = "Web Template"
)

// Service finds a legal template on the web and ingests it.
type Service struct {
	search     Searcher
	fetch      Fetcher
	ingest     Ingester
	maxResults int
	maxBytes   int
	logger     *zap.Logger
}

// Option configures Service.
type Option func(*Service)

// WithMaxResults sets how many filtered pages are considered.
func WithMaxResults(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithMaxContentBytes truncates page text before ingestion.
func WithMaxContentBytes(n int) Option {
	return func(s *Service) { s.maxBytes = n }
}

// New creates the fallback source. fetch may be nil, then short search texts are skipped.
func New(search Searcher, fetch Fetcher, ing Ingester, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		search:     search,
		fetch:      fetch,
		ingest:     ing,
		maxResults: defaultMaxResults,
		maxBytes:   domain.DefaultIngestPolicy().MaxDocumentBytes,
		logger:     log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Find searches the web for the query and ingests the first usable page.
// found is false when no page qualifies; err wraps domain.ErrFallbackBackend.
func (s *Service) Find(ctx context.Context, query string) (dommatch.WebFinding, bool, error) {
	log := logger.OrContext(ctx, s.logger)

	enriched := source.EnrichQuery(query)
	pages, err := s.search.Search(ctx, enriched, s.maxResults*2)
	if err != nil {
		return dommatch.WebFinding{}, false, fmt.Errorf("search web: %w", err)
	}

	candidates := s.filter(pages)
	log.Info("Web search finished",
		zap.Int("results", len(pages)),
		zap.Int("candidates", len(candidates)),
	)

	for _, p := range candidates {
		text := s.content(ctx, p)
		if len(strings.TrimSpace(text)) < source.MinContentChars {
			continue
		}

		title := strings.TrimSpace(p.Title)
		if title == "" {
			title = defaultTitle
		}

		out, err := s.ingest.Ingest(ctx, ingest.Request{
			Name:      title,
			Text:      truncate(text, s.maxBytes),
			SourceURL: p.URL,
		})
		if err != nil {
			return dommatch.WebFinding{}, false, fmt.Errorf("%w: ingest %s: %w", domain.ErrFallbackBackend, p.URL, err)
		}

		log.Info("Template obtained from web",
			zap.String("url", p.URL),
			zap.String("template_id", out.Template.ID()),
			zap.Bool("duplicate", out.Duplicate),
		)
		return dommatch.WebFinding{Template: out.Template, URL: p.URL}, true, nil
	}

	return dommatch.WebFinding{}, false, nil
}

func (s *Service) filter(pages []source.Page) []source.Page {
	out := make([]source.Page, 0, s.maxResults)
	for _, p := range pages {
		if !p.IsLegal() || !p.IsTemplate() {
			continue
		}
		out = append(out, p)
		if len(out) == s.maxResults {
			break
		}
	}
	return out
}

// content returns the search text, or the fetched page when the search text is too short.
func (s *Service) content(ctx context.Context, p source.Page) string {
	if p.HasContent() || s.fetch == nil {
		return p.Text
	}
	text, err := s.fetch.Fetch(ctx, p.URL)
	if err != nil {
		logger.OrContext(ctx, s.logger).Warn("Page fetch failed", zap.String("url", p.URL), zap.Error(err))
		return p.Text
	}
	return text
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
