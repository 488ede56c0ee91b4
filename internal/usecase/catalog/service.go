// Package catalog browses, searches and exports stored templates.
package catalog

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/draftdex/internal/domain"
	"github.com/kailas-cloud/draftdex/internal/domain/export"
	dommatch "github.com/kailas-cloud/draftdex/internal/domain/match"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
)

// Paging and search limits.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
	MaxTopK         = 50
	DefaultTopK     = 5
)

// Page is one slice of the catalog, newest first.
type Page struct {
	Templates []domtpl.Template
	Total     int
	Skip      int
	Limit     int
}

// Service handles catalog operations.
type Service struct {
	store           TemplateStore
	embed           Embedder
	defaultPageSize int
	maxPageSize     int
}

// New creates a catalog service.
func New(store TemplateStore, embed Embedder) *Service {
	return &Service{
		store:           store,
		embed:           embed,
		defaultPageSize: DefaultPageSize,
		maxPageSize:     MaxPageSize,
	}
}

// WithPageSizes overrides the default and maximum page size.
func (s *Service) WithPageSizes(defaultSize, maxSize int) *Service {
	if maxSize > 0 {
		s.maxPageSize = maxSize
	}
	if defaultSize > 0 && defaultSize <= s.maxPageSize {
		s.defaultPageSize = defaultSize
	}
	return s
}

// List returns a page of templates. A zero limit means the default page size.
func (s *Service) List(ctx context.Context, skip, limit int) (Page, error) {
	if skip < 0 {
		return Page{}, domain.NewValidationError("skip", "must be >= 0")
	}
	if limit == 0 {
		limit = s.defaultPageSize
	}
	if limit < 1 || limit > s.maxPageSize {
		return Page{}, domain.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", s.maxPageSize))
	}

	templates, err := s.store.List(ctx, skip, limit)
	if err != nil {
		return Page{}, fmt.Errorf("list templates: %w", err)
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("count templates: %w", err)
	}

	return Page{Templates: templates, Total: total, Skip: skip, Limit: limit}, nil
}

// Get returns a template by ID.
func (s *Service) Get(ctx context.Context, id string) (domtpl.Template, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return domtpl.Template{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

// Delete removes a template and its variables. Saved drafts are kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// Search finds templates semantically close to free text, optionally filtered.
func (s *Service) Search(ctx context.Context, query string, topK int, f domtpl.Filter) ([]dommatch.Candidate, error) {
	k, err := s.topK(topK)
	if err != nil {
		return nil, err
	}
	vec, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	candidates, err := s.store.NearestFiltered(ctx, vec, k, f)
	if err != nil {
		return nil, fmt.Errorf("search templates: %w", err)
	}
	return candidates, nil
}

// Similar returns templates close to an existing one, excluding itself.
func (s *Service) Similar(ctx context.Context, id string, topK int) ([]dommatch.Candidate, error) {
	k, err := s.topK(topK)
	if err != nil {
		return nil, err
	}
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.HasEmbedding() {
		return nil, domain.NewValidationError("template_id", "template has no embedding")
	}

	candidates, err := s.store.NearestFiltered(ctx, t.Embedding(), k+1, domtpl.Filter{})
	if err != nil {
		return nil, fmt.Errorf("search similar templates: %w", err)
	}

	out := make([]dommatch.Candidate, 0, k)
	for _, c := range candidates {
		if c.Template.ID() == id {
			continue
		}
		out = append(out, c)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// Download exports a template: markdown with a YAML header, or the body as an HTML page.
func (s *Service) Download(ctx context.Context, id string, f export.Format) (export.File, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return export.File{}, err
	}

	content := domtpl.StripFrontMatter(t.Body())
	if f == export.Markdown {
		content, err = domtpl.WithFrontMatter(t)
		if err != nil {
			return export.File{}, fmt.Errorf("render template: %w", err)
		}
	}
	return export.Render(f, t.Title(), t.ID(), content), nil
}

func (s *Service) topK(k int) (int, error) {
	if k == 0 {
		return DefaultTopK, nil
	}
	if k < 1 || k > MaxTopK {
		return 0, domain.NewValidationError("top_k", fmt.Sprintf("must be between 1 and %d", MaxTopK))
	}
	return k, nil
}
