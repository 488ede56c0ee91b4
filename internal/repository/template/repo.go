package template

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/draftdex/internal/db"
	"github.com/kailas-cloud/draftdex/internal/domain"
	"github.com/kailas-cloud/draftdex/internal/domain/match"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
	"github.com/kailas-cloud/draftdex/internal/vectormath"
)

// store is the consumer interface for templates (ISP).
type store interface {
	JSONSetNX(ctx context.Context, key string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Del(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo is the Redis TemplateIndex: one JSON document per template plus an FT index.
type Repo struct {
	store  store
	prefix string
	dims   int
	hnsw   HNSWConfig
}

// New creates a template repository. keyPrefix is the storage prefix, e.g. "draftdex:".
func New(s store, keyPrefix string, dims int, hnsw HNSWConfig) *Repo {
	return &Repo{
		store:  s,
		prefix: keyPrefix + "template:",
		dims:   dims,
		hnsw:   hnsw,
	}
}

// EnsureIndex creates the FT index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := buildIndex(r.indexName(), r.prefix, r.dims, r.hnsw)
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Insert stores a new template with its variables in a single JSON.SET NX.
func (r *Repo) Insert(ctx context.Context, t domtpl.Template) error {
	if t.HasEmbedding() && len(t.Embedding()) != r.dims {
		return fmt.Errorf("insert %s: %w", t.ID(), domain.ErrVectorDimMismatch)
	}

	data, err := marshalDocument(&t)
	if err != nil {
		return err
	}

	key := r.key(t.ID())
	if err := r.store.JSONSetNX(ctx, key, data); err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("json.set %s: %w", key, err)
	}
	return nil
}

// Get returns a template with its variables.
func (r *Repo) Get(ctx context.Context, id string) (domtpl.Template, error) {
	key := r.key(id)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domtpl.Template{}, domain.ErrNotFound
		}
		return domtpl.Template{}, fmt.Errorf("json.get %s: %w", key, err)
	}

	t, ok, err := parseJSONGetResult(raw)
	if err != nil {
		return domtpl.Template{}, fmt.Errorf("parse %s: %w", key, err)
	}
	if !ok {
		return domtpl.Template{}, domain.ErrNotFound
	}
	return t, nil
}

// Delete removes a template. Variables go with the document.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.key(id)
	deleted, err := r.store.Del(ctx, key)
	if err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

// Nearest returns up to k embedded templates by descending similarity.
func (r *Repo) Nearest(ctx context.Context, vec []float32, k int) ([]match.Candidate, error) {
	return r.NearestFiltered(ctx, vec, k, domtpl.Filter{})
}

// NearestFiltered is Nearest restricted to a document type and/or jurisdiction.
func (r *Repo) NearestFiltered(
	ctx context.Context, vec []float32, k int, f domtpl.Filter,
) ([]match.Candidate, error) {
	if len(vec) != r.dims {
		return nil, fmt.Errorf("nearest: %w", domain.ErrVectorDimMismatch)
	}
	if k < 1 {
		return nil, domain.NewValidationError("k", "must be at least 1")
	}

	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		VectorField:  fieldEmbedding,
		Filters:      tagFilters(f),
		Vector:       vec,
		K:            k,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	if result == nil {
		return []match.Candidate{}, nil
	}

	candidates := make([]match.Candidate, 0, len(result.Entries))
	for _, entry := range result.Entries {
		t, err := parseDocument(entry.Fields["$"])
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry.Key, err)
		}
		candidates = append(candidates, match.Candidate{
			Template:   t,
			Similarity: vectormath.FromCosineDistance(entry.Distance),
		})
	}
	return candidates, nil
}

// List returns templates newest first.
func (r *Repo) List(ctx context.Context, skip, limit int) ([]domtpl.Template, error) {
	result, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    r.indexName(),
		Offset:       skip,
		Limit:        limit,
		SortBy:       fieldCreatedAt,
		Desc:         true,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, fmt.Errorf("search list: %w", err)
	}
	if result == nil {
		return []domtpl.Template{}, nil
	}

	out := make([]domtpl.Template, 0, len(result.Entries))
	for _, entry := range result.Entries {
		t, err := parseDocument(entry.Fields["$"])
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry.Key, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Count returns the number of stored templates.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("search count: %w", err)
	}
	return n, nil
}

func (r *Repo) key(id string) string {
	return r.prefix + id
}

func (r *Repo) indexName() string {
	return strings.TrimSuffix(r.prefix, ":") + ":idx"
}

func tagFilters(f domtpl.Filter) []db.TagFilter {
	var filters []db.TagFilter
	if v := strings.TrimSpace(f.DocType); v != "" {
		filters = append(filters, db.TagFilter{Field: fieldDocType, Values: []string{v}})
	}
	if v := strings.TrimSpace(f.Jurisdiction); v != "" {
		filters = append(filters, db.TagFilter{Field: fieldJurisdiction, Values: []string{v}})
	}
	return filters
}
