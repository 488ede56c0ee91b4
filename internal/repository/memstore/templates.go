package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kailas-cloud/draftdex/internal/domain"
	"github.com/kailas-cloud/draftdex/internal/domain/match"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
	"github.com/kailas-cloud/draftdex/internal/vectormath"
)

// Templates is an in-process TemplateIndex. Nearest is a brute-force scan.
type Templates struct {
	mu    sync.RWMutex
	dims  int
	byID  map[string]domtpl.Template
	order []string // insertion order, keeps ties stable
}

// NewTemplates creates an empty in-memory template index.
func NewTemplates(dims int) *Templates {
	return &Templates{dims: dims, byID: make(map[string]domtpl.Template)}
}

// Insert stores a template; an existing ID yields ErrAlreadyExists.
func (s *Templates) Insert(_ context.Context, t domtpl.Template) error {
	if t.HasEmbedding() && len(t.Embedding()) != s.dims {
		return fmt.Errorf("insert %s: %w", t.ID(), domain.ErrVectorDimMismatch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[t.ID()]; ok {
		return domain.ErrAlreadyExists
	}
	s.byID[t.ID()] = t
	s.order = append(s.order, t.ID())
	return nil
}

// Get returns a template by ID.
func (s *Templates) Get(_ context.Context, id string) (domtpl.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return domtpl.Template{}, domain.ErrNotFound
	}
	return t, nil
}

// Delete removes a template and its variables.
func (s *Templates) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Nearest returns up to k embedded templates by descending similarity.
func (s *Templates) Nearest(ctx context.Context, vec []float32, k int) ([]match.Candidate, error) {
	return s.NearestFiltered(ctx, vec, k, domtpl.Filter{})
}

// NearestFiltered is Nearest restricted by f.
func (s *Templates) NearestFiltered(
	_ context.Context, vec []float32, k int, f domtpl.Filter,
) ([]match.Candidate, error) {
	if len(vec) != s.dims {
		return nil, fmt.Errorf("nearest: %w", domain.ErrVectorDimMismatch)
	}

	s.mu.RLock()
	pool := make([]domtpl.Template, 0, len(s.order))
	for _, id := range s.order {
		t := s.byID[id]
		if t.HasEmbedding() && f.Matches(&t) {
			pool = append(pool, t)
		}
	}
	s.mu.RUnlock()

	vectors := make([][]float32, len(pool))
	for i := range pool {
		vectors[i] = pool[i].Embedding()
	}
	scored, err := vectormath.TopK(vec, vectors, k)
	if err != nil {
		return nil, domain.NewValidationError("k", err.Error())
	}

	out := make([]match.Candidate, 0, len(scored))
	for _, sc := range scored {
		out = append(out, match.Candidate{Template: pool[sc.Index], Similarity: sc.Score})
	}
	return out, nil
}

// List returns templates newest first.
func (s *Templates) List(_ context.Context, skip, limit int) ([]domtpl.Template, error) {
	s.mu.RLock()
	all := make([]domtpl.Template, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, s.byID[id])
	}
	s.mu.RUnlock()

	// later inserts win timestamp ties
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt() > all[j].CreatedAt() })

	if skip >= len(all) {
		return []domtpl.Template{}, nil
	}
	end := min(skip+limit, len(all))
	return all[skip:end], nil
}

// Count returns the number of stored templates.
func (s *Templates) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// Ping always succeeds.
func (s *Templates) Ping(_ context.Context) error { return nil }
