package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/draftdex/internal/domain"
	"github.com/kailas-cloud/draftdex/internal/domain/export"
	dommatch "github.com/kailas-cloud/draftdex/internal/domain/match"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
)

// --- Mocks ---

type mockStore struct {
	templates map[string]domtpl.Template
	order     []string
	nearest   []dommatch.Candidate
	err       error
	gotK      int
	gotFilter domtpl.Filter
	deleted   []string
}

func newMockStore(ts ...domtpl.Template) *mockStore {
	m := &mockStore{templates: map[string]domtpl.Template{}}
	for _, t := range ts {
		m.templates[t.ID()] = t
		m.order = append(m.order, t.ID())
	}
	return m
}

func (m *mockStore) Get(_ context.Context, id string) (domtpl.Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return domtpl.Template{}, domain.ErrNotFound
	}
	return t, nil
}

func (m *mockStore) Delete(_ context.Context, id string) error {
	if _, ok := m.templates[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.templates, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockStore) List(_ context.Context, skip, limit int) ([]domtpl.Template, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domtpl.Template
	for i := skip; i < len(m.order) && len(out) < limit; i++ {
		out = append(out, m.templates[m.order[i]])
	}
	return out, nil
}

func (m *mockStore) Count(_ context.Context) (int, error) { return len(m.templates), m.err }

func (m *mockStore) NearestFiltered(_ context.Context, _ []float32, k int, f domtpl.Filter) ([]dommatch.Candidate, error) {
	m.gotK = k
	m.gotFilter = f
	return m.nearest, m.err
}

type mockEmbedder struct {
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	return []float32{1, 0}, m.err
}

func tpl(id, title string) domtpl.Template {
	return domtpl.Reconstruct(domtpl.Params{
		ID: id, Title: title, DocType: "Contract", Body: "Agreement with {{party}}.",
		Embedding: []float32{1, 0},
		Variables: []domtpl.Variable{domtpl.ReconstructVariable(domtpl.VariableSpec{Key: "party", Label: "Party", DataType: "string"})},
	})
}

// --- List ---

func TestList(t *testing.T) {
	store := newMockStore(tpl("a", "A"), tpl("b", "B"), tpl("c", "C"))
	svc := New(store, &mockEmbedder{})

	page, err := svc.List(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 3 || len(page.Templates) != 2 || page.Templates[0].ID() != "b" {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestList_DefaultLimit(t *testing.T) {
	svc := New(newMockStore(), &mockEmbedder{}).WithPageSizes(10, 20)
	page, err := svc.List(context.Background(), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if page.Limit != 10 {
		t.Errorf("expected default limit 10, got %d", page.Limit)
	}
}

func TestList_Validation(t *testing.T) {
	svc := New(newMockStore(), &mockEmbedder{})
	tests := []struct {
		name        string
		skip, limit int
	}{
		{"negative skip", -1, 10},
		{"negative limit", 0, -1},
		{"limit too large", 0, MaxPageSize + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.List(context.Background(), tt.skip, tt.limit); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

// --- Get / Delete ---

func TestGetDelete(t *testing.T) {
	store := newMockStore(tpl("a", "A"))
	svc := New(store, &mockEmbedder{})

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(context.Background(), "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

// --- Search / Similar ---

func TestSearch(t *testing.T) {
	store := newMockStore()
	store.nearest = []dommatch.Candidate{{Template: tpl("a", "A"), Similarity: 0.9}}
	svc := New(store, &mockEmbedder{})

	f := domtpl.Filter{Jurisdiction: "Texas"}
	got, err := svc.Search(context.Background(), "lease", 3, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || store.gotK != 3 || store.gotFilter != f {
		t.Errorf("unexpected search k=%d filter=%+v", store.gotK, store.gotFilter)
	}
}

func TestSearch_TopKValidation(t *testing.T) {
	emb := &mockEmbedder{}
	svc := New(newMockStore(), emb)
	for _, k := range []int{-1, MaxTopK + 1} {
		if _, err := svc.Search(context.Background(), "q", k, domtpl.Filter{}); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("top_k %d: expected ErrValidation, got %v", k, err)
		}
	}
	if emb.calls != 0 {
		t.Error("embedder must not be called for invalid input")
	}
}

func TestSearch_EmbeddingError(t *testing.T) {
	svc := New(newMockStore(), &mockEmbedder{err: domain.ErrEmbeddingBackend})
	if _, err := svc.Search(context.Background(), "q", 3, domtpl.Filter{}); !errors.Is(err, domain.ErrEmbeddingBackend) {
		t.Fatalf("expected ErrEmbeddingBackend, got %v", err)
	}
}

func TestSimilar_ExcludesSelf(t *testing.T) {
	store := newMockStore(tpl("a", "A"))
	store.nearest = []dommatch.Candidate{
		{Template: tpl("a", "A"), Similarity: 1},
		{Template: tpl("b", "B"), Similarity: 0.8},
		{Template: tpl("c", "C"), Similarity: 0.7},
	}
	svc := New(store, &mockEmbedder{})

	got, err := svc.Similar(context.Background(), "a", 2)
	if err != nil {
		t.Fatal(err)
	}
	if store.gotK != 3 {
		t.Errorf("expected k+1 lookup, got %d", store.gotK)
	}
	if len(got) != 2 || got[0].Template.ID() != "b" || got[1].Template.ID() != "c" {
		t.Errorf("unexpected similar set %+v", got)
	}
}

func TestSimilar_NoEmbedding(t *testing.T) {
	bare := domtpl.Reconstruct(domtpl.Params{ID: "a", Title: "A", Body: "b"})
	svc := New(newMockStore(bare), &mockEmbedder{})
	if _, err := svc.Similar(context.Background(), "a", 2); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

// --- Download ---

func TestDownload_Markdown(t *testing.T) {
	svc := New(newMockStore(tpl("a", "Mutual NDA")), &mockEmbedder{})

	f, err := svc.Download(context.Background(), "a", export.Markdown)
	if err != nil {
		t.Fatal(err)
	}
	body := string(f.Body)
	if f.Name != "Mutual_NDA.md" {
		t.Errorf("unexpected name %q", f.Name)
	}
	if !strings.HasPrefix(body, "---\n") || !strings.Contains(body, "template_id: a") || !strings.HasSuffix(body, "Agreement with {{party}}.") {
		t.Errorf("unexpected markdown:\n%s", body)
	}
}

func TestDownload_HTML(t *testing.T) {
	svc := New(newMockStore(tpl("a", "Mutual NDA")), &mockEmbedder{})

	f, err := svc.Download(context.Background(), "a", export.HTML)
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "Mutual_NDA.html" || strings.Contains(string(f.Body), "template_id") {
		t.Errorf("html must carry the body only: %s", f.Body)
	}
}

func TestDownload_NotFound(t *testing.T) {
	svc := New(newMockStore(), &mockEmbedder{})
	if _, err := svc.Download(context.Background(), "x", export.Markdown); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
