package template

import (
	"context"
	"testing"

	"github.com/kailas-cloud/draftdex/internal/db"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
)

const testID = "0b7e4f0c-9a51-4f3e-8f0e-2d6c1a9b7e31"

// mockStore implements the consumer interface for tests.
type mockStore struct {
	jsonSetNXFn   func(ctx context.Context, key string, data []byte) error
	jsonGetFn     func(ctx context.Context, key string, paths ...string) ([]byte, error)
	delFn         func(ctx context.Context, key string) (bool, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchListFn  func(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	searchCountFn func(ctx context.Context, index, query string) (int, error)
}

func (m *mockStore) JSONSetNX(ctx context.Context, key string, data []byte) error {
	if m.jsonSetNXFn != nil {
		return m.jsonSetNXFn(ctx, key, data)
	}
	return nil
}

func (m *mockStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key, paths...)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Del(ctx context.Context, key string) (bool, error) {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return true, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if m.searchListFn != nil {
		return m.searchListFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return 0, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "draftdex:", 3, HNSWConfig{M: 16, EFConstruct: 200}), ms
}

func testTemplate(t *testing.T, embedding []float32) domtpl.Template {
	t.Helper()
	party, err := domtpl.NewVariable(domtpl.VariableSpec{
		Key:           "party_name",
		Label:         "Party name",
		Required:      true,
		DataType:      "string",
		AllowedValues: []string{"Acme", "Globex"},
		Question:      "Who is the other party?",
	})
	if err != nil {
		t.Fatalf("NewVariable: %v", err)
	}
	tpl, err := domtpl.New(domtpl.Params{
		ID:           testID,
		Title:        "Mutual NDA",
		Description:  "Two-way confidentiality agreement",
		DocType:      "Contract",
		Jurisdiction: "California",
		Tags:         []string{"nda", "confidentiality"},
		Body:         "This agreement is between {{party_name}} and us.",
		Embedding:    embedding,
		Variables:    []domtpl.Variable{party},
		CreatedAt:    1700000000000,
	}, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tpl
}
