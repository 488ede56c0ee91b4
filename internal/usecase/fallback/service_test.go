package fallback

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/domain"
	"github.com/kailas-cloud/draftdex/internal/domain/source"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
	"github.com/kailas-cloud/draftdex/internal/usecase/ingest"
)

// --- Mocks ---

type mockSearcher struct {
	pages []source.Page
	err   error
	query string
	n     int
}

func (m *mockSearcher) Search(_ context.Context, query string, n int) ([]source.Page, error) {
	m.query = query
	m.n = n
	return m.pages, m.err
}

type mockFetcher struct {
	text  string
	err   error
	calls []string
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (string, error) {
	m.calls = append(m.calls, url)
	return m.text, m.err
}

type mockIngester struct {
	reqs []ingest.Request
	err  error
}

func (m *mockIngester) Ingest(_ context.Context, req ingest.Request) (ingest.Outcome, error) {
	m.reqs = append(m.reqs, req)
	if m.err != nil {
		return ingest.Outcome{}, m.err
	}
	return ingest.Outcome{Template: domtpl.Reconstruct(domtpl.Params{ID: "new", Title: req.Name, Body: req.Text})}, nil
}

var legalText = strings.Repeat("This agreement is made between the parties and is governed by law. ", 3)

func legalPage(url, text string) source.Page {
	return source.Page{Title: "Lease Agreement Template", URL: url, Text: text}
}

// --- Tests ---

func TestFind_UsesSearchText(t *testing.T) {
	s := &mockSearcher{pages: []source.Page{legalPage("https://a.example/lease", legalText)}}
	f := &mockFetcher{}
	ing := &mockIngester{}
	svc := New(s, f, ing, zap.NewNop())

	finding, found, err := svc.Find(context.Background(), "lease agreement in Texas")
	if err != nil || !found {
		t.Fatalf("expected a finding, got %v %v", found, err)
	}
	if finding.URL != "https://a.example/lease" || finding.Template.ID() != "new" {
		t.Errorf("unexpected finding %+v", finding)
	}
	if !strings.HasPrefix(s.query, "lease agreement in Texas ") || !strings.Contains(s.query, "us law") {
		t.Errorf("query not enriched: %q", s.query)
	}
	if s.n != 6 {
		t.Errorf("expected twice the max results, got %d", s.n)
	}
	if len(f.calls) != 0 {
		t.Error("page must not be fetched when the search text is long enough")
	}
	if ing.reqs[0].SourceURL != "https://a.example/lease" || ing.reqs[0].Name != "Lease Agreement Template" {
		t.Errorf("unexpected ingest request %+v", ing.reqs[0])
	}
}

func TestFind_FetchesShortPages(t *testing.T) {
	s := &mockSearcher{pages: []source.Page{legalPage("https://a.example/short", "too short")}}
	f := &mockFetcher{text: legalText}
	ing := &mockIngester{}

	_, found, err := New(s, f, ing, zap.NewNop()).Find(context.Background(), "lease")
	if err != nil || !found {
		t.Fatalf("expected a finding, got %v %v", found, err)
	}
	if len(f.calls) != 1 || ing.reqs[0].Text != legalText {
		t.Errorf("fetched text must be ingested: calls=%v", f.calls)
	}
}

func TestFind_SkipsUnusablePages(t *testing.T) {
	s := &mockSearcher{pages: []source.Page{
		{Title: "Chocolate cake", URL: "https://food.example/cake", Text: strings.Repeat("flour and sugar ", 20)},
		legalPage("https://a.example/broken", "short"),
		legalPage("https://b.example/good", legalText),
	}}
	f := &mockFetcher{err: errors.New("timeout")}
	ing := &mockIngester{}

	finding, found, err := New(s, f, ing, zap.NewNop()).Find(context.Background(), "lease")
	if err != nil || !found {
		t.Fatalf("expected a finding, got %v %v", found, err)
	}
	if finding.URL != "https://b.example/good" {
		t.Errorf("expected the usable page, got %s", finding.URL)
	}
	if len(ing.reqs) != 1 {
		t.Errorf("expected one ingestion, got %d", len(ing.reqs))
	}
}

func TestFind_NothingFound(t *testing.T) {
	s := &mockSearcher{pages: []source.Page{legalPage("https://a.example/x", "short")}}
	_, found, err := New(s, nil, &mockIngester{}, zap.NewNop()).Find(context.Background(), "lease")
	if err != nil || found {
		t.Fatalf("expected nothing found, got %v %v", found, err)
	}
}

func TestFind_Errors(t *testing.T) {
	t.Run("search", func(t *testing.T) {
		s := &mockSearcher{err: domain.ErrFallbackBackend}
		_, found, err := New(s, nil, &mockIngester{}, zap.NewNop()).Find(context.Background(), "q")
		if found || !errors.Is(err, domain.ErrFallbackBackend) {
			t.Fatalf("expected ErrFallbackBackend, got %v", err)
		}
	})
	t.Run("ingest", func(t *testing.T) {
		s := &mockSearcher{pages: []source.Page{legalPage("https://a.example/x", legalText)}}
		ing := &mockIngester{err: domain.ErrSynthesisBackend}
		_, found, err := New(s, nil, ing, zap.NewNop()).Find(context.Background(), "q")
		if found || !errors.Is(err, domain.ErrFallbackBackend) || !errors.Is(err, domain.ErrSynthesisBackend) {
			t.Fatalf("expected wrapped ingestion error, got %v", err)
		}
	})
}

func TestFind_TruncatesContent(t *testing.T) {
	s := &mockSearcher{pages: []source.Page{legalPage("https://a.example/x", legalText)}}
	ing := &mockIngester{}

	if _, _, err := New(s, nil, ing, zap.NewNop(), WithMaxContentBytes(120)).Find(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	if len(ing.reqs[0].Text) != 120 {
		t.Errorf("expected 120 bytes, got %d", len(ing.reqs[0].Text))
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo", 2); got != "h" {
		t.Errorf("truncate must not split runes, got %q", got)
	}
	if got := truncate("abc", 0); got != "abc" {
		t.Errorf("zero limit keeps text, got %q", got)
	}
}
