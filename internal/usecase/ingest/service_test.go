package ingest

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/domain"
	dombatch "github.com/kailas-cloud/draftdex/internal/domain/batch"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
	"github.com/kailas-cloud/draftdex/internal/metrics"
	"github.com/kailas-cloud/draftdex/internal/usecase/dupguard"
)

func TestMain(m *testing.M) {
	metrics.RegisterMatchMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockSynth struct {
	draft domtpl.Draft
	err   error
	calls atomic.Int32
}

func (m *mockSynth) Synthesize(_ context.Context, _, _ string) (domtpl.Draft, error) {
	m.calls.Add(1)
	return m.draft, m.err
}

type mockEmbed struct {
	mu   sync.Mutex
	err  error
	text string
}

func (m *mockEmbed) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.text = text
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return []float32{1, 0, 0}, nil
}

type mockGuard struct {
	dup *dupguard.Duplicate
	err error
}

func (m *mockGuard) Check(_ context.Context, _ []float32) (*dupguard.Duplicate, error) {
	return m.dup, m.err
}

type mockWriter struct {
	mu       sync.Mutex
	inserted []domtpl.Template
	err      error
}

func (m *mockWriter) Insert(_ context.Context, t domtpl.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, t)
	return nil
}

const fixedID = "5f0c3c4e-8d1b-4a8e-9b61-0d3f2f4f1a77"

func ndaDraft() domtpl.Draft {
	return domtpl.Draft{
		Title:        "Mutual NDA",
		Description:  "Two-way confidentiality agreement",
		DocType:      "Contract",
		Jurisdiction: "California",
		Tags:         []string{"nda"},
		Body:         "This agreement between {{party_a}} and {{party_b}}.",
		Variables: []domtpl.VariableSpec{
			{Key: "party_a", Label: "First party", Required: true, DataType: "string"},
			{Key: "party_b", Label: "Second party", Required: true, DataType: "string"},
		},
	}
}

type fixture struct {
	synth  *mockSynth
	embed  *mockEmbed
	guard  *mockGuard
	writer *mockWriter
	svc    *Service
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		synth:  &mockSynth{draft: ndaDraft()},
		embed:  &mockEmbed{},
		guard:  &mockGuard{},
		writer: &mockWriter{},
	}
	f.svc = New(f.synth, f.embed, f.guard, f.writer, 3, zap.NewNop(), opts...)
	f.svc.newID = func() string { return fixedID }
	f.svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return f
}

// --- Ingest ---

func TestIngest_Created(t *testing.T) {
	f := newFixture()

	out, err := f.svc.Ingest(context.Background(), Request{Name: "nda.pdf", Text: "full text of an nda"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Duplicate {
		t.Fatal("expected a new template")
	}
	if out.Template.ID() != fixedID || out.Template.CreatedAt() != 1700000000000 {
		t.Errorf("unexpected identity %s / %d", out.Template.ID(), out.Template.CreatedAt())
	}
	if !out.Template.HasEmbedding() || len(out.Template.Variables()) != 2 {
		t.Errorf("template incomplete: %+v", out.Template)
	}
	if len(f.writer.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(f.writer.inserted))
	}
}

func TestIngest_SourceURLKept(t *testing.T) {
	f := newFixture()
	out, err := f.svc.Ingest(context.Background(), Request{Name: "web", Text: "text", SourceURL: "https://example.com/a"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Template.SourceURL() != "https://example.com/a" {
		t.Errorf("source url lost: %q", out.Template.SourceURL())
	}
}

func TestIngest_EmbedsPrefix(t *testing.T) {
	f := newFixture(WithPolicy(domain.IngestPolicy{MaxDocumentBytes: 1 << 20, EmbedChars: 5}))

	if _, err := f.svc.Ingest(context.Background(), Request{Name: "n", Text: "  héllo world"}); err != nil {
		t.Fatal(err)
	}
	if f.embed.text != "héllo" {
		t.Errorf("expected rune-safe 5 char prefix, got %q", f.embed.text)
	}
}

func TestIngest_Duplicate(t *testing.T) {
	f := newFixture()
	existing := domtpl.Reconstruct(domtpl.Params{ID: "existing", Title: "NDA", Body: "b"})
	f.guard.dup = &dupguard.Duplicate{Template: existing, Similarity: 0.97}

	out, err := f.svc.Ingest(context.Background(), Request{Name: "n", Text: "t"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Duplicate || out.Template.ID() != "existing" || out.Similarity != 0.97 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if f.synth.calls.Load() != 0 {
		t.Error("duplicates must not be synthesized")
	}
	if len(f.writer.inserted) != 0 {
		t.Error("duplicates must not be inserted")
	}
}

func TestIngest_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"blank name", Request{Name: " ", Text: "t"}, domain.ErrValidation},
		{"blank text", Request{Name: "n", Text: " \n\t"}, domain.ErrEmptyInput},
		{"too large", Request{Name: "n", Text: strings.Repeat("a", 11)}, domain.ErrPayloadTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(WithPolicy(domain.IngestPolicy{MaxDocumentBytes: 10, EmbedChars: 1000}))
			_, err := f.svc.Ingest(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if f.synth.calls.Load() != 0 {
				t.Error("synthesizer must not be called for invalid input")
			}
		})
	}
}

func TestIngest_BackendErrors(t *testing.T) {
	insertErr := errors.New("write failed")
	tests := []struct {
		name  string
		setup func(f *fixture)
		want  error
	}{
		{"embedding", func(f *fixture) { f.embed.err = domain.ErrEmbeddingBackend }, domain.ErrEmbeddingBackend},
		{"synthesis", func(f *fixture) { f.synth.err = domain.ErrSynthesisBackend }, domain.ErrSynthesisBackend},
		{"bad proposal", func(f *fixture) { f.synth.draft.Title = "" }, domain.ErrSynthesisBackend},
		{"insert", func(f *fixture) { f.writer.err = insertErr }, insertErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)
			_, err := f.svc.Ingest(context.Background(), Request{Name: "n", Text: "t"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// --- IngestBatch ---

func TestIngestBatch_PerItemResults(t *testing.T) {
	f := newFixture(WithBatch(5, 2))
	reqs := []Request{
		{Name: "a", Text: "text a"},
		{Name: "b", Text: "  "},
		{Name: "c", Text: "text c"},
	}

	results := f.svc.IngestBatch(context.Background(), reqs)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []dombatch.ItemStatus{dombatch.StatusOK, dombatch.StatusError, dombatch.StatusOK} {
		if results[i].Status() != want || results[i].ID() != reqs[i].Name {
			t.Errorf("item %d: status %s id %s", i, results[i].Status(), results[i].ID())
		}
	}
	if !errors.Is(results[1].Err(), domain.ErrEmptyInput) {
		t.Errorf("unexpected item error %v", results[1].Err())
	}
}

func TestIngestBatch_TooLarge(t *testing.T) {
	f := newFixture(WithBatch(2, 2))
	results := f.svc.IngestBatch(context.Background(), []Request{{Name: "a"}, {Name: "b"}, {Name: "c"}})
	for _, r := range results {
		if !errors.Is(r.Err(), domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", r.Err())
		}
	}
	if f.synth.calls.Load() != 0 {
		t.Error("nothing should be processed")
	}
}

func TestIngestBatch_Empty(t *testing.T) {
	if got := newFixture().svc.IngestBatch(context.Background(), nil); len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
}

func TestIngestBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := newFixture(WithBatch(5, 1))

	results := f.svc.IngestBatch(ctx, []Request{{Name: "a", Text: "t"}, {Name: "b", Text: "t"}})
	for _, r := range results {
		if r.Status() == dombatch.StatusOK {
			continue
		}
		if r.Err() == nil {
			t.Error("failed item without error")
		}
	}
}

func TestPrefix(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"привет", 2, "пр"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := prefix(tt.in, tt.n); got != tt.want {
			t.Errorf("prefix(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
