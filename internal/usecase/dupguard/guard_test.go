package dupguard

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/draftdex/internal/domain"
	dommatch "github.com/kailas-cloud/draftdex/internal/domain/match"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
)

// --- Mocks ---

type mockIndex struct {
	candidates []dommatch.Candidate
	err        error
	gotK       int
	calls      int
}

func (m *mockIndex) Nearest(_ context.Context, _ []float32, k int) ([]dommatch.Candidate, error) {
	m.calls++
	m.gotK = k
	return m.candidates, m.err
}

func nearest(sim float64) *mockIndex {
	return &mockIndex{candidates: []dommatch.Candidate{{
		Template:   domtpl.Reconstruct(domtpl.Params{ID: "t1", Title: "NDA", Body: "b"}),
		Similarity: sim,
	}}}
}

// --- Tests ---

func TestCheck_Duplicate(t *testing.T) {
	idx := nearest(0.95)
	g := New(idx, 0.9)

	dup, err := g.Check(context.Background(), []float32{1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dup == nil || dup.Template.ID() != "t1" || dup.Similarity != 0.95 {
		t.Fatalf("unexpected duplicate %+v", dup)
	}
	if idx.gotK != 1 {
		t.Errorf("expected k=1, got %d", idx.gotK)
	}
}

func TestCheck_Boundary(t *testing.T) {
	tests := []struct {
		name string
		sim  float64
		dup  bool
	}{
		{"equal is duplicate", 0.9, true},
		{"just below", 0.8999, false},
		{"far", 0.4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dup, err := New(nearest(tt.sim), 0.9).Check(context.Background(), []float32{1})
			if err != nil {
				t.Fatal(err)
			}
			if (dup != nil) != tt.dup {
				t.Errorf("duplicate = %v, want %v", dup != nil, tt.dup)
			}
		})
	}
}

func TestCheck_EmptyIndex(t *testing.T) {
	dup, err := New(&mockIndex{}, 0.9).Check(context.Background(), []float32{1})
	if err != nil || dup != nil {
		t.Fatalf("expected no duplicate, got %+v, %v", dup, err)
	}
}

func TestCheck_EmptyVector(t *testing.T) {
	idx := nearest(1)
	_, err := New(idx, 0.9).Check(context.Background(), nil)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if idx.calls != 0 {
		t.Error("index must not be queried")
	}
}

func TestCheckThreshold_OutOfRange(t *testing.T) {
	g := New(nearest(1), 0.9)
	for _, th := range []float64{-0.1, 1.01} {
		if _, err := g.CheckThreshold(context.Background(), []float32{1}, th); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("threshold %v: expected ErrValidation, got %v", th, err)
		}
	}
}

func TestCheckThreshold_Override(t *testing.T) {
	dup, err := New(nearest(0.7), 0.9).CheckThreshold(context.Background(), []float32{1}, 0.6)
	if err != nil || dup == nil {
		t.Fatalf("expected duplicate under lower threshold, got %+v, %v", dup, err)
	}
}

func TestCheck_IndexError(t *testing.T) {
	boom := errors.New("index down")
	_, err := New(&mockIndex{err: boom}, 0.9).Check(context.Background(), []float32{1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected index error, got %v", err)
	}
}

func TestNew_DefaultThreshold(t *testing.T) {
	if g := New(&mockIndex{}, 0); g.Threshold() != 0.9 {
		t.Errorf("expected default 0.9, got %v", g.Threshold())
	}
}
