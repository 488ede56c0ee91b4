package embcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/db"
	"github.com/kailas-cloud/draftdex/internal/domain"
)

// --- Mocks ---

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder, opts ...Option) *CachedEmbedder {
	t.Helper()
	ce, err := New(inner, 16, "draftdex:emb_cache:test:", zap.NewNop(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ce
}

// --- Tests ---

func TestNew_InvalidSize(t *testing.T) {
	if _, err := New(&mockEmbedder{}, 0, "p:", zap.NewNop()); err == nil {
		t.Fatal("expected error for zero-size cache")
	}
}

func TestEmbed_CacheMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2, 0.3},
		PromptTokens: 10,
		TotalTokens:  10,
	}}
	var setKey string
	var setTTL time.Duration
	ms := &mockKVStore{
		setFn: func(_ context.Context, key string, _ []byte, ttl time.Duration) error {
			setKey, setTTL = key, ttl
			return nil
		},
	}
	ce := newTestCachedEmbedder(t, inner, WithStore(ms, time.Hour))

	result, err := ce.Embed(context.Background(), "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.1 {
		t.Fatalf("unexpected vector: %v", result.Embedding)
	}
	if result.TotalTokens != 10 {
		t.Fatalf("expected TotalTokens=10, got %d", result.TotalTokens)
	}
	if !strings.HasPrefix(setKey, "draftdex:emb_cache:test:") {
		t.Errorf("expected prefixed key, got %q", setKey)
	}
	if setTTL != time.Hour {
		t.Errorf("expected ttl 1h, got %v", setTTL)
	}
	if ce.Len() != 1 {
		t.Errorf("expected 1 memory entry, got %d", ce.Len())
	}
}

func TestEmbed_MemoryHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 2}, TotalTokens: 3}}
	ce := newTestCachedEmbedder(t, inner)

	if _, err := ce.Embed(context.Background(), "same"); err != nil {
		t.Fatal(err)
	}
	res, err := ce.Embed(context.Background(), "same")
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
	if res.TotalTokens != 0 {
		t.Errorf("expected TotalTokens=0 on cache hit, got %d", res.TotalTokens)
	}

	// callers must not be able to corrupt cached vectors
	res.Embedding[0] = 99
	again, _ := ce.Embed(context.Background(), "same")
	if again.Embedding[0] != 1 {
		t.Errorf("cached vector mutated: %v", again.Embedding)
	}
}

func TestEmbed_StoreHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	cached := vectorToCacheBytes([]float32{0.4, 0.5, 0.6})
	ms := &mockKVStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) { return cached, nil },
	}
	ce := newTestCachedEmbedder(t, inner, WithStore(ms, 0))

	result, err := ce.Embed(context.Background(), "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.4 {
		t.Fatalf("expected cached vector, got: %v", result.Embedding)
	}
	if inner.calls != 0 {
		t.Errorf("inner should not be called on store hit")
	}
	if ce.Len() != 1 {
		t.Errorf("store hit should populate memory tier")
	}
}

func TestEmbed_StoreErrorFallsThrough(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	ms := &mockKVStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) { return nil, errors.New("conn reset") },
		setFn: func(_ context.Context, _ string, _ []byte, _ time.Duration) error { return errors.New("conn reset") },
	}
	ce := newTestCachedEmbedder(t, inner, WithStore(ms, 0))

	res, err := ce.Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("store errors must not fail embedding: %v", err)
	}
	if len(res.Embedding) != 1 {
		t.Fatalf("unexpected vector: %v", res.Embedding)
	}
}

func TestEmbed_CorruptedStoreEntry(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.7}}}
	ms := &mockKVStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) { return []byte{1, 2, 3}, nil },
	}
	ce := newTestCachedEmbedder(t, inner, WithStore(ms, 0))

	res, err := ce.Embed(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if res.Embedding[0] != 0.7 || inner.calls != 1 {
		t.Errorf("expected fresh embedding, got %v (calls=%d)", res.Embedding, inner.calls)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("provider down")}
	ce := newTestCachedEmbedder(t, inner)

	if _, err := ce.Embed(context.Background(), "test text"); err == nil {
		t.Fatal("expected error from inner embedder")
	}
	if ce.Len() != 0 {
		t.Error("failed embedding must not be cached")
	}
}

func TestEmbed_Metrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"tier", "result"})
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce := newTestCachedEmbedder(t, inner, WithStore(&mockKVStore{}, 0), WithMetrics(counter))

	_, _ = ce.Embed(context.Background(), "a")
	_, _ = ce.Embed(context.Background(), "a")

	if v := testutil.ToFloat64(counter.WithLabelValues(tierMemory, "miss")); v != 1 {
		t.Errorf("memory miss = %v, want 1", v)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues(tierMemory, "hit")); v != 1 {
		t.Errorf("memory hit = %v, want 1", v)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues(tierRedis, "miss")); v != 1 {
		t.Errorf("redis miss = %v, want 1", v)
	}
}

func TestVectorBytesRoundTrip(t *testing.T) {
	in := []float32{-1.5, 0, 3.25}
	out, err := bytesToVector(vectorToCacheBytes(in))
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("mismatch at %d: %v vs %v", i, in[i], out[i])
		}
	}
}
