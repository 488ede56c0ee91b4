package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/db"
	"github.com/kailas-cloud/draftdex/internal/domain"
)

const (
	tierMemory = "memory"
	tierRedis  = "redis"
)

// store is the consumer interface for the shared cache tier (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder caches embeddings in a process-local LRU backed by an optional shared store.
type CachedEmbedder struct {
	inner      domain.Embedder
	memory     *lru.Cache
	store      store
	keyPrefix  string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// Option configures CachedEmbedder.
type Option func(*CachedEmbedder)

// WithStore enables the shared tier. Without it only the LRU is used.
func WithStore(s store, ttl time.Duration) Option {
	return func(c *CachedEmbedder) {
		c.store = s
		c.ttl = ttl
	}
}

// WithMetrics sets a counter vec labelled by tier and result.
func WithMetrics(cacheTotal *prometheus.CounterVec) Option {
	return func(c *CachedEmbedder) { c.cacheTotal = cacheTotal }
}

// New creates a caching decorator.
// keyPrefix namespaces cache keys, typically "{storage prefix}emb_cache:{model}:".
func New(
	inner domain.Embedder,
	memoryEntries int,
	keyPrefix string,
	logger *zap.Logger,
	opts ...Option,
) (*CachedEmbedder, error) {
	mem, err := lru.New(memoryEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	c := &CachedEmbedder{
		inner:     inner,
		memory:    mem,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
// Cache miss: full EmbeddingResult from inner.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if v, ok := c.memory.Get(key); ok {
		c.incCache(tierMemory, "hit")
		return domain.EmbeddingResult{Embedding: cloneVector(v.([]float32))}, nil
	}
	c.incCache(tierMemory, "miss")

	if c.store != nil {
		if vec, ok := c.getFromStore(ctx, key); ok {
			c.incCache(tierRedis, "hit")
			c.memory.Add(key, vec)
			return domain.EmbeddingResult{Embedding: cloneVector(vec)}, nil
		}
		c.incCache(tierRedis, "miss")
	}

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.memory.Add(key, cloneVector(result.Embedding))
	if c.store != nil {
		c.putToStore(ctx, key, result.Embedding)
	}
	return result, nil
}

// Len returns the number of entries in the memory tier.
func (c *CachedEmbedder) Len() int {
	return c.memory.Len()
}

func (c *CachedEmbedder) incCache(tier, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(tier, result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return c.keyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromStore(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *CachedEmbedder) putToStore(ctx context.Context, key string, vec []float32) {
	if err := c.store.SetWithTTL(ctx, key, vectorToCacheBytes(vec), c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
