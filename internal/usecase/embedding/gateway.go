package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/draftdex/internal/domain"
)

// Gateway turns text into a vector of the configured dimension.
// It is the single entry point for embeddings used by matching, ingestion and search.
type Gateway struct {
	inner domain.Embedder
	dims  int
}

// NewGateway creates a gateway over the embedder chain.
func NewGateway(inner domain.Embedder, dims int) *Gateway {
	return &Gateway{inner: inner, dims: dims}
}

// Dimensions returns the vector size produced by the gateway.
func (g *Gateway) Dimensions() int { return g.dims }

// Embed validates text, calls the provider once and checks the vector.
// Blank text is ErrEmptyInput; every provider-side problem is ErrEmbeddingBackend.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if domain.IsBlank(text) {
		return nil, domain.ErrEmptyInput
	}

	result, err := g.inner.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingBackend) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingBackend, err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty vector", domain.ErrEmbeddingBackend)
	}
	if len(result.Embedding) != g.dims {
		return nil, fmt.Errorf("%w: got %d dimensions, expected %d",
			domain.ErrEmbeddingBackend, len(result.Embedding), g.dims)
	}
	return result.Embedding, nil
}
