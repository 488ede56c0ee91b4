package template

import (
	"fmt"

	"github.com/kailas-cloud/draftdex/internal/db"
)

const (
	fieldDocType      = "doc_type"
	fieldJurisdiction = "jurisdiction"
	fieldCreatedAt    = "created_at"
	fieldEmbedding    = "embedding"
)

// HNSWConfig holds HNSW index tuning parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// buildIndex describes the FT index over template JSON documents.
// Documents without an embedding are still listed and counted but never returned by KNN.
func buildIndex(name, prefix string, dims int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	idx, err := db.NewIndex(name).
		OnJSON().
		Prefix(prefix).
		Tag("$.doc_type").As(fieldDocType).
		Tag("$.jurisdiction").As(fieldJurisdiction).
		Numeric("$.created_at").As(fieldCreatedAt).Sortable().
		VectorHNSW("$.embedding", dims, db.DistanceCosine, hnsw.M, hnsw.EFConstruct).As(fieldEmbedding).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build template index: %w", err)
	}
	return idx, nil
}
