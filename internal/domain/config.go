package domain

// MatchingPolicy holds the tunables of matching and duplicate detection.
type MatchingPolicy struct {
	TopK               int
	AcceptThreshold    float64
	FallbackConfidence float64
	DuplicateThreshold float64
}

// DefaultMatchingPolicy returns the production defaults.
func DefaultMatchingPolicy() MatchingPolicy {
	return MatchingPolicy{
		TopK:               5,
		AcceptThreshold:    0.75,
		FallbackConfidence: 0.85,
		DuplicateThreshold: 0.90,
	}
}

// IngestPolicy holds document ingestion limits.
type IngestPolicy struct {
	MaxDocumentBytes int
	EmbedChars       int
}

// DefaultIngestPolicy returns the production defaults.
func DefaultIngestPolicy() IngestPolicy {
	return IngestPolicy{
		MaxDocumentBytes: 1 << 20,
		EmbedChars:       1000,
	}
}
