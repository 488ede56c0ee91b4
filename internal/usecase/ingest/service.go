// Package ingest turns uploaded or fetched documents into catalog templates.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/domain"
	dombatch "github.com/kailas-cloud/draftdex/internal/domain/batch"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
	"github.com/kailas-cloud/draftdex/internal/logger"
	"github.com/kailas-cloud/draftdex/internal/metrics"
)

// Defaults for batch ingestion.
const (
	DefaultMaxBatchSize = 20
	DefaultWorkers      = 4
)

// Request is one document to ingest.
// A non-empty SourceURL marks the document as fetched from the web.
type Request struct {
	Name      string
	Text      string
	SourceURL string
}

func (r Request) origin() string {
	if r.SourceURL != "" {
		return "web"
	}
	return "upload"
}

// Outcome is the catalog entry produced by ingestion.
// When Duplicate is set, Template is the existing entry and nothing was written.
type Outcome struct {
	Template   domtpl.Template
	Duplicate  bool
	Similarity float64
}

// Service ingests documents.
type Service struct {
	synth        Synthesizer
	embed        Embedder
	guard        DuplicateGuard
	store        TemplateWriter
	dims         int
	policy       domain.IngestPolicy
	maxBatchSize int
	workers      int
	logger       *zap.Logger
	now          func() time.Time
	newID        func() string
}

// Option configures Service.
type Option func(*Service)

// WithPolicy overrides the document size and embedding prefix limits.
func WithPolicy(p domain.IngestPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithBatch configures batch ingestion limits. Non-positive values keep the defaults.
func WithBatch(maxBatchSize, workers int) Option {
	return func(s *Service) {
		if maxBatchSize > 0 {
			s.maxBatchSize = maxBatchSize
		}
		if workers > 0 {
			s.workers = workers
		}
	}
}

// New creates an ingestion service for templates with dims-sized embeddings.
func New(
	synth Synthesizer, embed Embedder, guard DuplicateGuard, store TemplateWriter,
	dims int, log *zap.Logger, opts ...Option,
) *Service {
	s := &Service{
		synth: synth, embed: embed, guard: guard, store: store,
		dims:         dims,
		policy:       domain.DefaultIngestPolicy(),
		maxBatchSize: DefaultMaxBatchSize,
		workers:      DefaultWorkers,
		logger:       log,
		now:          time.Now,
		newID:        func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ingest validates the document, rejects near-duplicates and stores a synthesized template.
func (s *Service) Ingest(ctx context.Context, req Request) (Outcome, error) {
	out, err := s.ingest(ctx, req)
	switch {
	case err != nil:
		metrics.IngestTotal.WithLabelValues(req.origin(), "error").Inc()
	case out.Duplicate:
		metrics.IngestTotal.WithLabelValues(req.origin(), "duplicate").Inc()
	default:
		metrics.IngestTotal.WithLabelValues(req.origin(), "created").Inc()
	}
	return out, err
}

func (s *Service) ingest(ctx context.Context, req Request) (Outcome, error) {
	log := logger.OrContext(ctx, s.logger)

	if err := s.validate(req); err != nil {
		return Outcome{}, err
	}

	vec, err := s.embed.Embed(ctx, prefix(strings.TrimSpace(req.Text), s.policy.EmbedChars))
	if err != nil {
		return Outcome{}, fmt.Errorf("embed document: %w", err)
	}

	dup, err := s.guard.Check(ctx, vec)
	if err != nil {
		return Outcome{}, fmt.Errorf("check duplicate: %w", err)
	}
	if dup != nil {
		log.Info("Document duplicates an existing template",
			zap.String("name", req.Name),
			zap.String("template_id", dup.Template.ID()),
			zap.Float64("similarity", dup.Similarity),
		)
		return Outcome{Template: dup.Template, Duplicate: true, Similarity: dup.Similarity}, nil
	}

	draft, err := s.synth.Synthesize(ctx, req.Name, req.Text)
	if err != nil {
		return Outcome{}, fmt.Errorf("synthesize template: %w", err)
	}

	t, err := draft.Build(s.newID(), vec, s.dims, req.SourceURL, s.now().UnixMilli())
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: invalid template proposal: %w", domain.ErrSynthesisBackend, err)
	}

	if err := s.store.Insert(ctx, t); err != nil {
		return Outcome{}, fmt.Errorf("insert template: %w", err)
	}

	log.Info("Template ingested",
		zap.String("template_id", t.ID()),
		zap.String("title", t.Title()),
		zap.Int("variables", len(t.Variables())),
	)
	return Outcome{Template: t}, nil
}

func (s *Service) validate(req Request) error {
	if strings.TrimSpace(req.Name) == "" {
		return domain.NewValidationError("name", "is required")
	}
	if domain.IsBlank(req.Text) {
		return fmt.Errorf("document text: %w", domain.ErrEmptyInput)
	}
	if len(req.Text) > s.policy.MaxDocumentBytes {
		return fmt.Errorf("document is %d bytes, limit %d: %w",
			len(req.Text), s.policy.MaxDocumentBytes, domain.ErrPayloadTooLarge)
	}
	return nil
}

// IngestBatch ingests documents with a bounded worker pool.
// Results are positional; each item reports its own error. An oversized batch fails every item.
func (s *Service) IngestBatch(ctx context.Context, reqs []Request) []dombatch.Result[Outcome] {
	results := make([]dombatch.Result[Outcome], len(reqs))

	if len(reqs) > s.maxBatchSize {
		err := domain.NewValidationError("documents", fmt.Sprintf("batch size exceeds %d", s.maxBatchSize))
		for i, r := range reqs {
			results[i] = dombatch.NewError[Outcome](r.Name, err)
		}
		return results
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range min(s.workers, len(reqs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.ingestItem(ctx, reqs[i])
			}
		}()
	}

feed:
	for i := range reqs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for j := i; j < len(reqs); j++ {
				results[j] = dombatch.NewError[Outcome](reqs[j].Name, fmt.Errorf("ingest: %w", ctx.Err()))
			}
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return results
}

func (s *Service) ingestItem(ctx context.Context, req Request) dombatch.Result[Outcome] {
	out, err := s.Ingest(ctx, req)
	if err != nil {
		if !errors.Is(err, domain.ErrValidation) && !errors.Is(err, domain.ErrEmptyInput) {
			logger.OrContext(ctx, s.logger).Warn("Batch item failed", zap.String("name", req.Name), zap.Error(err))
		}
		return dombatch.NewError[Outcome](req.Name, err)
	}
	return dombatch.NewOK(req.Name, out)
}

// prefix returns the first n characters of s without splitting a rune.
func prefix(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
