package match

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/domain"
	dommatch "github.com/kailas-cloud/draftdex/internal/domain/match"
	"github.com/kailas-cloud/draftdex/internal/logger"
	"github.com/kailas-cloud/draftdex/internal/metrics"
)

const (
	msgAccepted         = "Template found in database"
	msgWebNoCandidates  = "No suitable template found in database, created one from web sources"
	msgWebLowQuality    = "Database match quality (%.1f%%) was below threshold, found better template from web"
	msgNotFound         = "No suitable template found in database or web sources"
	msgSearching        = "Searching for matching templates..."
	msgReranking        = "Evaluating candidate templates..."
	msgSearchingWeb     = "Searching the web for legal templates..."
	msgSearchingWebBest = "Searching the web for better templates..."
)

// Service is the matching pipeline: embed, search, re-rank, decide, fall back.
type Service struct {
	embedder        Embedder
	index           Index
	reranker        Reranker
	fallback        FallbackSource
	policy          domain.MatchingPolicy
	rerankTimeout   time.Duration
	fallbackTimeout time.Duration
	logger          *zap.Logger
}

// Option configures Service.
type Option func(*Service)

// WithPolicy overrides the default thresholds.
func WithPolicy(p domain.MatchingPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithTimeouts bounds the re-ranker and fallback calls. Zero leaves a call unbounded.
func WithTimeouts(rerank, fallback time.Duration) Option {
	return func(s *Service) {
		s.rerankTimeout = rerank
		s.fallbackTimeout = fallback
	}
}

// WithFallback enables the web fallback tier.
func WithFallback(f FallbackSource) Option {
	return func(s *Service) { s.fallback = f }
}

// New creates the matching pipeline.
func New(embedder Embedder, index Index, reranker Reranker, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		embedder: embedder,
		index:    index,
		reranker: reranker,
		policy:   domain.DefaultMatchingPolicy(),
		logger:   log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Match runs the pipeline to completion. Only an embedding failure is returned as an error;
// re-ranker and fallback problems degrade to a fallback or not_found result.
func (s *Service) Match(ctx context.Context, query string) (dommatch.Result, error) {
	return s.run(ctx, query, func(dommatch.Event) {})
}

// Stream runs the pipeline in its own goroutine and reports progress.
// The channel yields coarse events, then exactly one Done or Error event, then closes.
func (s *Service) Stream(ctx context.Context, query string) <-chan dommatch.Event {
	ch := make(chan dommatch.Event, 4)

	send := func(ev dommatch.Event) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(ch)

		result, err := s.run(ctx, query, func(ev dommatch.Event) { send(ev) })
		if err != nil {
			send(dommatch.Event{Kind: dommatch.EventError, Message: "Matching failed", Err: err})
			return
		}
		send(dommatch.Event{Kind: dommatch.EventDone, Message: result.Message, Result: &result})
	}()

	return ch
}

func (s *Service) run(ctx context.Context, query string, emit func(dommatch.Event)) (dommatch.Result, error) {
	log := logger.OrContext(ctx, s.logger)

	emit(dommatch.Event{Kind: dommatch.EventSearching, Message: msgSearching})

	start := time.Now()
	vec, err := s.embedder.Embed(ctx, query)
	observeStage(dommatch.StateEmbedding, start)
	if err != nil {
		metrics.MatchOutcomesTotal.WithLabelValues("error").Inc()
		return dommatch.Result{}, fmt.Errorf("embed query: %w", err)
	}

	start = time.Now()
	candidates, err := s.index.Nearest(ctx, vec, s.policy.TopK)
	observeStage(dommatch.StateSearching, start)
	if err != nil {
		log.Warn("Template search failed, falling back", zap.Error(err))
		candidates = nil
	}
	if len(candidates) == 0 {
		emit(dommatch.Event{Kind: dommatch.EventFallback, Message: msgSearchingWeb})
		return s.fallbackTier(ctx, query, 0), nil
	}

	emit(dommatch.Event{Kind: dommatch.EventReranking, Message: msgReranking})
	verdict := s.rerank(ctx, query, candidates)
	if !verdict.IsFound() {
		emit(dommatch.Event{Kind: dommatch.EventFallback, Message: msgSearchingWeb})
		return s.fallbackTier(ctx, query, 0), nil
	}

	byID := indexCandidates(candidates)
	top := verdict.Top()
	quality := dommatch.Quality(top.Confidence, byID[top.TemplateID].Similarity)
	metrics.MatchQuality.Observe(quality)

	if quality < s.policy.AcceptThreshold {
		log.Info("Match quality below threshold",
			zap.String("template_id", top.TemplateID),
			zap.Float64("quality", quality),
			zap.Float64("threshold", s.policy.AcceptThreshold),
		)
		emit(dommatch.Event{Kind: dommatch.EventFallback, Message: msgSearchingWebBest})
		return s.fallbackTier(ctx, query, quality), nil
	}

	metrics.MatchOutcomesTotal.WithLabelValues(string(dommatch.StatusAccepted)).Inc()
	return accepted(verdict, byID, quality), nil
}

// rerank calls the re-ranker once under its timeout. Any failure is NotFound.
func (s *Service) rerank(ctx context.Context, query string, candidates []dommatch.Candidate) dommatch.Verdict {
	rctx, cancel := withTimeout(ctx, s.rerankTimeout)
	defer cancel()

	start := time.Now()
	verdict, err := s.reranker.Rerank(rctx, query, candidates)
	observeStage(dommatch.StateReranking, start)
	if err != nil {
		logger.OrContext(ctx, s.logger).Warn("Re-ranking failed, treating as no match", zap.Error(err))
		return dommatch.NotFound()
	}
	return verdict.Resolve(candidates)
}

// fallbackTier asks the fallback source once. quality > 0 means a database match existed but was too weak.
func (s *Service) fallbackTier(ctx context.Context, query string, quality float64) dommatch.Result {
	log := logger.OrContext(ctx, s.logger)

	if s.fallback == nil {
		metrics.MatchOutcomesTotal.WithLabelValues(string(dommatch.StatusNotFound)).Inc()
		return dommatch.NotFoundResult(msgNotFound)
	}

	fctx, cancel := withTimeout(ctx, s.fallbackTimeout)
	defer cancel()

	start := time.Now()
	finding, found, err := s.fallback.Find(fctx, query)
	observeStage(dommatch.StateFallback, start)
	if err != nil {
		log.Warn("Web fallback failed", zap.Error(err))
		found = false
	}
	if !found {
		metrics.MatchOutcomesTotal.WithLabelValues(string(dommatch.StatusNotFound)).Inc()
		return dommatch.NotFoundResult(msgNotFound)
	}

	message := msgWebNoCandidates
	if quality > 0 {
		message = fmt.Sprintf(msgWebLowQuality, quality*100)
	}

	t := finding.Template
	metrics.MatchOutcomesTotal.WithLabelValues(string(dommatch.StatusFallback)).Inc()
	return dommatch.Result{
		Status: dommatch.StatusFallback,
		TopMatch: &dommatch.Match{
			TemplateID:   t.ID(),
			Title:        t.Title(),
			Description:  t.Description(),
			DocType:      t.DocType(),
			Jurisdiction: t.Jurisdiction(),
			Explanation:  "Generated from web source: " + finding.URL,
			Confidence:   s.policy.FallbackConfidence,
			Source:       dommatch.SourceWeb,
			WebURL:       finding.URL,
		},
		Alternatives: []dommatch.Match{},
		Found:        true,
		Message:      message,
		MatchQuality: s.policy.FallbackConfidence,
	}
}

func accepted(v dommatch.Verdict, byID map[string]dommatch.Candidate, quality float64) dommatch.Result {
	top := databaseMatch(v.Top(), byID[v.Top().TemplateID])

	alts := make([]dommatch.Match, 0, len(v.Alternatives()))
	for _, j := range v.Alternatives() {
		alts = append(alts, databaseMatch(j, byID[j.TemplateID]))
	}

	return dommatch.Result{
		Status:       dommatch.StatusAccepted,
		TopMatch:     &top,
		Alternatives: alts,
		Found:        true,
		Message:      msgAccepted,
		MatchQuality: quality,
	}
}

func databaseMatch(j dommatch.Judgement, c dommatch.Candidate) dommatch.Match {
	sim := c.Similarity
	return dommatch.Match{
		TemplateID:   j.TemplateID,
		Title:        c.Template.Title(),
		Description:  c.Template.Description(),
		DocType:      c.Template.DocType(),
		Jurisdiction: c.Template.Jurisdiction(),
		Explanation:  j.Explanation,
		Confidence:   j.Confidence,
		Similarity:   &sim,
		Source:       dommatch.SourceDatabase,
	}
}

func indexCandidates(candidates []dommatch.Candidate) map[string]dommatch.Candidate {
	m := make(map[string]dommatch.Candidate, len(candidates))
	for _, c := range candidates {
		m[c.Template.ID()] = c
	}
	return m
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func observeStage(stage dommatch.State, start time.Time) {
	metrics.MatchStageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
}
