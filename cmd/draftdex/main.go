package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/config"
	dbRedis "github.com/kailas-cloud/draftdex/internal/db/redis"
	"github.com/kailas-cloud/draftdex/internal/domain"
	logpkg "github.com/kailas-cloud/draftdex/internal/logger"
	"github.com/kailas-cloud/draftdex/internal/metrics"
	"github.com/kailas-cloud/draftdex/internal/repository/embcache"
	instancerepo "github.com/kailas-cloud/draftdex/internal/repository/instance"
	"github.com/kailas-cloud/draftdex/internal/repository/memstore"
	"github.com/kailas-cloud/draftdex/internal/repository/pgstore"
	templaterepo "github.com/kailas-cloud/draftdex/internal/repository/template"
	chiTransport "github.com/kailas-cloud/draftdex/internal/transport/chi"
	"github.com/kailas-cloud/draftdex/internal/transport/extract"
	openaiTransport "github.com/kailas-cloud/draftdex/internal/transport/openai"
	"github.com/kailas-cloud/draftdex/internal/transport/websearch"
	catalogt "github.com/kailas-cloud/draftdex/internal/usecase/catalog"
	draftuc "github.com/kailas-cloud/draftdex/internal/usecase/draft"
	"github.com/kailas-cloud/draftdex/internal/usecase/dupguard"
	embeddinguc "github.com/kailas-cloud/draftdex/internal/usecase/embedding"
	fallbackuc "github.com/kailas-cloud/draftdex/internal/usecase/fallback"
	healthuc "github.com/kailas-cloud/draftdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/draftdex/internal/usecase/ingest"
	matchuc "github.com/kailas-cloud/draftdex/internal/usecase/match"
	"github.com/kailas-cloud/draftdex/internal/version"
)

// templateIndex is everything the services need from template storage.
type templateIndex interface {
	matchuc.Index
	catalogt.TemplateStore
	ingestuc.TemplateWriter
	Ping(ctx context.Context) error
}

// backend is the storage selected by database.driver.
type backend struct {
	templates templateIndex
	instances draftuc.InstanceStore
	// cache is the shared embedding cache tier; nil when the driver has none.
	cache *dbRedis.Store
	close func()
}

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting draftdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx := context.Background()

	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.close()
	logger.Info("Storage ready", zap.String("driver", cfg.Database.Driver))

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterMatchMetrics()

	// Embedder chain: one provider, separate instructions for documents and queries.
	vecCfg := cfg.Embedding.Vectorizer
	provCfg := cfg.Embedding.Providers[vecCfg.Provider]
	dims := cfg.Index.Dimensions

	provider := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: dims,
		Provider:   vecCfg.Provider,
		Timeout:    seconds(cfg.Embedding.TimeoutSec),
		Logger:     logger,
	})
	docEmbedder, err := buildEmbedder(provider, cfg, vecCfg.DocumentInstruction, store.cache, logger)
	if err != nil {
		logger.Fatal("Failed to build document embedder", zap.Error(err))
	}
	queryEmbedder, err := buildEmbedder(provider, cfg, vecCfg.QueryInstruction, store.cache, logger)
	if err != nil {
		logger.Fatal("Failed to build query embedder", zap.Error(err))
	}
	logger.Info("Embedders created",
		zap.String("provider", vecCfg.Provider),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", dims),
	)

	llmProvCfg := cfg.Embedding.Providers[cfg.LLM.Provider]
	chat := openaiTransport.NewChatClient(&openaiTransport.ChatConfig{
		APIKey:      llmProvCfg.APIKey,
		BaseURL:     llmProvCfg.BaseURL,
		Model:       cfg.LLM.Model,
		Provider:    cfg.LLM.Provider,
		Temperature: cfg.LLM.Temperature,
		Timeout:     seconds(cfg.LLM.TimeoutSec),
		Logger:      logger,
	})

	matchPolicy := domain.MatchingPolicy{
		TopK:               cfg.Matching.TopK,
		AcceptThreshold:    cfg.Matching.Threshold,
		FallbackConfidence: cfg.Matching.FallbackConfidence,
		DuplicateThreshold: cfg.Matching.DuplicateThreshold,
	}

	guard := dupguard.New(store.templates, matchPolicy.DuplicateThreshold)
	ingestSvc := ingestuc.New(
		openaiTransport.NewSynthesizer(chat, openaiTransport.DefaultSynthesisInputChars, logger),
		docEmbedder, guard, store.templates, dims, logger,
		ingestuc.WithPolicy(domain.IngestPolicy{
			MaxDocumentBytes: cfg.Ingest.MaxDocumentBytes,
			EmbedChars:       cfg.Ingest.EmbedChars,
		}),
		ingestuc.WithBatch(cfg.Ingest.MaxBatchSize, cfg.Ingest.Workers),
	)

	matchOpts := []matchuc.Option{
		matchuc.WithPolicy(matchPolicy),
		matchuc.WithTimeouts(seconds(cfg.Matching.RerankTimeoutSec), seconds(cfg.Matching.FallbackTimeoutSec)),
	}
	if cfg.WebSearch.APIKey != "" {
		timeout := seconds(cfg.WebSearch.TimeoutSec)
		web := fallbackuc.New(
			websearch.NewClient(websearch.Config{
				APIKey:         cfg.WebSearch.APIKey,
				BaseURL:        cfg.WebSearch.BaseURL,
				ExcludeDomains: cfg.WebSearch.ExcludeDomains,
				Timeout:        timeout,
				Logger:         logger,
			}),
			websearch.NewFetcher(timeout, int64(cfg.Ingest.MaxDocumentBytes)),
			ingestSvc, logger,
			fallbackuc.WithMaxResults(cfg.WebSearch.MaxResults),
			fallbackuc.WithMaxContentBytes(cfg.Ingest.MaxDocumentBytes),
		)
		matchOpts = append(matchOpts, matchuc.WithFallback(web))
		logger.Info("Web fallback enabled", zap.Int("max_results", cfg.WebSearch.MaxResults))
	} else {
		logger.Warn("Web fallback disabled: websearch.api_key is empty")
	}
	matchSvc := matchuc.New(queryEmbedder, store.templates, openaiTransport.NewReranker(chat, logger), logger, matchOpts...)

	catalogSvc := catalogt.New(store.templates, queryEmbedder).
		WithPageSizes(cfg.Index.DefaultPageSize, cfg.Index.MaxPageSize)
	draftSvc := draftuc.New(store.templates, store.instances, openaiTransport.NewPrefiller(chat, logger), logger)
	healthSvc := healthuc.New(store.templates, logger,
		healthuc.WithProvider("embedding", newProviderChecker("embedding", provider)),
		healthuc.WithProvider("llm", newProviderChecker("llm", chat)),
	)

	server := chiTransport.NewServer(
		matchSvc, ingestSvc, catalogSvc, draftSvc, healthSvc, extract.New(logger), logger,
		chiTransport.WithMaxUploadBytes(cfg.HTTP.MaxBodyBytes),
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.Routes(r, server, func(w http.ResponseWriter, _ *http.Request, _ error) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
			Code:    chiTransport.ErrorCodeBadRequest,
			Message: "invalid request",
		})
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       seconds(cfg.HTTP.ReadTimeoutSec),
		WriteTimeout:      seconds(cfg.HTTP.WriteTimeoutSec),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), seconds(cfg.HTTP.ShutdownSec))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openBackend connects the configured storage and prepares its index or schema.
func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backend, error) {
	readiness := seconds(cfg.Database.ReadinessTimeout)
	hnswM, hnswEF := cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct

	switch cfg.Database.Driver {
	case config.DriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, readiness); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		templates := templaterepo.New(store, cfg.Storage.KeyPrefix, cfg.Index.Dimensions,
			templaterepo.HNSWConfig{M: hnswM, EFConstruct: hnswEF})
		if err := templates.EnsureIndex(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("ensure template index: %w", err)
		}
		return &backend{
			templates: redisTemplates{Repo: templates, store: store},
			instances: instancerepo.New(store, cfg.Storage.KeyPrefix),
			cache:     store,
			close:     store.Close,
		}, nil

	case config.DriverPostgres:
		openCtx, cancel := context.WithTimeout(ctx, readiness)
		defer cancel()
		sqlDB, err := pgstore.Open(openCtx, cfg.Database.DSN, cfg.Database.MaxOpenConns)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		store := pgstore.New(sqlDB, cfg.Index.Dimensions, pgstore.HNSWConfig{M: hnswM, EFConstruct: hnswEF})
		if err := store.EnsureSchema(openCtx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return &backend{
			templates: store,
			instances: store.Instances(),
			close: func() {
				if err := store.Close(); err != nil {
					logger.Warn("Close postgres", zap.Error(err))
				}
			},
		}, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory storage; templates and drafts are lost on restart")
		return &backend{
			templates: memstore.NewTemplates(cfg.Index.Dimensions),
			instances: memstore.NewInstances(),
			close:     func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// redisTemplates adds the store's Ping to the template repository.
type redisTemplates struct {
	*templaterepo.Repo
	store *dbRedis.Store
}

func (t redisTemplates) Ping(ctx context.Context) error {
	if err := t.store.Ping(ctx); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// buildEmbedder assembles the decorator chain: provider -> cached -> instrumented -> instruction -> gateway.
// The instruction sits outside the cache so cache keys include it.
func buildEmbedder(
	provider domain.Embedder,
	cfg config.Config,
	instruction string,
	cache *dbRedis.Store,
	logger *zap.Logger,
) (*embeddinguc.Gateway, error) {
	vecCfg := cfg.Embedding.Vectorizer

	opts := []embcache.Option{embcache.WithMetrics(metrics.EmbeddingCacheTotal)}
	if cache != nil {
		opts = append(opts, embcache.WithStore(cache, time.Duration(cfg.Embedding.Cache.TTLHours)*time.Hour))
	}
	cached, err := embcache.New(
		provider,
		cfg.Embedding.Cache.MemoryEntries,
		cfg.Storage.KeyPrefix+"emb_cache:"+vecCfg.Model+":",
		logger,
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}

	var embedder domain.Embedder = embeddinguc.NewInstrumentedEmbedder(cached, vecCfg.Provider, vecCfg.Model, logger)
	if instruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embeddinguc.NewGateway(embedder, cfg.Index.Dimensions), nil
}

// providerChecker labels a provider health check failure.
type providerChecker struct {
	name    string
	checker domain.HealthChecker
}

func newProviderChecker(name string, checker domain.HealthChecker) *providerChecker {
	return &providerChecker{name: name, checker: checker}
}

func (p *providerChecker) HealthCheck(ctx context.Context) error {
	if err := p.checker.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%s health check: %w", p.name, err)
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits one canonical log line per request and echoes X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
