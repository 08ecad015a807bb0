package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unihelp/internal/config"
	"github.com/kailas-cloud/unihelp/internal/db"
	dbRedis "github.com/kailas-cloud/unihelp/internal/db/redis"
	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/domain/chunk"
	"github.com/kailas-cloud/unihelp/internal/domain/document"
	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
	"github.com/kailas-cloud/unihelp/internal/extract"
	"github.com/kailas-cloud/unihelp/internal/filestore"
	"github.com/kailas-cloud/unihelp/internal/metrics"
	"github.com/kailas-cloud/unihelp/internal/repository/chunkindex"
	"github.com/kailas-cloud/unihelp/internal/repository/embcache"
	"github.com/kailas-cloud/unihelp/internal/repository/memory"
	"github.com/kailas-cloud/unihelp/internal/transport/gemini"
	"github.com/kailas-cloud/unihelp/internal/transport/hashembed"
	openaiTransport "github.com/kailas-cloud/unihelp/internal/transport/openai"
	batchuc "github.com/kailas-cloud/unihelp/internal/usecase/batch"
	embeddinguc "github.com/kailas-cloud/unihelp/internal/usecase/embedding"
	generationuc "github.com/kailas-cloud/unihelp/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/unihelp/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/unihelp/internal/usecase/ingest"
	qauc "github.com/kailas-cloud/unihelp/internal/usecase/qa"
	"github.com/kailas-cloud/unihelp/internal/usecase/retrieval"
	usageuc "github.com/kailas-cloud/unihelp/internal/usecase/usage"
)

const usageLogCapacity = 1000

// vectorIndex is what the composition root needs from either index backend.
type vectorIndex interface {
	EnsureIndex(ctx context.Context) error
	Ping(ctx context.Context) error
	Upsert(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error
	Query(ctx context.Context, vector []float32, limit int) ([]evidence.Candidate, error)
	DeleteDocument(ctx context.Context, documentName string) (int, error)
	ListDocuments(ctx context.Context) ([]document.Summary, error)
	Count(ctx context.Context) (int, error)
}

// app holds the wired services. Generation parts are nil unless requested.
type app struct {
	store     db.Store
	index     vectorIndex
	ingest    *ingestuc.Service
	batch     *batchuc.Service
	retrieval *retrieval.Service
	usage     *usageuc.Service
	qa        *qauc.Service
	health    *healthuc.Service
	generator *generationuc.GuardedGenerator
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// buildApp is the composition root.
func buildApp(ctx context.Context, cfg *config.Config, withGeneration bool, logger *zap.Logger) (*app, error) {
	metrics.RegisterAll()

	a := &app{}
	store, index, err := buildIndex(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.store, a.index = store, index

	if err := index.EnsureIndex(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	pipeline := cfg.Pipeline()

	docEmbedder, embHealth := buildEmbedder(cfg, cfg.Embedding.DocumentInstruction, store, logger)
	queryEmbedder, _ := buildEmbedder(cfg, cfg.Embedding.QueryInstruction, store, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	files, err := filestore.New(cfg.Upload.Dir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("upload dir: %w", err)
	}

	chunker := chunk.New(chunk.Config{
		Size:          pipeline.ChunkSize,
		Overlap:       pipeline.ChunkOverlap,
		MinUnitLength: pipeline.MinUnitLength,
	})
	a.ingest = ingestuc.New(
		extract.New(cfg.Upload.MaxBytes()), chunker, docEmbedder, index, files, logger,
	).WithConcurrency(pipeline.EmbedConcurrency)
	a.batch = batchuc.New(a.ingest, a.ingest, logger)
	a.retrieval = retrieval.New(queryEmbedder, index)
	a.usage = usageuc.New(usageLogCapacity)

	var genHealth healthuc.ProviderChecker
	if withGeneration {
		gen, err := buildGenerator(ctx, cfg, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.generator = gen
		genHealth = gen
		a.qa = qauc.New(a.retrieval, gen, a.usage, qauc.ConfigFrom(pipeline), logger)
		logger.Info("Generator created",
			zap.String("provider", cfg.Generation.Provider),
			zap.String("model", cfg.Generation.Model),
		)
	}

	a.health = healthuc.New(index, embHealth, genHealth)
	return a, nil
}

func buildIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) (db.Store, vectorIndex, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory vector index; documents are lost on restart")
		return nil, memory.New(cfg.Embedding.Dimensions), nil
	case config.DriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create redis store: %w", err)
		}
		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("database not ready: %w", err)
		}
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

		repo := chunkindex.New(store, chunkindex.Config{
			Dimensions:  cfg.Embedding.Dimensions,
			M:           cfg.Database.HNSWM,
			EFConstruct: cfg.Database.HNSWEFConstruct,
		})
		return store, repo, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction.
// The second return value is the health-checkable part of the chain.
func buildEmbedder(
	cfg *config.Config, instruction string, store db.Store, logger *zap.Logger,
) (domain.Embedder, *embeddinguc.InstrumentedEmbedder) {
	ec := cfg.Embedding

	var base domain.Embedder
	switch ec.Provider {
	case config.EmbeddingLocal:
		base = hashembed.New()
	default:
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Provider:   ec.Provider,
			Logger:     logger,
		})
	}

	embedder := base
	if ec.Cache && store != nil && ec.Provider != config.EmbeddingLocal {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger,
			embcache.WithModel(ec.Model),
			embcache.WithTTL(time.Duration(ec.CacheTTLHours)*time.Hour),
		)
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(
		embedder, ec.Provider, ec.Model, logger,
		embeddinguc.WithTimeout(ec.Timeout()),
		embeddinguc.WithConcurrency(ec.BatchConcurrency),
		embeddinguc.WithMaxBatchSize(ec.MaxBatchSize),
	)

	// Instruction prefix is outermost, so cache keys include it
	if instruction != "" {
		return domain.NewInstructionEmbedder(instrumented, instruction), instrumented
	}
	return instrumented, instrumented
}

func buildGenerator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*generationuc.GuardedGenerator, error) {
	gc := cfg.Generation

	var inner domain.Generator
	switch gc.Provider {
	case config.GenerationGemini:
		g, err := gemini.NewGenerator(ctx, &gemini.Config{
			APIKey:    gc.APIKey,
			BaseURL:   gc.BaseURL,
			Model:     gc.Model,
			MaxTokens: gc.MaxTokens,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini generator: %w", err)
		}
		inner = g
	case config.GenerationOpenAI:
		if gc.APIKey == "" && gc.BaseURL == "" {
			return nil, errors.New("generation.api_key or generation.base_url is required")
		}
		inner = openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
			Config: openaiTransport.Config{
				APIKey:   gc.APIKey,
				BaseURL:  gc.BaseURL,
				Model:    gc.Model,
				Provider: gc.ProviderName,
				Logger:   logger,
			},
			MaxTokens: gc.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown generation provider %q", gc.Provider)
	}

	return generationuc.NewGuardedGenerator(
		inner, gc.ProviderName, gc.Model, breakerConfig(gc.Breaker), logger,
		generationuc.WithTimeout(gc.Timeout()),
		generationuc.WithRateLimit(gc.PerMinute, 1),
	), nil
}

func breakerConfig(b config.Breaker) generationuc.BreakerConfig {
	bc := generationuc.DefaultBreakerConfig()
	if b.MinRequests > 0 {
		bc.MinRequests = b.MinRequests
	}
	if b.FailureRatio > 0 {
		bc.FailureRatio = b.FailureRatio
	}
	if b.OpenTimeoutSec > 0 {
		bc.OpenTimeout = time.Duration(b.OpenTimeoutSec) * time.Second
	}
	return bc
}
