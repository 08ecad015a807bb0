package unihelp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unihelp/internal/db"
	dbRedis "github.com/kailas-cloud/unihelp/internal/db/redis"
	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/domain/answer"
	"github.com/kailas-cloud/unihelp/internal/domain/chunk"
	"github.com/kailas-cloud/unihelp/internal/domain/document"
	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
	"github.com/kailas-cloud/unihelp/internal/domain/lang"
	"github.com/kailas-cloud/unihelp/internal/domain/prompt"
	domqa "github.com/kailas-cloud/unihelp/internal/domain/qa"
	"github.com/kailas-cloud/unihelp/internal/extract"
	"github.com/kailas-cloud/unihelp/internal/filestore"
	"github.com/kailas-cloud/unihelp/internal/repository/chunkindex"
	"github.com/kailas-cloud/unihelp/internal/repository/memory"
	healthuc "github.com/kailas-cloud/unihelp/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/unihelp/internal/usecase/ingest"
	qauc "github.com/kailas-cloud/unihelp/internal/usecase/qa"
	"github.com/kailas-cloud/unihelp/internal/usecase/retrieval"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultVectorDimensions = 768
	maxPDFBytes             = 20 << 20
)

// Внутренние интерфейсы для подмены в тестах.
type vectorIndex interface {
	EnsureIndex(ctx context.Context) error
	Ping(ctx context.Context) error
	Upsert(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error
	Query(ctx context.Context, vector []float32, limit int) ([]evidence.Candidate, error)
	DeleteDocument(ctx context.Context, documentName string) (int, error)
	ListDocuments(ctx context.Context) ([]document.Summary, error)
	Count(ctx context.Context) (int, error)
}

type retrievalUseCase interface {
	RetrieveAndScore(ctx context.Context, query string, topK int, floor float64) (retrieval.Result, error)
}

type ingestUseCase interface {
	Ingest(ctx context.Context, name string, data []byte) (document.IngestResult, error)
	IngestText(ctx context.Context, name, text string, pageBreaks []int) (document.IngestResult, error)
	Delete(ctx context.Context, name string) (int, error)
	List(ctx context.Context) ([]document.Summary, error)
}

type askUseCase interface {
	Ask(ctx context.Context, req qauc.Request) (domqa.Answer, error)
}

// Client is the unihelp SDK entry point. It is safe for concurrent use.
type Client struct {
	store     db.Store // nil with the memory index
	chunker   *chunk.Chunker
	builder   *prompt.Builder
	retrieval retrievalUseCase
	ingestSvc ingestUseCase
	qaSvc     askUseCase
	healthSvc healthUseCase
	rag       RAGConfig
	obs       *observer
}

// New creates a Client. With WithRedis the provided context bounds the
// initial readiness check and index creation.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		vectorDimensions: defaultVectorDimensions,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("unihelp: vector index required (use WithRedis or WithMemoryIndex)")
	}

	pipeline, err := cfg.rag.pipelineConfig()
	if err != nil {
		return nil, err
	}

	store, index, err := createIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	c, err := wireClient(store, index, cfg, pipeline, obs)
	if err != nil && store != nil {
		store.Close()
	}
	return c, err
}

func createIndex(ctx context.Context, cfg *clientConfig) (db.Store, vectorIndex, error) {
	switch cfg.driver {
	case driverMemory:
		return nil, memory.New(0), nil
	case driverRedis:
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, nil, errors.New("unihelp: redis address required")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("unihelp: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("unihelp: database not ready: %w", err)
		}
		repo := chunkindex.New(s, chunkindex.Config{
			Dimensions:  cfg.vectorDimensions,
			M:           cfg.hnswM,
			EFConstruct: cfg.hnswEFConstruct,
		})
		if err := repo.EnsureIndex(ctx); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("unihelp: ensure index: %w", err)
		}
		return s, repo, nil
	default:
		return nil, nil, fmt.Errorf("unihelp: unknown driver %q", cfg.driver)
	}
}

func wireClient(
	store db.Store, index vectorIndex, cfg *clientConfig, pipeline domain.PipelineConfig, obs *observer,
) (*Client, error) {
	logger := zap.NewNop()

	// Embedder: noop если не задан (Chunk/BuildPrompt работают, retrieval вернёт ошибку)
	var emb domain.Embedder = noopEmbedder{}
	if cfg.embedder != nil {
		emb = &embedderAdapter{inner: cfg.embedder}
	}
	var gen domain.Generator = noopGenerator{}
	if cfg.generator != nil {
		gen = &generatorAdapter{inner: cfg.generator}
	}

	// Pass nil interface (not typed nil pointer) when uploads are not kept.
	var files ingestuc.FileStore
	if cfg.uploadDir != "" {
		fs, err := filestore.New(cfg.uploadDir)
		if err != nil {
			return nil, fmt.Errorf("unihelp: upload dir: %w", err)
		}
		files = fs
	}

	chunker := chunk.New(chunk.Config{
		Size:          pipeline.ChunkSize,
		Overlap:       pipeline.ChunkOverlap,
		MinUnitLength: pipeline.MinUnitLength,
	})
	retrievalSvc := retrieval.New(emb, index)
	ingestSvc := ingestuc.New(extract.New(maxPDFBytes), chunker, emb, index, files, logger).
		WithConcurrency(pipeline.EmbedConcurrency)
	qaSvc := qauc.New(retrievalSvc, gen, nil, qauc.ConfigFrom(pipeline), logger)

	var embHealth, genHealth healthuc.ProviderChecker
	if hc, ok := cfg.embedder.(domain.HealthChecker); ok {
		embHealth = hc
	}
	if hc, ok := cfg.generator.(domain.HealthChecker); ok {
		genHealth = hc
	}

	return &Client{
		store:     store,
		chunker:   chunker,
		builder:   prompt.NewBuilder(lang.Language(pipeline.DefaultLanguage)),
		retrieval: retrievalSvc,
		ingestSvc: ingestSvc,
		qaSvc:     qaSvc,
		healthSvc: healthuc.New(index, embHealth, genHealth),
		rag:       fromPipeline(pipeline),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Config returns the effective pipeline configuration.
func (c *Client) Config() RAGConfig { return c.rag }

// Chunk splits text into overlapping chunks. pageBreaks are ascending
// character offsets into the normalized text; nil means no page information.
func (c *Client) Chunk(text, documentName string, pageBreaks []int) []Chunk {
	return chunksFromDomain(c.chunker.Chunk(text, documentName, pageBreaks))
}

// RetrieveAndScore embeds question, returns up to topK chunks at or above
// floor in rank order, and their confidence.
func (c *Client) RetrieveAndScore(ctx context.Context, question string, topK int, floor float64) (res RetrievalResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("retrieve", start, err) }()

	r, err := c.retrieval.RetrieveAndScore(ctx, question, topK, floor)
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("retrieve: %w", err)
	}
	return RetrievalResult{Evidence: evidenceFromDomain(r.Evidence), Confidence: r.Confidence}, nil
}

// BuildPrompt renders the system and user instructions for question.
// Unsupported languages fall back to the configured default.
func (c *Client) BuildPrompt(question string, ev []Evidence, l Language) Prompt {
	return promptFromDomain(c.builder.Build(question, evidenceToDomain(ev), lang.Language(l)))
}

// ClassifyAnswer reports Found=false when text is a canned refusal in any
// supported language.
func ClassifyAnswer(text string) Verdict {
	return Verdict{Found: answer.Classify(text).Found}
}

// Ask answers a question from the indexed documents.
func (c *Client) Ask(ctx context.Context, req AskRequest) (ans Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ask", start, err) }()

	a, err := c.qaSvc.Ask(ctx, qauc.Request{
		Question: req.Question,
		TopK:     req.TopK,
		Language: string(req.Language),
	})
	if err != nil {
		return Answer{}, err //nolint:wrapcheck // already prefixed by the service
	}
	ans = answerFromDomain(a)
	c.obs.answered(ans)
	return ans, nil
}

// Ingest extracts, chunks, embeds and indexes a .pdf, .txt or .md file,
// replacing any previous chunks of the same name.
func (c *Client) Ingest(ctx context.Context, name string, data []byte) (res IngestResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest", start, err) }()

	r, err := c.ingestSvc.Ingest(ctx, name, data)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest: %w", err)
	}
	return ingestFromDomain(r), nil
}

// IngestText indexes already extracted text.
func (c *Client) IngestText(ctx context.Context, name, text string, pageBreaks []int) (res IngestResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest_text", start, err) }()

	r, err := c.ingestSvc.IngestText(ctx, name, text, pageBreaks)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest: %w", err)
	}
	return ingestFromDomain(r), nil
}

// DeleteDocument removes a document and returns how many chunks were removed.
func (c *Client) DeleteDocument(ctx context.Context, name string) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete_document", start, err) }()

	n, err = c.ingestSvc.Delete(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("delete document: %w", err)
	}
	return n, nil
}

// ListDocuments returns indexed documents sorted by name.
func (c *Client) ListDocuments(ctx context.Context) (docs []Document, err error) {
	start := time.Now()
	defer func() { c.obs.observe("list_documents", start, err) }()

	list, err := c.ingestSvc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return documentsFromDomain(list), nil
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, domain.Unavailable(domain.ErrEmbeddingUnavailable, err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		return domain.BatchFallback(ctx, a, texts, domain.DefaultBatchConcurrency)
	}
	r, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, domain.Unavailable(domain.ErrEmbeddingUnavailable, err)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// generatorAdapter wraps public Generator to satisfy internal domain.Generator.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	r, err := a.inner.Generate(ctx, GenerationRequest{
		System:      req.System,
		User:        req.User,
		Temperature: req.Temperature,
	})
	if err != nil {
		return domain.GenerationResult{}, domain.Unavailable(domain.ErrGenerationUnavailable, err)
	}
	return domain.GenerationResult{
		Text:             r.Text,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
	}, nil
}

// noopEmbedder returns an error on Embed call (used when no embedder configured).
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf(
		"unihelp: embedder not configured (use WithEmbedder): %w", domain.ErrEmbeddingUnavailable,
	)
}

// noopGenerator fails every call (used when no generator configured).
type noopGenerator struct{}

func (noopGenerator) Generate(_ context.Context, _ domain.GenerationRequest) (domain.GenerationResult, error) {
	return domain.GenerationResult{}, fmt.Errorf(
		"unihelp: generator not configured (use WithGenerator): %w", domain.ErrGenerationUnavailable,
	)
}
