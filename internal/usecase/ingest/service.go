// Package ingest turns documents into indexed, embedded chunks.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unihelp/internal/domain"
	dombatch "github.com/kailas-cloud/unihelp/internal/domain/batch"
	"github.com/kailas-cloud/unihelp/internal/domain/chunk"
	"github.com/kailas-cloud/unihelp/internal/domain/document"
	"github.com/kailas-cloud/unihelp/internal/metrics"
)

// Service runs document ingestion. Safe for concurrent use across documents;
// concurrent ingestion of the same name is last-writer-wins.
type Service struct {
	extractor   Extractor
	chunker     *chunk.Chunker
	embedder    Embedder
	index       Index
	files       FileStore
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// New creates an ingestion service. files can be nil, in which case raw
// uploads are not kept and Reindex has nothing to do.
func New(
	extractor Extractor, chunker *chunk.Chunker, embedder Embedder,
	index Index, files FileStore, logger *zap.Logger,
) *Service {
	return &Service{
		extractor:   extractor,
		chunker:     chunker,
		embedder:    embedder,
		index:       index,
		files:       files,
		concurrency: domain.DefaultBatchConcurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// WithConcurrency bounds parallel embedding calls when the embedder has no batch API.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// Ingest extracts, chunks, embeds and indexes one uploaded file, replacing
// any previous chunks of the same name, then keeps the raw file.
func (s *Service) Ingest(ctx context.Context, name string, data []byte) (document.IngestResult, error) {
	res, err := s.ingestBytes(ctx, name, data)
	if err != nil {
		return document.IngestResult{}, err
	}

	if s.files != nil {
		if err := s.files.Save(name, data); err != nil {
			return document.IngestResult{}, s.fail(name, fmt.Errorf("store raw file: %w", err))
		}
	}
	return res, nil
}

// IngestText indexes already extracted text. nil pageBreaks leaves chunks without pages.
func (s *Service) IngestText(ctx context.Context, name, text string, pageBreaks []int) (document.IngestResult, error) {
	start := s.now()
	if err := document.ValidateName(name); err != nil {
		return document.IngestResult{}, s.fail(name, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err))
	}

	pages := 0
	if pageBreaks != nil {
		pages = len(pageBreaks) + 1
	}
	n, err := s.indexText(ctx, name, text, pageBreaks)
	if err != nil {
		return document.IngestResult{}, s.fail(name, err)
	}
	return s.done(name, n, pages, start), nil
}

func (s *Service) ingestBytes(ctx context.Context, name string, data []byte) (document.IngestResult, error) {
	start := s.now()
	if err := document.ValidateName(name); err != nil {
		return document.IngestResult{}, s.fail(name, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err))
	}

	extracted, err := s.extractor.Extract(name, data)
	if err != nil {
		return document.IngestResult{}, s.fail(name, fmt.Errorf("extract: %w", err))
	}

	n, err := s.indexText(ctx, name, extracted.Text, extracted.PageBreaks)
	if err != nil {
		return document.IngestResult{}, s.fail(name, err)
	}
	return s.done(name, n, extracted.Pages, start), nil
}

// indexText runs chunk → embed → replace for one document and returns the chunk count.
func (s *Service) indexText(ctx context.Context, name, text string, pageBreaks []int) (int, error) {
	if !document.HasEnoughContent(text) {
		return 0, fmt.Errorf(
			"fewer than %d non-space characters: %w", document.MinContentLength, domain.ErrInsufficientContent,
		)
	}

	chunks := s.chunker.Chunk(text, name, pageBreaks)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("chunking produced no chunks: %w", domain.ErrInsufficientContent)
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	embedded, err := s.embed(ctx, texts)
	if err != nil {
		return 0, domain.Unavailable(domain.ErrEmbeddingUnavailable, fmt.Errorf("embed chunks: %w", err))
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(embedded.TotalTokens)
	if len(embedded.Embeddings) != len(chunks) {
		return 0, fmt.Errorf(
			"embedder returned %d vectors for %d chunks: %w",
			len(embedded.Embeddings), len(chunks), domain.ErrEmbeddingUnavailable,
		)
	}

	if _, err := s.index.DeleteDocument(ctx, name); err != nil {
		return 0, domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("delete previous chunks: %w", err))
	}
	if err := s.index.Upsert(ctx, chunks, embedded.Embeddings); err != nil {
		return 0, fmt.Errorf("upsert chunks: %w", err)
	}

	metrics.IngestedChunksTotal.Add(float64(len(chunks)))
	return len(chunks), nil
}

func (s *Service) embed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := s.embedder.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, s.embedder, texts, s.concurrency)
}

func (s *Service) done(name string, chunks, pages int, start time.Time) document.IngestResult {
	res := document.IngestResult{
		DocumentName:  name,
		ChunksCreated: chunks,
		PageCount:     pages,
		Duration:      s.now().Sub(start),
	}
	s.logger.Info("Document ingested",
		zap.String("document", name),
		zap.Int("chunks", chunks),
		zap.Int("pages", pages),
		zap.Duration("duration", res.Duration),
	)
	return res
}

func (s *Service) fail(name string, err error) error {
	kind := domain.FailureKindOf(err)
	if kind == domain.FailureCanceled {
		s.logger.Info("Document ingestion canceled", zap.String("document", name), zap.Error(err))
		return fmt.Errorf("ingest %s: %w", name, err)
	}
	metrics.IngestionFailuresTotal.WithLabelValues(string(kind)).Inc()
	s.logger.Error("Document ingestion failed",
		zap.String("document", name),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	return fmt.Errorf("ingest %s: %w", name, err)
}

// Delete removes a document's chunks and its stored file.
func (s *Service) Delete(ctx context.Context, name string) (int, error) {
	if err := document.ValidateName(name); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	n, err := s.index.DeleteDocument(ctx, name)
	if err != nil {
		return 0, domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("delete document: %w", err))
	}

	removed := false
	if s.files != nil {
		removed, err = s.files.Delete(name)
		if err != nil {
			return n, fmt.Errorf("delete raw file: %w", err)
		}
	}

	if n == 0 && !removed {
		return 0, fmt.Errorf("%q: %w", name, domain.ErrDocumentNotFound)
	}
	s.logger.Info("Document deleted", zap.String("document", name), zap.Int("chunks", n))
	return n, nil
}

// List returns indexed documents with their chunk counts.
func (s *Service) List(ctx context.Context) ([]document.Summary, error) {
	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		return nil, domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("list documents: %w", err))
	}
	return docs, nil
}

// Count returns the total number of indexed chunks.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.index.Count(ctx)
	if err != nil {
		return 0, domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("count chunks: %w", err))
	}
	return n, nil
}

// Reindex re-ingests every stored file, one at a time. Per-file failures are
// reported in the results; only a failure to list stored files is an error.
func (s *Service) Reindex(ctx context.Context) ([]dombatch.Result, error) {
	if s.files == nil {
		return []dombatch.Result{}, nil
	}

	names, err := s.files.List()
	if err != nil {
		return nil, fmt.Errorf("reindex: %w", err)
	}

	results := make([]dombatch.Result, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			results = append(results, dombatch.NewError(name, err))
			continue
		}

		data, err := s.files.Read(name)
		if err != nil {
			results = append(results, dombatch.NewError(name, err))
			continue
		}

		res, err := s.ingestBytes(ctx, name, data)
		if err != nil {
			results = append(results, dombatch.NewError(name, err))
			continue
		}
		results = append(results, dombatch.NewOK(name, res.ChunksCreated))
	}

	ok, failed := dombatch.Summarize(results)
	s.logger.Info("Reindex finished", zap.Int("succeeded", ok), zap.Int("failed", failed))
	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("reindex: %w", err)
	}
	return results, nil
}
