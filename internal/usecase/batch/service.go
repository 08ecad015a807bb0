// Package batch runs multi-document ingestion and deletion with per-item
// error reporting.
package batch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unihelp/internal/domain"
	dombatch "github.com/kailas-cloud/unihelp/internal/domain/batch"
)

// MaxBatchSize is the maximum number of items per batch request.
const MaxBatchSize = 50

// Item is one file of a batch upload.
type Item struct {
	Name string
	Data []byte
}

// Service handles batch document operations. Items run one at a time so a
// batch never multiplies the embedding fan-out of a single ingestion.
type Service struct {
	ingest       Ingester
	del          Deleter
	maxBatchSize int
	logger       *zap.Logger
}

// New creates a batch service.
func New(ingest Ingester, del Deleter, logger *zap.Logger) *Service {
	return &Service{
		ingest:       ingest,
		del:          del,
		maxBatchSize: MaxBatchSize,
		logger:       logger,
	}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// MaxBatchSize returns the configured limit.
func (s *Service) MaxBatchSize() int { return s.maxBatchSize }

// Ingest indexes every item and reports one result per item, in input order.
// Once a collaborator is unavailable the remaining items fail with the same error.
func (s *Service) Ingest(ctx context.Context, items []Item) []dombatch.Result {
	results := make([]dombatch.Result, len(items))

	if len(items) > s.maxBatchSize {
		for i, item := range items {
			results[i] = dombatch.NewError(item.Name, s.tooLarge())
		}
		return results
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			results[i] = dombatch.NewError(item.Name, err)
			continue
		}

		res, err := s.ingest.Ingest(ctx, item.Name, item.Data)
		if err != nil {
			results[i] = dombatch.NewError(item.Name, err)
			if cascades(err) {
				for j := i + 1; j < len(items); j++ {
					results[j] = dombatch.NewError(items[j].Name, fmt.Errorf("skipped: %w", err))
				}
				s.logger.Warn("Batch ingest aborted",
					zap.String("document", item.Name),
					zap.Int("skipped", len(items)-i-1),
					zap.Error(err),
				)
				return results
			}
			continue
		}
		results[i] = dombatch.NewOK(res.DocumentName, res.ChunksCreated)
	}

	ok, failed := dombatch.Summarize(results)
	s.logger.Info("Batch ingest finished", zap.Int("succeeded", ok), zap.Int("failed", failed))
	return results
}

// Delete removes documents by name in batch.
func (s *Service) Delete(ctx context.Context, names []string) []dombatch.Result {
	results := make([]dombatch.Result, len(names))

	if len(names) > s.maxBatchSize {
		for i, name := range names {
			results[i] = dombatch.NewError(name, s.tooLarge())
		}
		return results
	}

	for i, name := range names {
		n, err := s.del.Delete(ctx, name)
		if err != nil {
			results[i] = dombatch.NewError(name, fmt.Errorf("delete: %w", err))
			continue
		}
		results[i] = dombatch.NewOK(name, n)
	}
	return results
}

func (s *Service) tooLarge() error {
	return fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidRequest)
}

// cascades reports whether err means every later item would fail the same way.
func cascades(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingUnavailable) ||
		errors.Is(err, domain.ErrIndexUnavailable)
}
