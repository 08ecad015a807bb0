package embedding

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unihelp/internal/domain"
)

// DefaultMaxAPIBatchSize caps the texts sent in one provider request.
const DefaultMaxAPIBatchSize = 256

// InstrumentedEmbedder bounds every embedding call with a timeout, tags failures
// as ErrEmbeddingUnavailable and logs them.
// Transport metrics (requests, duration, tokens) are recorded in the provider clients.
type InstrumentedEmbedder struct {
	inner       domain.Embedder
	provider    string
	model       string
	timeout     time.Duration
	concurrency int
	maxBatch    int
	logger      *zap.Logger
}

// Option configures an InstrumentedEmbedder.
type Option func(*InstrumentedEmbedder)

// WithTimeout bounds each provider call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *InstrumentedEmbedder) { p.timeout = d }
}

// WithConcurrency bounds parallel Embed calls when the provider has no batch endpoint.
func WithConcurrency(n int) Option {
	return func(p *InstrumentedEmbedder) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithMaxBatchSize caps texts per provider request. Non-positive values are ignored.
func WithMaxBatchSize(n int) Option {
	return func(p *InstrumentedEmbedder) {
		if n > 0 {
			p.maxBatch = n
		}
	}
}

// NewInstrumentedEmbedder wraps an embedder with timeouts and observability.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	logger *zap.Logger, opts ...Option,
) *InstrumentedEmbedder {
	p := &InstrumentedEmbedder{
		inner:       inner,
		provider:    provider,
		model:       model,
		concurrency: domain.DefaultBatchConcurrency,
		maxBatch:    DefaultMaxAPIBatchSize,
		logger:      logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Embed delegates to the inner embedder under the configured timeout.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		log := p.logger.Error
		if errors.Is(err, context.Canceled) {
			log = p.logger.Debug
		}
		log("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, domain.Unavailable(domain.ErrEmbeddingUnavailable, fmt.Errorf("embed: %w", err))
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// BatchEmbed splits texts into provider-sized requests. Порядок сохраняется.
func (p *InstrumentedEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()

	result, err := p.embedChunked(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, domain.Unavailable(domain.ErrEmbeddingUnavailable, err)
	}

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := p.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	ctx, cancel := p.bound(ctx)
	defer cancel()
	if err := hc.HealthCheck(ctx); err != nil {
		return domain.Unavailable(domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// embedChunked sends texts in slices of at most maxBatch and stitches the
// vectors back in input order.
func (p *InstrumentedEmbedder) embedChunked(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}

	offset := 0
	for part := range slices.Chunk(texts, p.maxBatch) {
		res, err := p.embedInner(ctx, part)
		if err == nil && len(res.Embeddings) != len(part) {
			err = fmt.Errorf("got %d embeddings for %d texts", len(res.Embeddings), len(part))
		}
		if err != nil {
			log := p.logger.Error
			if errors.Is(err, context.Canceled) {
				log = p.logger.Debug
			}
			log("Batch embedding request failed",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Int("offset", offset),
				zap.Int("size", len(part)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed [%d:%d]: %w", offset, offset+len(part), err)
		}

		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
		offset += len(part)
	}
	return out, nil
}

func (p *InstrumentedEmbedder) embedInner(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if be, ok := p.inner.(domain.BatchEmbedder); ok {
		ctx, cancel := p.bound(ctx)
		defer cancel()
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("inner batch embed: %w", err)
		}
		return res, nil
	}
	res, err := domain.BatchFallback(ctx, boundEmbedder{p}, texts, p.concurrency)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("inner batch fallback: %w", err)
	}
	return res, nil
}

func (p *InstrumentedEmbedder) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

// boundEmbedder applies the per-call timeout to each fallback Embed.
type boundEmbedder struct{ p *InstrumentedEmbedder }

func (b boundEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	ctx, cancel := b.p.bound(ctx)
	defer cancel()
	return b.p.inner.Embed(ctx, text)
}
