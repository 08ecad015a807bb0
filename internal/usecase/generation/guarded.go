// Package generation guards text generation providers with a timeout, a
// client-side rate limit and a circuit breaker.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/metrics"
)

// BreakerConfig tunes the circuit breaker.
type BreakerConfig struct {
	MinRequests  uint32        // requests in the window before the ratio is considered
	FailureRatio float64       // trip when failures/requests reaches this ratio
	Interval     time.Duration // closed-state counter reset period
	OpenTimeout  time.Duration // how long the breaker stays open
	HalfOpenMax  uint32        // probe requests allowed while half-open
}

// DefaultBreakerConfig trips after 3+ requests with 60% failures and retries after a minute.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MinRequests:  3,
		FailureRatio: 0.6,
		Interval:     10 * time.Second,
		OpenTimeout:  60 * time.Second,
		HalfOpenMax:  1,
	}
}

// GuardedGenerator wraps a domain.Generator. It never retries; failures
// surface as ErrGenerationUnavailable.
type GuardedGenerator struct {
	inner    domain.Generator
	provider string
	model    string
	timeout  time.Duration
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// Option configures a GuardedGenerator.
type Option func(*GuardedGenerator)

// WithTimeout bounds each provider call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(g *GuardedGenerator) { g.timeout = d }
}

// WithRateLimit allows perMinute calls per minute with the given burst. perMinute <= 0 disables it.
func WithRateLimit(perMinute, burst int) Option {
	return func(g *GuardedGenerator) {
		if perMinute <= 0 {
			g.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
	}
}

// NewGuardedGenerator wraps inner with the breaker described by cfg.
func NewGuardedGenerator(
	inner domain.Generator, provider, model string,
	cfg BreakerConfig, logger *zap.Logger, opts ...Option,
) *GuardedGenerator {
	g := &GuardedGenerator{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   logger,
	}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: cfg.HalfOpenMax,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests || counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.GenerationBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("Generation circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// caller cancellations say nothing about provider health
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate runs one single-shot generation call.
func (g *GuardedGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return domain.GenerationResult{}, domain.Unavailable(
				domain.ErrGenerationUnavailable, fmt.Errorf("rate limit wait: %w", err),
			)
		}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.Generate(ctx, req)
	})
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			g.logger.Warn("Generation rejected by circuit breaker",
				zap.String("provider", g.provider),
				zap.String("state", g.breaker.State().String()),
			)
		} else {
			log := g.logger.Error
			if errors.Is(err, context.Canceled) {
				log = g.logger.Debug
			}
			log("Generation request failed",
				zap.String("provider", g.provider),
				zap.String("model", g.model),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		}
		return domain.GenerationResult{}, domain.Unavailable(domain.ErrGenerationUnavailable, fmt.Errorf("generate: %w", err))
	}

	res, _ := out.(domain.GenerationResult)
	g.logger.Debug("Generation request completed",
		zap.String("provider", g.provider),
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Int("completion_tokens", res.CompletionTokens),
	)
	return res, nil
}

// State returns the breaker state name: closed, half-open or open.
func (g *GuardedGenerator) State() string {
	return g.breaker.State().String()
}

// HealthCheck fails while the breaker is open, else forwards to the provider when supported.
func (g *GuardedGenerator) HealthCheck(ctx context.Context) error {
	if g.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("circuit breaker open: %w", domain.ErrGenerationUnavailable)
	}
	hc, ok := g.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return domain.Unavailable(domain.ErrGenerationUnavailable, err)
	}
	return nil
}
