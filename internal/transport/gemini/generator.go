// Package gemini adapts the Gemini API to the generation contract.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/metrics"
)

const provider = "gemini"

// Config holds the Gemini settings.
type Config struct {
	APIKey    string
	BaseURL   string // empty uses the public endpoint
	Model     string
	MaxTokens int
	Logger    *zap.Logger
}

// Generator produces answers with GenerateContent.
type Generator struct {
	client    *genai.Client
	model     string
	maxTokens int32
	logger    *zap.Logger
}

// NewGenerator creates a Gemini client. No network call is made.
func NewGenerator(ctx context.Context, cfg *Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Generator{
		client:    client,
		model:     cfg.Model,
		maxTokens: int32(cfg.MaxTokens), //nolint:gosec // config-bounded
		logger:    cfg.Logger,
	}, nil
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	temperature := req.Temperature
	gc := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: req.System}}},
		Temperature:       &temperature,
	}
	if g.maxTokens > 0 {
		gc.MaxOutputTokens = g.maxTokens
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.User}}}},
		gc,
	)
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(provider, g.model, metrics.StatusError).Inc()
		return domain.GenerationResult{}, domain.Unavailable(domain.ErrGenerationUnavailable, fmt.Errorf("gemini generate: %w", err))
	}

	text := resp.Text()
	if text == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(provider, g.model, metrics.StatusError).Inc()
		return domain.GenerationResult{}, fmt.Errorf("gemini returned no text: %w", domain.ErrGenerationUnavailable)
	}

	res := domain.GenerationResult{Text: text}
	if resp.UsageMetadata != nil {
		res.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		res.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(provider, g.model, metrics.StatusSuccess).Inc()
	metrics.GenerationRequestDuration.WithLabelValues(provider, g.model).Observe(duration.Seconds())
	metrics.GenerationTokensTotal.WithLabelValues(provider, g.model, "prompt").Add(float64(res.PromptTokens))
	metrics.GenerationTokensTotal.WithLabelValues(provider, g.model, "completion").Add(float64(res.CompletionTokens))

	return res, nil
}

// HealthCheck fetches the configured model's metadata.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("gemini get model: %w", err)
	}
	return nil
}
