// Package hashembed is a deterministic, offline pseudo-embedding for local
// development and tests. Retrieval quality is poor; never use it in production.
package hashembed

import (
	"context"
	"math"
	"strings"

	"github.com/kailas-cloud/unihelp/internal/domain"
)

// Dimensions is the fixed vector size.
const Dimensions = 384

// Embedder hashes characters by position into a bag-of-characters vector.
type Embedder struct{}

// New creates an Embedder.
func New() *Embedder { return &Embedder{} }

// Dimensions returns the vector size.
func (e *Embedder) Dimensions() int { return Dimensions }

// Embed implements domain.Embedder. Same text, same vector; no tokens are reported.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: Vector(text)}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		out.Embeddings[i] = Vector(t)
	}
	return out, nil
}

// HealthCheck always succeeds.
func (e *Embedder) HealthCheck(context.Context) error { return nil }

// Vector computes the L2-normalized hash vector of text.
func Vector(text string) []float32 {
	vec := make([]float64, Dimensions)
	words := strings.Fields(strings.ToLower(text))
	if len(words) > 0 {
		weight := 1 / float64(len(words))
		for _, w := range words {
			for i, r := range []rune(w) {
				idx := (int(r) * (i + 1) * 31) % Dimensions
				vec[idx] += weight
			}
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}

	out := make([]float32, Dimensions)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}
