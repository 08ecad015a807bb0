package retrieval

import (
	"context"

	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
)

// Embedder vectorizes the query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index returns nearest chunks by raw vector distance, nearest first.
type Index interface {
	Query(ctx context.Context, vector []float32, limit int) ([]evidence.Candidate, error)
}
