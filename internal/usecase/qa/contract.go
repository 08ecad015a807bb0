package qa

import (
	"context"

	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
	domusage "github.com/kailas-cloud/unihelp/internal/domain/usage"
)

// Retriever returns ranked evidence at or above floor, at most topK items.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, floor float64) ([]evidence.Evidence, error)
}

// Generator produces a single non-streamed completion.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error)
}

// UsageRecorder stores terminal question outcomes.
type UsageRecorder interface {
	Record(ctx context.Context, r domusage.Record)
}
