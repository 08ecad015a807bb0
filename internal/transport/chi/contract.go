package chi

import (
	"context"

	dombatch "github.com/kailas-cloud/unihelp/internal/domain/batch"
	"github.com/kailas-cloud/unihelp/internal/domain/document"
	domqa "github.com/kailas-cloud/unihelp/internal/domain/qa"
	domusage "github.com/kailas-cloud/unihelp/internal/domain/usage"
	batchuc "github.com/kailas-cloud/unihelp/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/unihelp/internal/usecase/health"
	qauc "github.com/kailas-cloud/unihelp/internal/usecase/qa"
	"github.com/kailas-cloud/unihelp/internal/usecase/retrieval"
)

// Asker answers questions.
type Asker interface {
	Ask(ctx context.Context, req qauc.Request) (domqa.Answer, error)
}

// Searcher retrieves and scores evidence without generation.
type Searcher interface {
	RetrieveAndScore(ctx context.Context, query string, topK int, floor float64) (retrieval.Result, error)
}

// Documents manages the indexed corpus.
type Documents interface {
	Ingest(ctx context.Context, name string, data []byte) (document.IngestResult, error)
	Delete(ctx context.Context, name string) (int, error)
	List(ctx context.Context) ([]document.Summary, error)
	Reindex(ctx context.Context) ([]dombatch.Result, error)
}

// Batch runs multi-document operations with per-item results.
type Batch interface {
	Ingest(ctx context.Context, items []batchuc.Item) []dombatch.Result
	Delete(ctx context.Context, names []string) []dombatch.Result
	MaxBatchSize() int
}

// Stats reads and clears the question log.
type Stats interface {
	GetReport(ctx context.Context, limit int) domusage.Report
	Clear(ctx context.Context)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
