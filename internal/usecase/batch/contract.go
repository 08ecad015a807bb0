package batch

import (
	"context"

	"github.com/kailas-cloud/unihelp/internal/domain/document"
)

// Ingester indexes one document.
type Ingester interface {
	Ingest(ctx context.Context, name string, data []byte) (document.IngestResult, error)
}

// Deleter removes one document and returns the number of chunks removed.
type Deleter interface {
	Delete(ctx context.Context, name string) (int, error)
}
