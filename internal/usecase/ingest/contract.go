package ingest

import (
	"context"

	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/domain/chunk"
	"github.com/kailas-cloud/unihelp/internal/domain/document"
	"github.com/kailas-cloud/unihelp/internal/extract"
)

// Extractor turns raw file bytes into text.
type Extractor interface {
	Extract(name string, data []byte) (extract.Result, error)
}

// Embedder vectorizes chunk texts. BatchEmbed is used when the
// implementation also satisfies domain.BatchEmbedder.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index stores chunk vectors grouped by document.
type Index interface {
	Upsert(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error
	DeleteDocument(ctx context.Context, documentName string) (int, error)
	ListDocuments(ctx context.Context) ([]document.Summary, error)
	Count(ctx context.Context) (int, error)
}

// FileStore keeps raw uploads for reindexing. Optional.
type FileStore interface {
	Save(name string, data []byte) error
	Read(name string) ([]byte, error)
	Delete(name string) (bool, error)
	List() ([]string, error)
}
