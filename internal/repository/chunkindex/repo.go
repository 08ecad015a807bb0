// Package chunkindex stores document chunks and their vectors in a Redis FT index.
package chunkindex

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/unihelp/internal/db"
	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/domain/chunk"
	"github.com/kailas-cloud/unihelp/internal/domain/document"
	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
)

// store is the consumer interface for the chunk index (ISP).
type store interface {
	Ping(ctx context.Context) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	AggregateCount(ctx context.Context, index, query, field string) ([]db.GroupCount, error)
}

// Repo implements the vector index over Redis hashes.
type Repo struct {
	store store
	cfg   Config
}

// New creates a chunk index repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg.withDefaults()}
}

// IndexName returns the FT index name.
func (r *Repo) IndexName() string { return r.cfg.Name }

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.Name)
	if err != nil {
		return domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("check index %s: %w", r.cfg.Name, err))
	}
	if exists {
		return nil
	}

	def, err := buildIndex(r.cfg)
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("create index %s: %w", r.cfg.Name, err))
	}
	return nil
}

// Upsert writes chunks with their vectors. vectors[i] belongs to chunks[i].
func (r *Repo) Upsert(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("upsert: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(chunks))
	for i := range chunks {
		if r.cfg.Dimensions > 0 && len(vectors[i]) != r.cfg.Dimensions {
			return fmt.Errorf(
				"chunk %s: got %d dimensions, want %d: %w",
				chunks[i].ID, len(vectors[i]), r.cfg.Dimensions, domain.ErrVectorDimMismatch,
			)
		}
		items[i] = db.HashSetItem{
			Key:    chunkKey(chunks[i].DocumentName, chunks[i].Index),
			Fields: chunkToHash(&chunks[i], vectors[i]),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("hset %d chunks: %w", len(items), err))
	}
	return nil
}

// Query returns up to limit nearest chunks, nearest first.
// A missing index yields no candidates rather than an error.
func (r *Repo) Query(ctx context.Context, vector []float32, limit int) ([]evidence.Candidate, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.Name,
		VectorField:  fieldVector,
		Vector:       vector,
		K:            limit,
		ReturnFields: returnFields,
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("search knn: %w", err))
	}

	out := make([]evidence.Candidate, 0, len(res.Entries))
	for i := range res.Entries {
		out = append(out, candidateFromEntry(&res.Entries[i]))
	}
	return out, nil
}

// DeleteDocument removes every chunk of a document. Returns the number of chunks removed.
func (r *Repo) DeleteDocument(ctx context.Context, documentName string) (int, error) {
	keys, err := r.store.Scan(ctx, documentPattern(documentName))
	if err != nil {
		return 0, domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("scan %s: %w", documentName, err))
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return 0, domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("del %s: %w", documentName, err))
	}
	return len(keys), nil
}

// ListDocuments returns distinct document names with chunk counts, sorted by name.
func (r *Repo) ListDocuments(ctx context.Context) ([]document.Summary, error) {
	groups, err := r.store.AggregateCount(ctx, r.cfg.Name, "*", fieldDocumentName)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("aggregate documents: %w", err))
	}

	out := make([]document.Summary, 0, len(groups))
	for _, g := range groups {
		out = append(out, document.Summary{Name: g.Value, Chunks: g.Count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Count returns the total number of indexed chunks.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.cfg.Name, "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("count chunks: %w", err))
	}
	return n, nil
}

// Reset drops the FT index and every chunk hash, then recreates the index.
func (r *Repo) Reset(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.cfg.Name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("drop index: %w", err))
	}
	keys, err := r.store.Scan(ctx, chunkPrefix+"*")
	if err != nil {
		return domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("scan chunks: %w", err))
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("del chunks: %w", err))
	}
	return r.EnsureIndex(ctx)
}

// Ping checks that the backing store is reachable.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return domain.Unavailable(domain.ErrIndexUnavailable, err)
	}
	return nil
}
