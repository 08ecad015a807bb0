// Package memory is an in-process vector index with exact cosine search.
// It serves single-node deployments, the SDK and tests.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/domain/chunk"
	"github.com/kailas-cloud/unihelp/internal/domain/document"
	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
)

type entry struct {
	chunk  chunk.Chunk
	vector []float32
	norm   float64
}

// Index keeps chunks grouped by document. Safe for concurrent use.
type Index struct {
	mu   sync.RWMutex
	dims int
	docs map[string][]entry
}

// New creates an empty index. dims <= 0 accepts any dimension.
func New(dims int) *Index {
	return &Index{dims: dims, docs: make(map[string][]entry)}
}

// EnsureIndex is a no-op; the index always exists.
func (x *Index) EnsureIndex(_ context.Context) error { return nil }

// Ping always succeeds.
func (x *Index) Ping(_ context.Context) error { return nil }

// Upsert replaces chunks by (document, index). vectors[i] belongs to chunks[i].
func (x *Index) Upsert(_ context.Context, chunks []chunk.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("upsert: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	for i := range vectors {
		if x.dims > 0 && len(vectors[i]) != x.dims {
			return fmt.Errorf(
				"chunk %s: got %d dimensions, want %d: %w",
				chunks[i].ID, len(vectors[i]), x.dims, domain.ErrVectorDimMismatch,
			)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for i := range chunks {
		c := chunks[i]
		e := entry{chunk: c, vector: vectors[i], norm: norm(vectors[i])}
		list := x.docs[c.DocumentName]
		pos := sort.Search(len(list), func(j int) bool { return list[j].chunk.Index >= c.Index })
		switch {
		case pos < len(list) && list[pos].chunk.Index == c.Index:
			list[pos] = e
		default:
			list = append(list, entry{})
			copy(list[pos+1:], list[pos:])
			list[pos] = e
		}
		x.docs[c.DocumentName] = list
	}
	return nil
}

// Query returns up to limit chunks nearest to vector by cosine distance (1 - cos).
// Ties keep document-name then chunk-index order.
func (x *Index) Query(_ context.Context, vector []float32, limit int) ([]evidence.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	qn := norm(vector)

	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []evidence.Candidate
	for _, name := range x.sortedNames() {
		for i := range x.docs[name] {
			e := &x.docs[name][i]
			if len(e.vector) != len(vector) {
				continue
			}
			out = append(out, evidence.Candidate{
				ChunkID:      e.chunk.ID,
				Text:         e.chunk.Text,
				DocumentName: e.chunk.DocumentName,
				PageNumber:   e.chunk.PageNumber,
				Distance:     1 - cosine(vector, e.vector, qn, e.norm),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteDocument removes a document's chunks and returns how many were removed.
func (x *Index) DeleteDocument(_ context.Context, documentName string) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	n := len(x.docs[documentName])
	delete(x.docs, documentName)
	return n, nil
}

// ListDocuments returns document names with chunk counts, sorted by name.
func (x *Index) ListDocuments(_ context.Context) ([]document.Summary, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	names := x.sortedNames()
	out := make([]document.Summary, 0, len(names))
	for _, name := range names {
		out = append(out, document.Summary{Name: name, Chunks: len(x.docs[name])})
	}
	return out, nil
}

// Count returns the total number of chunks.
func (x *Index) Count(_ context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	n := 0
	for _, list := range x.docs {
		n += len(list)
	}
	return n, nil
}

// Reset removes everything.
func (x *Index) Reset(_ context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.docs = make(map[string][]entry)
	return nil
}

func (x *Index) sortedNames() []string {
	names := make([]string, 0, len(x.docs))
	for name := range x.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func norm(v []float32) float64 {
	var s float64
	for _, f := range v {
		s += float64(f) * float64(f)
	}
	return math.Sqrt(s)
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
