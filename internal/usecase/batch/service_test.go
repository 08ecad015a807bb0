package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unihelp/internal/domain"
	dombatch "github.com/kailas-cloud/unihelp/internal/domain/batch"
	"github.com/kailas-cloud/unihelp/internal/domain/document"
)

// --- Mocks ---

type mockIngester struct {
	errs      map[string]error
	callCount int
}

func (m *mockIngester) Ingest(_ context.Context, name string, _ []byte) (document.IngestResult, error) {
	m.callCount++
	if err := m.errs[name]; err != nil {
		return document.IngestResult{}, err
	}
	return document.IngestResult{DocumentName: name, ChunksCreated: 3}, nil
}

type mockDeleter struct {
	failOn    string
	callCount int
}

func (m *mockDeleter) Delete(_ context.Context, name string) (int, error) {
	m.callCount++
	if name == m.failOn {
		return 0, fmt.Errorf("%q: %w", name, domain.ErrDocumentNotFound)
	}
	return 2, nil
}

func items(names ...string) []Item {
	out := make([]Item, len(names))
	for i, n := range names {
		out[i] = Item{Name: n, Data: []byte("content of " + n)}
	}
	return out
}

// --- Tests ---

func TestIngest_AllOK(t *testing.T) {
	ing := &mockIngester{}
	svc := New(ing, &mockDeleter{}, zap.NewNop())

	results := svc.Ingest(context.Background(), items("a.pdf", "b.txt", "c.md"))

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []string{"a.pdf", "b.txt", "c.md"} {
		r := results[i]
		if r.Name() != want || r.Status() != dombatch.StatusOK || r.Chunks() != 3 {
			t.Errorf("result[%d] = %s/%s/%d", i, r.Name(), r.Status(), r.Chunks())
		}
	}
}

func TestIngest_PerItemFailure(t *testing.T) {
	ing := &mockIngester{errs: map[string]error{
		"b.txt": fmt.Errorf("ingest b.txt: %w", domain.ErrInsufficientContent),
	}}
	svc := New(ing, &mockDeleter{}, zap.NewNop())

	results := svc.Ingest(context.Background(), items("a.pdf", "b.txt", "c.md"))

	if ing.callCount != 3 {
		t.Errorf("expected every item attempted, got %d calls", ing.callCount)
	}
	if results[1].Status() != dombatch.StatusError || !errors.Is(results[1].Err(), domain.ErrInsufficientContent) {
		t.Errorf("unexpected result[1]: %s %v", results[1].Status(), results[1].Err())
	}
	if results[2].Status() != dombatch.StatusOK {
		t.Errorf("later items should still run, got %s", results[2].Status())
	}
}

func TestIngest_CascadesOnUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"embedding", domain.Unavailable(domain.ErrEmbeddingUnavailable, errors.New("503"))},
		{"index", domain.Unavailable(domain.ErrIndexUnavailable, errors.New("conn refused"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := &mockIngester{errs: map[string]error{"b.txt": tt.err}}
			svc := New(ing, &mockDeleter{}, zap.NewNop())

			results := svc.Ingest(context.Background(), items("a.pdf", "b.txt", "c.md", "d.md"))

			if ing.callCount != 2 {
				t.Errorf("expected 2 calls before abort, got %d", ing.callCount)
			}
			if results[0].Status() != dombatch.StatusOK {
				t.Errorf("first item should succeed")
			}
			for _, r := range results[1:] {
				if r.Status() != dombatch.StatusError || !errors.Is(r.Err(), tt.err) {
					t.Errorf("%s: expected cascaded error, got %s %v", r.Name(), r.Status(), r.Err())
				}
			}
		})
	}
}

func TestIngest_TooLarge(t *testing.T) {
	ing := &mockIngester{}
	svc := New(ing, &mockDeleter{}, zap.NewNop()).WithMaxBatchSize(2)

	results := svc.Ingest(context.Background(), items("a", "b", "c"))

	if ing.callCount != 0 {
		t.Errorf("expected no ingestion, got %d calls", ing.callCount)
	}
	for _, r := range results {
		if !errors.Is(r.Err(), domain.ErrInvalidRequest) {
			t.Errorf("%s: expected ErrInvalidRequest, got %v", r.Name(), r.Err())
		}
	}
}

func TestIngest_CanceledContext(t *testing.T) {
	ing := &mockIngester{}
	svc := New(ing, &mockDeleter{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := svc.Ingest(ctx, items("a", "b"))

	if ing.callCount != 0 {
		t.Errorf("expected no calls, got %d", ing.callCount)
	}
	for _, r := range results {
		if !errors.Is(r.Err(), context.Canceled) {
			t.Errorf("%s: expected context.Canceled, got %v", r.Name(), r.Err())
		}
	}
}

func TestDelete_Batch(t *testing.T) {
	del := &mockDeleter{failOn: "missing.pdf"}
	svc := New(&mockIngester{}, del, zap.NewNop())

	results := svc.Delete(context.Background(), []string{"a.pdf", "missing.pdf", "c.md"})

	if del.callCount != 3 {
		t.Errorf("expected 3 calls, got %d", del.callCount)
	}
	if results[0].Status() != dombatch.StatusOK || results[0].Chunks() != 2 {
		t.Errorf("unexpected result[0]: %s %d", results[0].Status(), results[0].Chunks())
	}
	if !errors.Is(results[1].Err(), domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", results[1].Err())
	}
	if ok, failed := dombatch.Summarize(results); ok != 2 || failed != 1 {
		t.Errorf("summary: ok=%d failed=%d", ok, failed)
	}
}

func TestDelete_TooLarge(t *testing.T) {
	del := &mockDeleter{}
	svc := New(&mockIngester{}, del, zap.NewNop()).WithMaxBatchSize(1)

	results := svc.Delete(context.Background(), []string{"a", "b"})

	if del.callCount != 0 {
		t.Errorf("expected no calls, got %d", del.callCount)
	}
	if len(results) != 2 || results[0].Status() != dombatch.StatusError {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestWithMaxBatchSize_IgnoresNonPositive(t *testing.T) {
	svc := New(&mockIngester{}, &mockDeleter{}, zap.NewNop()).WithMaxBatchSize(0)
	if svc.MaxBatchSize() != MaxBatchSize {
		t.Errorf("expected default %d, got %d", MaxBatchSize, svc.MaxBatchSize())
	}
}
