package ingest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/domain/batch"
	"github.com/kailas-cloud/unihelp/internal/domain/chunk"
	"github.com/kailas-cloud/unihelp/internal/domain/document"
	"github.com/kailas-cloud/unihelp/internal/extract"
)

// --- Mocks ---

type mockEmbedder struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text)), 1}, TotalTokens: 2}, nil
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchCalls int
	short      bool
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	n := len(texts)
	if m.short {
		n--
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, n), TotalTokens: 10}
	for i := range n {
		out.Embeddings[i] = []float32{1, 0}
	}
	return out, nil
}

type mockIndex struct {
	chunks    map[string][]chunk.Chunk
	upsertErr error
	deleteErr error
	deleted   []string
}

func newMockIndex() *mockIndex {
	return &mockIndex{chunks: map[string][]chunk.Chunk{}}
}

func (m *mockIndex) Upsert(_ context.Context, chunks []chunk.Chunk, vectors [][]float32) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if len(chunks) != len(vectors) {
		return errors.New("length mismatch")
	}
	for _, c := range chunks {
		m.chunks[c.DocumentName] = append(m.chunks[c.DocumentName], c)
	}
	return nil
}

func (m *mockIndex) DeleteDocument(_ context.Context, name string) (int, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	m.deleted = append(m.deleted, name)
	n := len(m.chunks[name])
	delete(m.chunks, name)
	return n, nil
}

func (m *mockIndex) ListDocuments(_ context.Context) ([]document.Summary, error) {
	var out []document.Summary
	for name, cs := range m.chunks {
		out = append(out, document.Summary{Name: name, Chunks: len(cs)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockIndex) Count(_ context.Context) (int, error) {
	n := 0
	for _, cs := range m.chunks {
		n += len(cs)
	}
	return n, nil
}

type mockFiles struct {
	files   map[string][]byte
	saveErr error
}

func newMockFiles() *mockFiles { return &mockFiles{files: map[string][]byte{}} }

func (m *mockFiles) Save(name string, data []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.files[name] = data
	return nil
}

func (m *mockFiles) Read(name string) ([]byte, error) {
	data, ok := m.files[name]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

func (m *mockFiles) Delete(name string) (bool, error) {
	_, ok := m.files[name]
	delete(m.files, name)
	return ok, nil
}

func (m *mockFiles) List() ([]string, error) {
	names := make([]string, 0, len(m.files))
	for n := range m.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

const fortyWords = "Les inscriptions administratives ouvrent le premier septembre pour tous les étudiants de licence. " +
	"Le dossier complet doit être déposé au bureau de la scolarité avant la fin du mois. " +
	"Les frais sont payables en ligne au guichet du campus central."

func newTestService(emb Embedder) (*Service, *mockIndex, *mockFiles) {
	idx := newMockIndex()
	files := newMockFiles()
	svc := New(extract.New(0), chunk.New(chunk.DefaultConfig()), emb, idx, files, zap.NewNop())
	return svc, idx, files
}

// --- Tests ---

func TestIngestText_SingleChunkWithoutPage(t *testing.T) {
	if n := len(strings.Fields(fortyWords)); n != 40 {
		t.Fatalf("fixture must have 40 words, has %d", n)
	}

	svc, idx, _ := newTestService(&mockEmbedder{})
	res, err := svc.IngestText(context.Background(), "inscriptions.txt", fortyWords, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.ChunksCreated != 1 {
		t.Fatalf("expected 1 chunk, got %d", res.ChunksCreated)
	}
	if res.PageCount != 0 {
		t.Errorf("expected no page count, got %d", res.PageCount)
	}
	got := idx.chunks["inscriptions.txt"]
	if len(got) != 1 || got[0].PageNumber != nil {
		t.Errorf("expected one chunk without page, got %+v", got)
	}
}

func TestIngest_TextFileGetsPageOne(t *testing.T) {
	svc, idx, files := newTestService(&mockEmbedder{})

	res, err := svc.Ingest(context.Background(), "guide.md", []byte(fortyWords))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PageCount != 1 || res.DocumentName != "guide.md" {
		t.Errorf("unexpected result: %+v", res)
	}
	c := idx.chunks["guide.md"]
	if len(c) == 0 || c[0].PageNumber == nil || *c[0].PageNumber != 1 {
		t.Errorf("expected page 1, got %+v", c)
	}
	if string(files.files["guide.md"]) != fortyWords {
		t.Error("expected raw file stored")
	}
}

func TestIngest_ReplacesPreviousChunks(t *testing.T) {
	svc, idx, _ := newTestService(&mockEmbedder{})
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, "guide.txt", []byte(fortyWords)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Ingest(ctx, "guide.txt", []byte(fortyWords)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n, _ := idx.Count(ctx); n != 1 {
		t.Errorf("expected re-ingest to replace chunks, have %d", n)
	}
	if len(idx.deleted) != 2 {
		t.Errorf("expected delete before each upsert, got %v", idx.deleted)
	}
}

func TestIngest_UsesBatchEmbedder(t *testing.T) {
	emb := &mockBatchEmbedder{}
	svc, _, _ := newTestService(emb)

	ctx, u := domain.NewContextWithUsage(context.Background())
	if _, err := svc.Ingest(ctx, "guide.txt", []byte(fortyWords)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.batchCalls != 1 || emb.calls != 0 {
		t.Errorf("expected one batch call, got batch=%d single=%d", emb.batchCalls, emb.calls)
	}
	if n, ok := u.Embedding(); !ok || n != 10 {
		t.Errorf("expected 10 embedding tokens, got %d (%v)", n, ok)
	}
}

func TestIngest_FallbackPreservesOrder(t *testing.T) {
	emb := &mockEmbedder{}
	idx := newMockIndex()
	svc := New(extract.New(0), chunk.New(chunk.Config{Size: 60, Overlap: 10}), emb, idx, nil, zap.NewNop()).
		WithConcurrency(2)

	res, err := svc.IngestText(context.Background(), "long.txt", strings.Repeat(fortyWords+" ", 3), []int{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ChunksCreated < 2 {
		t.Fatalf("expected several chunks, got %d", res.ChunksCreated)
	}
	if emb.calls != res.ChunksCreated {
		t.Errorf("expected one embed call per chunk, got %d", emb.calls)
	}
	for i, c := range idx.chunks["long.txt"] {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
	}
}

func TestIngest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    string
		emb     Embedder
		prepare func(*mockIndex, *mockFiles)
		want    error
	}{
		{"unsupported format", "slides.pptx", fortyWords, &mockEmbedder{}, nil, domain.ErrUnsupportedFormat},
		{"insufficient content", "short.txt", "trop court", &mockEmbedder{}, nil, domain.ErrInsufficientContent},
		{"invalid name", "../etc.txt", fortyWords, &mockEmbedder{}, nil, domain.ErrInvalidRequest},
		{
			"embedding down", "a.txt", fortyWords, &mockEmbedder{err: errors.New("dial tcp")}, nil,
			domain.ErrEmbeddingUnavailable,
		},
		{"short batch", "a.txt", fortyWords, &mockBatchEmbedder{short: true}, nil, domain.ErrEmbeddingUnavailable},
		{
			"index down", "a.txt", fortyWords, &mockEmbedder{},
			func(idx *mockIndex, _ *mockFiles) { idx.deleteErr = errors.New("connection refused") },
			domain.ErrIndexUnavailable,
		},
		{
			"upsert failure", "a.txt", fortyWords, &mockEmbedder{},
			func(idx *mockIndex, _ *mockFiles) { idx.upsertErr = domain.ErrIndexUnavailable },
			domain.ErrIndexUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, idx, files := newTestService(tt.emb)
			if tt.prepare != nil {
				tt.prepare(idx, files)
			}
			_, err := svc.Ingest(context.Background(), tt.file, []byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(files.files) != 0 {
				t.Error("failed ingestion must not store the raw file")
			}
		})
	}
}

func TestIngest_SaveFailure(t *testing.T) {
	svc, _, files := newTestService(&mockEmbedder{})
	files.saveErr = errors.New("disk full")

	if _, err := svc.Ingest(context.Background(), "a.txt", []byte(fortyWords)); err == nil {
		t.Fatal("expected error")
	}
}

func TestDelete(t *testing.T) {
	svc, idx, files := newTestService(&mockEmbedder{})
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, "a.txt", []byte(fortyWords)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := svc.Delete(ctx, "a.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted chunk, got %d", n)
	}
	if len(idx.chunks) != 0 || len(files.files) != 0 {
		t.Error("expected chunks and file removed")
	}

	if _, err := svc.Delete(ctx, "a.txt"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDelete_FileOnly(t *testing.T) {
	svc, _, files := newTestService(&mockEmbedder{})
	files.files["orphan.txt"] = []byte("x")

	n, err := svc.Delete(context.Background(), "orphan.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 chunks, got %d", n)
	}
}

func TestListAndCount(t *testing.T) {
	svc, _, _ := newTestService(&mockEmbedder{})
	ctx := context.Background()
	for _, name := range []string{"b.txt", "a.txt"} {
		if _, err := svc.Ingest(ctx, name, []byte(fortyWords)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	docs, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 || docs[0].Name != "a.txt" || docs[0].Chunks != 1 {
		t.Errorf("unexpected documents: %+v", docs)
	}

	n, err := svc.Count(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 chunks, got %d", n)
	}
}

func TestReindex(t *testing.T) {
	svc, idx, files := newTestService(&mockEmbedder{})
	files.files["good.txt"] = []byte(fortyWords)
	files.files["empty.md"] = []byte("   ")

	results, err := svc.Reindex(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// List() is sorted: empty.md first
	if results[0].Name() != "empty.md" || results[0].Status() != batch.StatusError {
		t.Errorf("expected empty.md to fail, got %+v", results[0])
	}
	if !errors.Is(results[0].Err(), domain.ErrInsufficientContent) {
		t.Errorf("expected insufficient content, got %v", results[0].Err())
	}
	if results[1].Name() != "good.txt" || results[1].Status() != batch.StatusOK || results[1].Chunks() != 1 {
		t.Errorf("expected good.txt indexed, got %+v", results[1])
	}
	if len(idx.chunks["good.txt"]) != 1 {
		t.Error("expected good.txt chunks in index")
	}
}

func TestReindex_NoFileStore(t *testing.T) {
	svc := New(extract.New(0), chunk.New(chunk.DefaultConfig()), &mockEmbedder{}, newMockIndex(), nil, zap.NewNop())
	results, err := svc.Reindex(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
