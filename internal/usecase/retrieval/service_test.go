package retrieval

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
)

// --- Mocks ---

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

type mockIndex struct {
	candidates []evidence.Candidate
	err        error
	gotLimit   int
}

func (m *mockIndex) Query(_ context.Context, _ []float32, limit int) ([]evidence.Candidate, error) {
	m.gotLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if len(m.candidates) > limit {
		return m.candidates[:limit], nil
	}
	return m.candidates, nil
}

func candidates(sims ...float64) []evidence.Candidate {
	out := make([]evidence.Candidate, len(sims))
	for i, s := range sims {
		out[i] = evidence.Candidate{ChunkID: string(rune('a' + i)), Text: "t", DocumentName: "doc", Distance: 1 - s}
	}
	return out
}

func newTestService(idx *mockIndex) (*Service, *mockEmbedder) {
	emb := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 7}}
	return New(emb, idx), emb
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// --- Tests ---

func TestRetrieveAndScore_FloorAndConfidence(t *testing.T) {
	idx := &mockIndex{candidates: candidates(0.9, 0.5, 0.3, 0.2, 0.1)}
	svc, _ := newTestService(idx)

	res, err := svc.RetrieveAndScore(context.Background(), "question", 5, 0.35)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Evidence) != 2 {
		t.Fatalf("expected 2 evidence items, got %d", len(res.Evidence))
	}
	if !approx(res.Evidence[0].Similarity, 0.9) || !approx(res.Evidence[1].Similarity, 0.5) {
		t.Errorf("unexpected similarities %v, %v", res.Evidence[0].Similarity, res.Evidence[1].Similarity)
	}
	if res.Confidence != 0.84 {
		t.Errorf("expected confidence 0.84, got %v", res.Confidence)
	}
	if idx.gotLimit != 10 {
		t.Errorf("expected over-fetch of 10, got %d", idx.gotLimit)
	}
}

func TestRetrieve_OverFetchCap(t *testing.T) {
	idx := &mockIndex{}
	svc, _ := newTestService(idx)

	if _, err := svc.Retrieve(context.Background(), "q", 15, 0.35); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.gotLimit != 20 {
		t.Errorf("expected capped fetch of 20, got %d", idx.gotLimit)
	}
}

func TestRetrieve_TruncatesToTopK(t *testing.T) {
	idx := &mockIndex{candidates: candidates(0.9, 0.8, 0.7, 0.6)}
	svc, _ := newTestService(idx)

	ev, err := svc.Retrieve(context.Background(), "q", 2, 0.1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ev) != 2 {
		t.Fatalf("expected 2 items, got %d", len(ev))
	}
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	svc, _ := newTestService(&mockIndex{})

	res, err := svc.RetrieveAndScore(context.Background(), "q", 5, 0.35)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Evidence) != 0 || res.Confidence != 0 {
		t.Errorf("expected empty evidence and zero confidence, got %+v", res)
	}
}

func TestRetrieve_InvalidTopK(t *testing.T) {
	svc, emb := newTestService(&mockIndex{})

	_, err := svc.Retrieve(context.Background(), "q", 0, 0.35)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if emb.calls != 0 {
		t.Error("embedder must not be called for invalid topK")
	}
}

func TestRetrieve_InvalidFloor(t *testing.T) {
	tests := []struct {
		name  string
		floor float64
	}{
		{"negative", -1},
		{"above one", 7.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// distances 1.6 and 1.9 would score negative if let through
			idx := &mockIndex{candidates: []evidence.Candidate{{ChunkID: "a", Distance: 1.6}, {ChunkID: "b", Distance: 1.9}}}
			svc, emb := newTestService(idx)

			_, err := svc.RetrieveAndScore(context.Background(), "q", 5, tt.floor)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			if emb.calls != 0 {
				t.Error("embedder must not be called for an invalid floor")
			}
		})
	}
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	idx := &mockIndex{}
	emb := &mockEmbedder{err: errors.New("provider down")}
	svc := New(emb, idx)

	_, err := svc.Retrieve(context.Background(), "q", 5, 0.35)
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestRetrieve_IndexFailure(t *testing.T) {
	svc, _ := newTestService(&mockIndex{err: errors.New("connection refused")})

	_, err := svc.Retrieve(context.Background(), "q", 5, 0.35)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestRetrieve_RecordsEmbeddingTokens(t *testing.T) {
	svc, _ := newTestService(&mockIndex{})
	ctx, usage := domain.NewContextWithUsage(context.Background())

	if _, err := svc.Retrieve(ctx, "q", 5, 0.35); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tokens, called := usage.Embedding()
	if !called || tokens != 7 {
		t.Errorf("expected 7 embedding tokens, got %d (called=%v)", tokens, called)
	}
}

func TestRank_StableOnTies(t *testing.T) {
	c := candidates(0.6, 0.8, 0.6, 0.8)
	got := Rank(c, 4, 0.35)
	want := []string{"b", "d", "a", "c"}
	for i, id := range want {
		if got[i].ChunkID != id {
			t.Fatalf("position %d: got %s, want %s (order %v)", i, got[i].ChunkID, id, got)
		}
	}
}

func TestRank_Properties(t *testing.T) {
	c := candidates(0.2, 0.95, 0.4, 0.36, 0.34, 0.7, 1.1)
	for topK := 1; topK <= 8; topK++ {
		got := Rank(c, topK, 0.35)
		if len(got) > topK {
			t.Fatalf("topK=%d: got %d items", topK, len(got))
		}
		for i, e := range got {
			if e.Similarity < 0.35 {
				t.Errorf("topK=%d: item below floor %v", topK, e.Similarity)
			}
			if i > 0 && got[i-1].Similarity < e.Similarity {
				t.Errorf("topK=%d: not sorted at %d", topK, i)
			}
		}
	}
}

func TestRank_NoClamp(t *testing.T) {
	// distance -0.1 reports similarity 1.1; not clamped
	got := Rank([]evidence.Candidate{{ChunkID: "x", Distance: -0.1}}, 1, 0.35)
	if len(got) != 1 || !approx(got[0].Similarity, 1.1) {
		t.Fatalf("expected unclamped similarity 1.1, got %+v", got)
	}
}

func TestFetchLimit(t *testing.T) {
	tests := []struct{ topK, want int }{{1, 2}, {5, 10}, {10, 20}, {15, 20}}
	for _, tt := range tests {
		if got := FetchLimit(tt.topK); got != tt.want {
			t.Errorf("FetchLimit(%d) = %d, want %d", tt.topK, got, tt.want)
		}
	}
}
