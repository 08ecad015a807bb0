package embcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/unihelp/internal/db"
	"github.com/kailas-cloud/unihelp/internal/domain"
)

// --- Mocks ---

// fixedEmbedder returns the same vector for every text, or err.
type fixedEmbedder struct {
	vec        []float32
	tokens     int
	err        error
	calls      atomic.Int32 // BatchFallback embeds concurrently
	batchCalls int
	batchSizes []int
}

func (f *fixedEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: f.vec, PromptTokens: f.tokens, TotalTokens: f.tokens}, nil
}

// batchingEmbedder adds BatchEmbed on top of fixedEmbedder.
type batchingEmbedder struct {
	fixedEmbedder
	short bool // return one vector fewer than asked
}

func (b *batchingEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	b.batchCalls++
	b.batchSizes = append(b.batchSizes, len(texts))
	if b.err != nil {
		return domain.BatchEmbeddingResult{}, b.err
	}
	n := len(texts)
	if b.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = b.vec
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: b.tokens * len(texts)}, nil
}

type healthyEmbedder struct {
	fixedEmbedder
	err error
}

func (h *healthyEmbedder) HealthCheck(context.Context) error { return h.err }

// memStore is an in-memory KV with recorded TTLs and injectable failures.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

var errProviderDown = errors.New("provider down")

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
}

func newCache(t *testing.T, inner domain.Embedder, opts ...Option) (*CachedEmbedder, *memStore, *prometheus.CounterVec) {
	t.Helper()
	store := newMemStore()
	counter := newCounter()
	return New(inner, store, counter, zap.NewNop(), opts...), store, counter
}
