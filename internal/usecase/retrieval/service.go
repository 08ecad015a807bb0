// Package retrieval turns a question into a ranked, floor-filtered evidence set
// and the confidence score derived from it.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
)

const (
	overFetchFactor = 2
	maxFetch        = 20
)

// Result is a ranked evidence list with its confidence.
type Result struct {
	Evidence   []evidence.Evidence
	Confidence float64
}

// Service retrieves evidence. Stateless; safe for concurrent use.
type Service struct {
	embedder Embedder
	index    Index
}

// New creates a retrieval service.
func New(embedder Embedder, index Index) *Service {
	return &Service{embedder: embedder, index: index}
}

// FetchLimit is the number of candidates requested for topK: twice topK, capped at 20.
func FetchLimit(topK int) int {
	return min(overFetchFactor*topK, maxFetch)
}

// Retrieve embeds query, over-fetches candidates, drops those under floor and
// returns at most topK items by descending similarity.
func (s *Service) Retrieve(ctx context.Context, query string, topK int, floor float64) ([]evidence.Evidence, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d: %w", topK, domain.ErrInvalidRequest)
	}
	if floor < 0 || floor > 1 {
		return nil, fmt.Errorf("floor must be in [0, 1], got %v: %w", floor, domain.ErrInvalidRequest)
	}

	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, domain.Unavailable(domain.ErrEmbeddingUnavailable, fmt.Errorf("embed query: %w", err))
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(emb.TotalTokens)

	candidates, err := s.index.Query(ctx, emb.Embedding, FetchLimit(topK))
	if err != nil {
		return nil, domain.Unavailable(domain.ErrIndexUnavailable, fmt.Errorf("query index: %w", err))
	}

	return Rank(candidates, topK, floor), nil
}

// RetrieveAndScore runs Retrieve and scores the result.
func (s *Service) RetrieveAndScore(ctx context.Context, query string, topK int, floor float64) (Result, error) {
	ev, err := s.Retrieve(ctx, query, topK, floor)
	if err != nil {
		return Result{}, err
	}
	return Result{Evidence: ev, Confidence: evidence.Confidence(ev)}, nil
}

// Rank converts candidates to evidence, drops similarity < floor, sorts by
// descending similarity keeping index order on ties, and truncates to topK.
func Rank(candidates []evidence.Candidate, topK int, floor float64) []evidence.Evidence {
	out := make([]evidence.Evidence, 0, len(candidates))
	for _, c := range candidates {
		e := evidence.FromCandidate(c)
		if e.Similarity < floor {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}
