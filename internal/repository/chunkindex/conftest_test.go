package chunkindex

import (
	"context"

	"github.com/kailas-cloud/unihelp/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	pingErr          error
	hsetMultiFn      func(ctx context.Context, items []db.HashSetItem) error
	delFn            func(ctx context.Context, keys ...string) error
	scanFn           func(ctx context.Context, pattern string) ([]string, error)
	createIndexFn    func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn      func(ctx context.Context, name string) error
	indexExistsFn    func(ctx context.Context, name string) (bool, error)
	searchKNNFn      func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchCountFn    func(ctx context.Context, index, query string) (int, error)
	aggregateCountFn func(ctx context.Context, index, query, field string) ([]db.GroupCount, error)
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return 0, nil
}

func (m *mockStore) AggregateCount(ctx context.Context, index, query, field string) ([]db.GroupCount, error) {
	if m.aggregateCountFn != nil {
		return m.aggregateCountFn(ctx, index, query, field)
	}
	return nil, nil
}

func intPtr(n int) *int { return &n }
