// Package db declares the storage contracts the chunk index and the
// embedding cache are written against. The redis subpackage implements them.
package db

import (
	"context"
	"time"
)

// Store is everything the process needs from one backend connection.
// Consumers declare the narrow slice they use instead of depending on Store.
//
//nolint:interfacebloat // composition root only
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

// Pinger is the health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one chunk hash written by HSetMulti.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore writes, removes and enumerates chunk hashes.
type HashStore interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore backs the question embedding cache.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager owns the FT index lifecycle.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs retrieval and the per-document aggregations.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	AggregateCount(ctx context.Context, index, query, field string) ([]GroupCount, error)
}
