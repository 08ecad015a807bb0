package unihelp

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

const (
	driverRedis  = "redis"
	driverMemory = "memory"
)

type clientConfig struct {
	driver   string // "redis" or "memory"
	addrs    []string
	password string

	embedder  Embedder
	generator Generator

	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int

	rag       RAGConfig
	uploadDir string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis stores chunks in a Redis 8 vector index.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemoryIndex keeps chunks in process memory. Nothing survives Close.
func WithMemoryIndex() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverMemory
		c.addrs = nil
	})
}

// WithEmbedder sets the text embedding provider.
// Required for ingestion and retrieval; Chunk and BuildPrompt work without it.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator sets the language model used by Ask.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithVectorDimensions sets the embedding size of the Redis index.
// Defaults to 768 (nomic-embed-text). The memory index accepts any size.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithRAGConfig overrides the pipeline knobs. Zero and nil fields keep defaults;
// New rejects an invalid result.
func WithRAGConfig(cfg RAGConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.rag = cfg
	})
}

// WithUploadDir keeps raw ingested files in dir.
func WithUploadDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.uploadDir = dir
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
