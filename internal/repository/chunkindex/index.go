package chunkindex

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/kailas-cloud/unihelp/internal/db"
	"github.com/kailas-cloud/unihelp/internal/domain"
)

// Hash field names.
const (
	fieldChunkID      = "chunkId"
	fieldContent      = "content"
	fieldDocumentName = "documentName"
	fieldDocID        = "docid"
	fieldPageNumber   = "pageNumber"
	fieldChunkIndex   = "chunkIndex"
	fieldWordCount    = "wordCount"
	fieldVector       = "vector"
)

// noPage marks a chunk without page information; NUMERIC fields cannot be empty.
const noPage = -1

// Algorithm selects the vector index algorithm.
type Algorithm string

// Supported algorithms.
const (
	AlgorithmHNSW Algorithm = "hnsw"
	AlgorithmFlat Algorithm = "flat"
)

// Config describes the chunk index layout.
type Config struct {
	Name        string // FT index name, defaults to "unihelp:chunks:idx"
	Dimensions  int
	Algorithm   Algorithm
	M           int
	EFConstruct int
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = domain.KeyPrefix + "chunks:idx"
	}
	if c.Algorithm == "" {
		c.Algorithm = AlgorithmHNSW
	}
	if c.M <= 0 {
		c.M = 16
	}
	if c.EFConstruct <= 0 {
		c.EFConstruct = 200
	}
	return c
}

var chunkPrefix = domain.KeyPrefix + "chunk:"

// docID derives a key-safe identifier for a document name.
func docID(documentName string) string {
	h := sha256.Sum256([]byte(documentName))
	return hex.EncodeToString(h[:12])
}

func chunkKey(documentName string, index int) string {
	return chunkPrefix + docID(documentName) + ":" + itoa(index)
}

func documentPattern(documentName string) string {
	return chunkPrefix + docID(documentName) + ":*"
}

// buildIndex creates the FT definition for chunk hashes.
// Vectors use COSINE so the engine reports 1 - cos as distance.
func buildIndex(cfg Config) (*db.IndexDefinition, error) {
	b := db.NewIndex(cfg.Name).
		Prefix(chunkPrefix).
		CaseSensitiveTag(fieldDocID).
		Numeric(fieldPageNumber).
		Numeric(fieldChunkIndex).
		Text(fieldContent)

	switch cfg.Algorithm {
	case AlgorithmFlat:
		b = b.VectorFlat(fieldVector, cfg.Dimensions, db.DistanceCosine, 0)
	default:
		b = b.VectorHNSW(fieldVector, cfg.Dimensions, db.DistanceCosine, cfg.M, cfg.EFConstruct)
	}
	return b.Build()
}
