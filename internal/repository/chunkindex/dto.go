package chunkindex

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/kailas-cloud/unihelp/internal/db"
	"github.com/kailas-cloud/unihelp/internal/domain/chunk"
	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
)

// returnFields are loaded for every KNN hit.
var returnFields = []string{fieldChunkID, fieldContent, fieldDocumentName, fieldPageNumber}

// chunkToHash converts a chunk and its vector into HSET fields.
func chunkToHash(c *chunk.Chunk, vec []float32) map[string]string {
	page := noPage
	if c.PageNumber != nil {
		page = *c.PageNumber
	}
	return map[string]string{
		fieldChunkID:      c.ID,
		fieldContent:      c.Text,
		fieldDocumentName: c.DocumentName,
		fieldDocID:        docID(c.DocumentName),
		fieldPageNumber:   strconv.Itoa(page),
		fieldChunkIndex:   strconv.Itoa(c.Index),
		fieldWordCount:    strconv.Itoa(c.WordCount),
		fieldVector:       vectorToBytes(vec),
	}
}

// candidateFromEntry hydrates a KNN hit. Missing or negative pages map to nil.
func candidateFromEntry(e *db.SearchEntry) evidence.Candidate {
	c := evidence.Candidate{
		ChunkID:      e.Fields[fieldChunkID],
		Text:         e.Fields[fieldContent],
		DocumentName: e.Fields[fieldDocumentName],
		Distance:     e.Score,
	}
	if c.ChunkID == "" {
		c.ChunkID = e.Key
	}
	if p, err := strconv.Atoi(e.Fields[fieldPageNumber]); err == nil && p > 0 {
		c.PageNumber = &p
	}
	return c
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func itoa(n int) string { return strconv.Itoa(n) }
