package unihelp

import (
	"fmt"

	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/domain/chunk"
	"github.com/kailas-cloud/unihelp/internal/domain/document"
	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
	"github.com/kailas-cloud/unihelp/internal/domain/prompt"
	domqa "github.com/kailas-cloud/unihelp/internal/domain/qa"
)

// DefaultRAGConfig returns the defaults the assistant ships with.
func DefaultRAGConfig() RAGConfig {
	return fromPipeline(domain.DefaultPipelineConfig())
}

func fromPipeline(p domain.PipelineConfig) RAGConfig {
	return RAGConfig{
		ChunkSize:           p.ChunkSize,
		ChunkOverlap:        Ptr(p.ChunkOverlap),
		MinUnitLength:       p.MinUnitLength,
		TopK:                p.TopK,
		MaxTopK:             p.MaxTopK,
		SimilarityFloor:     Ptr(p.SimilarityFloor),
		ConfidenceThreshold: Ptr(p.ConfidenceThreshold),
		Temperature:         Ptr(p.Temperature),
		MaxQuestionLength:   p.MaxQuestionLength,
		EmbedConcurrency:    p.EmbedConcurrency,
		DefaultLanguage:     Language(p.DefaultLanguage),
	}
}

// pipelineConfig merges r over the defaults and validates the result.
// ConfidenceThreshold follows the floor unless set.
func (r RAGConfig) pipelineConfig() (domain.PipelineConfig, error) {
	p := domain.DefaultPipelineConfig()
	if r.ChunkSize > 0 {
		p.ChunkSize = r.ChunkSize
	}
	if r.ChunkOverlap != nil {
		p.ChunkOverlap = *r.ChunkOverlap
	}
	if r.MinUnitLength > 0 {
		p.MinUnitLength = r.MinUnitLength
	}
	if r.TopK > 0 {
		p.TopK = r.TopK
	}
	if r.MaxTopK > 0 {
		p.MaxTopK = r.MaxTopK
	}
	if r.SimilarityFloor != nil {
		p.SimilarityFloor = *r.SimilarityFloor
		p.ConfidenceThreshold = *r.SimilarityFloor
	}
	if r.ConfidenceThreshold != nil {
		p.ConfidenceThreshold = *r.ConfidenceThreshold
	}
	if r.Temperature != nil {
		p.Temperature = *r.Temperature
	}
	if r.MaxQuestionLength > 0 {
		p.MaxQuestionLength = r.MaxQuestionLength
	}
	if r.EmbedConcurrency > 0 {
		p.EmbedConcurrency = r.EmbedConcurrency
	}
	if r.DefaultLanguage != "" {
		p.DefaultLanguage = string(r.DefaultLanguage)
	}

	switch {
	case p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize:
		return p, fmt.Errorf("unihelp: chunk overlap must be in [0, %d), got %d", p.ChunkSize, p.ChunkOverlap)
	case p.SimilarityFloor < 0 || p.SimilarityFloor > 1:
		return p, fmt.Errorf("unihelp: similarity floor must be in [0, 1], got %v", p.SimilarityFloor)
	case p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1:
		return p, fmt.Errorf("unihelp: confidence threshold must be in [0, 1], got %v", p.ConfidenceThreshold)
	case p.Temperature < 0 || p.Temperature > 2:
		return p, fmt.Errorf("unihelp: temperature must be in [0, 2], got %v", p.Temperature)
	case p.TopK > p.MaxTopK:
		return p, fmt.Errorf("unihelp: top-k %d exceeds max %d", p.TopK, p.MaxTopK)
	}
	return p, nil
}

func chunksFromDomain(in []chunk.Chunk) []Chunk {
	out := make([]Chunk, len(in))
	for i, c := range in {
		out[i] = Chunk{
			ID:           c.ID,
			Text:         c.Text,
			DocumentName: c.DocumentName,
			Index:        c.Index,
			PageNumber:   c.PageNumber,
			WordCount:    c.WordCount,
		}
	}
	return out
}

func evidenceFromDomain(in []evidence.Evidence) []Evidence {
	out := make([]Evidence, len(in))
	for i, e := range in {
		out[i] = Evidence{
			ChunkID:      e.ChunkID,
			Text:         e.Text,
			DocumentName: e.DocumentName,
			PageNumber:   e.PageNumber,
			Distance:     e.RawDistance,
			Similarity:   e.Similarity,
		}
	}
	return out
}

func evidenceToDomain(in []Evidence) []evidence.Evidence {
	out := make([]evidence.Evidence, len(in))
	for i, e := range in {
		out[i] = evidence.Evidence{
			ChunkID:      e.ChunkID,
			Text:         e.Text,
			DocumentName: e.DocumentName,
			PageNumber:   e.PageNumber,
			RawDistance:  e.Distance,
			Similarity:   e.Similarity,
		}
	}
	return out
}

func promptFromDomain(b prompt.Built) Prompt {
	return Prompt{
		System:   b.System,
		User:     b.User,
		Evidence: evidenceFromDomain(b.EvidenceUsed),
		Language: Language(b.Language),
	}
}

func answerFromDomain(a domqa.Answer) Answer {
	sources := make([]Source, len(a.Sources))
	for i, s := range a.Sources {
		sources[i] = Source{Document: s.Document, Page: s.Page, ChunkID: s.ChunkID, Similarity: s.Similarity}
	}
	return Answer{
		RequestID:  a.RequestID,
		Text:       a.Text,
		Sources:    sources,
		Confidence: a.Confidence,
		Found:      a.Found,
		Outcome:    Outcome(a.Outcome),
		Language:   Language(a.Language),
	}
}

func ingestFromDomain(r document.IngestResult) IngestResult {
	return IngestResult{
		DocumentName:  r.DocumentName,
		ChunksCreated: r.ChunksCreated,
		PageCount:     r.PageCount,
		Duration:      r.Duration,
	}
}

func documentsFromDomain(in []document.Summary) []Document {
	out := make([]Document, len(in))
	for i, d := range in {
		out[i] = Document{Name: d.Name, Chunks: d.Chunks}
	}
	return out
}
