package unihelp

import "time"

// Language is an answer language.
type Language string

// Supported languages.
const (
	French  Language = "fr"
	English Language = "en"
	Arabic  Language = "ar"
)

// Outcome tells how a question ended.
type Outcome string

// Outcome values.
const (
	OutcomeAnswered      Outcome = "answered"
	OutcomeNoEvidence    Outcome = "no_evidence"
	OutcomeLowConfidence Outcome = "low_confidence"
	OutcomeModelRefused  Outcome = "model_refused"
)

// Chunk is a contiguous span of document text sized for embedding.
type Chunk struct {
	ID           string
	Text         string
	DocumentName string
	Index        int
	PageNumber   *int // nil when the source has no page information
	WordCount    int
}

// Evidence is a retrieved chunk that passed the similarity floor.
type Evidence struct {
	ChunkID      string
	Text         string
	DocumentName string
	PageNumber   *int
	Distance     float64
	Similarity   float64
}

// RetrievalResult is ranked evidence plus the confidence derived from it.
type RetrievalResult struct {
	Evidence   []Evidence
	Confidence float64
}

// Prompt is an instruction pair plus the evidence it cites.
type Prompt struct {
	System   string
	User     string
	Evidence []Evidence
	Language Language
}

// Verdict is the outcome of classifying generated text.
type Verdict struct {
	Found bool
}

// AskRequest is a question. Zero TopK and empty Language take defaults.
type AskRequest struct {
	Question string
	TopK     int
	Language Language
}

// Source is a cited chunk.
type Source struct {
	Document   string
	Page       *int
	ChunkID    string
	Similarity float64
}

// Answer is the result of Ask. Refusals are answers with Found=false.
type Answer struct {
	RequestID  string
	Text       string
	Sources    []Source
	Confidence float64
	Found      bool
	Outcome    Outcome
	Language   Language
}

// IngestResult describes an indexed document.
type IngestResult struct {
	DocumentName  string
	ChunksCreated int
	PageCount     int
	Duration      time.Duration
}

// Document is an indexed document with its chunk count.
type Document struct {
	Name   string
	Chunks int
}

// RAGConfig tunes the pipeline. See DefaultRAGConfig for the shipped values.
// Zero and nil fields keep the default. Fields where zero is a meaningful
// setting are pointers; use Ptr to set them.
type RAGConfig struct {
	ChunkSize           int
	ChunkOverlap        *int
	MinUnitLength       int
	TopK                int
	MaxTopK             int
	SimilarityFloor     *float64
	ConfidenceThreshold *float64 // follows SimilarityFloor when nil
	Temperature         *float32
	MaxQuestionLength   int
	EmbedConcurrency    int
	DefaultLanguage     Language
}

// Ptr returns a pointer to v, for the optional RAGConfig fields.
func Ptr[T any](v T) *T { return &v }
