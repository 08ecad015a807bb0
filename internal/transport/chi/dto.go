package chi

import (
	"errors"
	"time"

	"github.com/kailas-cloud/unihelp/internal/domain"
	dombatch "github.com/kailas-cloud/unihelp/internal/domain/batch"
	"github.com/kailas-cloud/unihelp/internal/domain/document"
	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
	domqa "github.com/kailas-cloud/unihelp/internal/domain/qa"
	domusage "github.com/kailas-cloud/unihelp/internal/domain/usage"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.Code.
const (
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeUnauthorized        ErrorCode = "unauthorized"
	ErrorCodeNotFound            ErrorCode = "not_found"
	ErrorCodeUnsupportedFormat   ErrorCode = "unsupported_format"
	ErrorCodeInsufficientContent ErrorCode = "insufficient_content"
	ErrorCodeRateLimited         ErrorCode = "rate_limited"
	ErrorCodeServiceUnavailable  ErrorCode = "service_unavailable"
	ErrorCodeInternal            ErrorCode = "internal_error"
	ErrorCodeCanceled            ErrorCode = "request_canceled"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Kind    string    `json:"kind,omitempty"`
}

// AskRequest is the body of POST /api/v1/ask.
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"topK,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

// Source is a cited chunk.
type Source struct {
	Document   string  `json:"document"`
	Page       *int    `json:"page,omitempty"`
	ChunkID    string  `json:"chunkId"`
	Similarity float64 `json:"similarity"`
}

// AskResponse is the answer to a question.
type AskResponse struct {
	RequestID  string   `json:"requestId"`
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
	Found      bool     `json:"found"`
	Outcome    string   `json:"outcome"`
	Lang       string   `json:"lang"`
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query string   `json:"query"`
	TopK  int      `json:"topK,omitempty"`
	Floor *float64 `json:"floor,omitempty"`
}

// EvidenceItem is a ranked chunk returned by search.
type EvidenceItem struct {
	ChunkID      string  `json:"chunkId"`
	DocumentName string  `json:"documentName"`
	Page         *int    `json:"page,omitempty"`
	Text         string  `json:"text"`
	Similarity   float64 `json:"similarity"`
	Distance     float64 `json:"distance"`
}

// SearchResponse is ranked evidence with its confidence.
type SearchResponse struct {
	Evidence   []EvidenceItem `json:"evidence"`
	Confidence float64        `json:"confidence"`
}

// IngestResponse describes an ingested document.
type IngestResponse struct {
	DocumentName  string `json:"documentName"`
	ChunksCreated int    `json:"chunksCreated"`
	PageCount     int    `json:"pageCount"`
	DurationMs    int64  `json:"durationMs"`
}

// DocumentItem is an indexed document.
type DocumentItem struct {
	Name   string `json:"name"`
	Chunks int    `json:"chunks"`
}

// DocumentListResponse is the indexed corpus.
type DocumentListResponse struct {
	Count       int            `json:"count"`
	TotalChunks int            `json:"totalChunks"`
	Documents   []DocumentItem `json:"documents"`
	HasMore     bool           `json:"hasMore"`
}

// BatchDeleteRequest is the body of DELETE /api/v1/documents/batch.
type BatchDeleteRequest struct {
	Names []string `json:"names"`
}

// DeleteResponse confirms a deletion.
type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	Name    string `json:"name"`
	Chunks  int    `json:"chunks"`
}

// BatchItem is the outcome for one document of a multi-document operation.
type BatchItem struct {
	DocumentName string         `json:"documentName"`
	Status       string         `json:"status"`
	Chunks       int            `json:"chunks,omitempty"`
	Error        *ErrorResponse `json:"error,omitempty"`
}

// BatchResponse summarizes a reindex, batch upload or batch delete.
type BatchResponse struct {
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Results   []BatchItem `json:"results"`
}

// QuestionStat is a frequent question.
type QuestionStat struct {
	Question      string  `json:"question"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avgConfidence"`
}

// DocumentStat is a frequently cited document.
type DocumentStat struct {
	Document string `json:"document"`
	Hits     int    `json:"hits"`
}

// RecentQuestion is an entry of the question log.
type RecentQuestion struct {
	RequestID       string    `json:"requestId"`
	Question        string    `json:"question"`
	Found           bool      `json:"found"`
	Confidence      float64   `json:"confidence"`
	Outcome         string    `json:"outcome"`
	DurationMs      int64     `json:"durationMs"`
	SourceDocuments []string  `json:"sourceDocuments"`
	Timestamp       time.Time `json:"timestamp"`
}

// StatsResponse is the usage report.
type StatsResponse struct {
	TotalQuestions  int              `json:"totalQuestions"`
	FoundCount      int              `json:"foundCount"`
	NotFoundCount   int              `json:"notFoundCount"`
	FoundRate       float64          `json:"foundRate"`
	AvgConfidence   float64          `json:"avgConfidence"`
	AvgDurationMs   int64            `json:"avgDurationMs"`
	Outcomes        map[string]int   `json:"outcomes"`
	TopQuestions    []QuestionStat   `json:"topQuestions"`
	TopDocuments    []DocumentStat   `json:"topDocuments"`
	RecentQuestions []RecentQuestion `json:"recentQuestions"`
}

// HealthResponse is the aggregated component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func answerToResponse(a domqa.Answer) AskResponse {
	sources := make([]Source, len(a.Sources))
	for i, s := range a.Sources {
		sources[i] = Source{Document: s.Document, Page: s.Page, ChunkID: s.ChunkID, Similarity: s.Similarity}
	}
	return AskResponse{
		RequestID:  a.RequestID,
		Answer:     a.Text,
		Sources:    sources,
		Confidence: a.Confidence,
		Found:      a.Found,
		Outcome:    string(a.Outcome),
		Lang:       string(a.Language),
	}
}

func evidenceToResponse(ev []evidence.Evidence, confidence float64) SearchResponse {
	items := make([]EvidenceItem, len(ev))
	for i, e := range ev {
		items[i] = EvidenceItem{
			ChunkID:      e.ChunkID,
			DocumentName: e.DocumentName,
			Page:         e.PageNumber,
			Text:         e.Text,
			Similarity:   evidence.Round(e.Similarity, 3),
			Distance:     e.RawDistance,
		}
	}
	return SearchResponse{Evidence: items, Confidence: confidence}
}

func ingestToResponse(r document.IngestResult) IngestResponse {
	return IngestResponse{
		DocumentName:  r.DocumentName,
		ChunksCreated: r.ChunksCreated,
		PageCount:     r.PageCount,
		DurationMs:    r.Duration.Milliseconds(),
	}
}

func documentsToResponse(docs []document.Summary, limit int) DocumentListResponse {
	resp := DocumentListResponse{Count: len(docs), Documents: []DocumentItem{}}
	for _, d := range docs {
		resp.TotalChunks += d.Chunks
	}
	page := docs
	if limit > 0 && len(page) > limit {
		page = page[:limit]
		resp.HasMore = true
	}
	for _, d := range page {
		resp.Documents = append(resp.Documents, DocumentItem{Name: d.Name, Chunks: d.Chunks})
	}
	return resp
}

func batchToResponse(results []dombatch.Result) BatchResponse {
	ok, failed := dombatch.Summarize(results)
	resp := BatchResponse{Succeeded: ok, Failed: failed, Results: make([]BatchItem, len(results))}
	for i, r := range results {
		item := BatchItem{DocumentName: r.Name(), Status: string(r.Status()), Chunks: r.Chunks()}
		if r.Err() != nil {
			code, _ := classify(r.Err())
			item.Error = &ErrorResponse{
				Code:    code,
				Message: safeDomainMessage(r.Err()),
				Kind:    failureKind(r.Err()),
			}
		}
		resp.Results[i] = item
	}
	return resp
}

func reportToResponse(r domusage.Report) StatsResponse {
	resp := StatsResponse{
		TotalQuestions:  r.TotalQuestions,
		FoundCount:      r.FoundCount,
		NotFoundCount:   r.NotFoundCount,
		FoundRate:       r.FoundRate,
		AvgConfidence:   r.AvgConfidence,
		AvgDurationMs:   r.AvgDurationMs,
		Outcomes:        r.Outcomes,
		TopQuestions:    make([]QuestionStat, len(r.TopQuestions)),
		TopDocuments:    make([]DocumentStat, len(r.TopDocuments)),
		RecentQuestions: make([]RecentQuestion, len(r.RecentQuestions)),
	}
	for i, q := range r.TopQuestions {
		resp.TopQuestions[i] = QuestionStat{Question: q.Question, Count: q.Count, AvgConfidence: q.AvgConfidence}
	}
	for i, d := range r.TopDocuments {
		resp.TopDocuments[i] = DocumentStat{Document: d.Document, Hits: d.Hits}
	}
	for i, rec := range r.RecentQuestions {
		docs := rec.Documents
		if docs == nil {
			docs = []string{}
		}
		resp.RecentQuestions[i] = RecentQuestion{
			RequestID:       rec.RequestID,
			Question:        rec.Question,
			Found:           rec.Found,
			Confidence:      rec.Confidence,
			Outcome:         rec.Outcome,
			DurationMs:      rec.Duration.Milliseconds(),
			SourceDocuments: docs,
			Timestamp:       rec.At.UTC(),
		}
	}
	return resp
}

// failureKind returns the collaborator failure kind, or "" for request errors.
func failureKind(err error) string {
	for _, s := range []error{
		domain.ErrEmbeddingUnavailable, domain.ErrIndexUnavailable,
		domain.ErrGenerationUnavailable, domain.ErrInsufficientContent,
	} {
		if errors.Is(err, s) {
			return string(domain.FailureKindOf(err))
		}
	}
	return ""
}
