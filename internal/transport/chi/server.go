// Package chi exposes the assistant over HTTP with a chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/metrics"
	batchuc "github.com/kailas-cloud/unihelp/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/unihelp/internal/usecase/health"
	qauc "github.com/kailas-cloud/unihelp/internal/usecase/qa"
)

const (
	defaultStatsLimit = 10
	maxListLimit      = 1000
)

// Options configures the HTTP layer.
type Options struct {
	AdminKeys      []string
	AskPerMinute   float64 // 0 disables the /ask limiter
	AskBurst       int
	MaxUploadBytes int64
	DefaultTopK    int
	MaxTopK        int
	Floor          float64
}

// Server holds the HTTP handlers.
type Server struct {
	qa        Asker
	search    Searcher
	documents Documents
	batch     Batch
	stats     Stats
	health    HealthChecker
	opts      Options
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	qa Asker, search Searcher, documents Documents, batch Batch, stats Stats, health HealthChecker,
	opts Options, logger *zap.Logger,
) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	return &Server{
		qa:        qa,
		search:    search,
		documents: documents,
		batch:     batch,
		stats:     stats,
		health:    health,
		opts:      opts,
		logger:    logger,
	}
}

// Routes builds the router with the full middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(metrics.Middleware("/metrics", "/health"))

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(RateLimitMiddleware(s.opts.AskPerMinute, s.opts.AskBurst)).Post("/ask", s.Ask)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuthMiddleware(s.opts.AdminKeys))

			r.Post("/search", s.Search)
			r.Get("/stats", s.GetStats)
			r.Delete("/stats", s.ClearStats)

			r.Get("/documents", s.ListDocuments)
			r.Post("/documents", s.UploadDocument)
			r.Post("/documents/reindex", s.Reindex)
			r.Post("/documents/batch", s.BatchUpload)
			r.Delete("/documents/batch", s.BatchDelete)
			r.Delete("/documents/{name}", s.DeleteDocument)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})
	return r
}

// Ask handles POST /api/v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, usage := requestUsage(r)
	answer, err := s.qa.Ask(ctx, qauc.Request{
		RequestID: chiMiddleware.GetReqID(r.Context()),
		Question:  req.Question,
		TopK:      req.TopK,
		Language:  req.Lang,
	})
	setUsageHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, answerToResponse(answer))
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "query is required")
		return
	}

	topK := req.TopK
	if topK == 0 {
		topK = s.opts.DefaultTopK
	}
	if topK < 1 || (s.opts.MaxTopK > 0 && topK > s.opts.MaxTopK) {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
			fmt.Sprintf("topK must be between 1 and %d", s.opts.MaxTopK))
		return
	}
	floor := s.opts.Floor
	if req.Floor != nil {
		floor = *req.Floor
	}
	if floor < 0 || floor > 1 {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "floor must be between 0 and 1")
		return
	}

	ctx, usage := requestUsage(r)
	res, err := s.search.RetrieveAndScore(ctx, req.Query, topK, floor)
	setUsageHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, evidenceToResponse(res.Evidence, res.Confidence))
}

// UploadDocument handles POST /api/v1/documents (multipart field "file").
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp files only

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Size > s.opts.MaxUploadBytes {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
			fmt.Sprintf("file exceeds %d bytes", s.opts.MaxUploadBytes))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "read upload: "+err.Error())
		return
	}

	ctx, usage := requestUsage(r)
	res, err := s.documents.Ingest(ctx, header.Filename, data)
	setUsageHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/documents/"+url.PathEscape(res.DocumentName))
	writeJSON(w, http.StatusCreated, ingestToResponse(res))
}

// ListDocuments handles GET /api/v1/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit, ok := bindLimit(w, r, 0)
	if !ok {
		return
	}

	docs, err := s.documents.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, documentsToResponse(docs, limit))
}

// DeleteDocument handles DELETE /api/v1/documents/{name}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid document name")
		return
	}

	n, err := s.documents.Delete(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: true, Name: name, Chunks: n})
}

// Reindex handles POST /api/v1/documents/reindex.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	ctx, usage := requestUsage(r)
	results, err := s.documents.Reindex(ctx)
	setUsageHeaders(w, usage)
	if err != nil && results == nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, batchToResponse(results))
}

// BatchUpload handles POST /api/v1/documents/batch (repeated multipart field "files").
func (s *Server) BatchUpload(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.batch.MaxBatchSize()) * s.opts.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp files only

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 || len(headers) > s.batch.MaxBatchSize() {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
			fmt.Sprintf("files count must be between 1 and %d", s.batch.MaxBatchSize()))
		return
	}

	items := make([]batchuc.Item, 0, len(headers))
	for _, h := range headers {
		if h.Size > s.opts.MaxUploadBytes {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
				fmt.Sprintf("%s exceeds %d bytes", h.Filename, s.opts.MaxUploadBytes))
			return
		}
		data, err := readPart(h)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "read upload: "+err.Error())
			return
		}
		items = append(items, batchuc.Item{Name: h.Filename, Data: data})
	}

	ctx, usage := requestUsage(r)
	results := s.batch.Ingest(ctx, items)
	setUsageHeaders(w, usage)

	writeJSON(w, http.StatusOK, batchToResponse(results))
}

// BatchDelete handles DELETE /api/v1/documents/batch.
func (s *Server) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req BatchDeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Names) == 0 || len(req.Names) > s.batch.MaxBatchSize() {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
			fmt.Sprintf("names count must be between 1 and %d", s.batch.MaxBatchSize()))
		return
	}

	writeJSON(w, http.StatusOK, batchToResponse(s.batch.Delete(r.Context(), req.Names)))
}

// GetStats handles GET /api/v1/stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	limit, ok := bindLimit(w, r, defaultStatsLimit)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, reportToResponse(s.stats.GetReport(r.Context(), limit)))
}

// ClearStats handles DELETE /api/v1/stats.
func (s *Server) ClearStats(w http.ResponseWriter, r *http.Request) {
	s.stats.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// bindLimit reads the optional ?limit= query parameter.
func bindLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid limit parameter")
		return 0, false
	}
	if limit == nil {
		return def, true
	}
	if *limit < 1 || *limit > maxListLimit {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
			fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
		return 0, false
	}
	return *limit, true
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err //nolint:wrapcheck // reported to the client as is
	}
	defer f.Close()
	return io.ReadAll(f)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		msg := "Invalid request body: " + err.Error()
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, msg)
		return false
	}
	return true
}

// requestUsage returns the collector seeded by WideEventMiddleware, or a fresh one.
func requestUsage(r *http.Request) (context.Context, *domain.Usage) {
	if u := domain.UsageFromContext(r.Context()); u != nil {
		return r.Context(), u
	}
	return domain.NewContextWithUsage(r.Context())
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if n, ok := usage.Embedding(); ok {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(n))
	}
	if n, ok := usage.Generation(); ok {
		w.Header().Set("X-Generation-Tokens", strconv.Itoa(n))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
