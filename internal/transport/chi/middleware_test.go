package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/unihelp/internal/domain"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestJSONRecoverer(t *testing.T) {
	logger, logs := observedLogger()
	h := JSONRecoverer(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/ask", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != ErrorCodeInternal {
		t.Errorf("unexpected code: %s", body.Code)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Error("expected the panic to be logged")
	}
}

func TestJSONRecoverer_ReraisesAbort(t *testing.T) {
	h := JSONRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if recover() != http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
			t.Error("expected ErrAbortHandler to propagate")
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
}

func TestWideEventMiddleware(t *testing.T) {
	logger, logs := observedLogger()

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(logger))
	r.Post("/api/v1/ask", func(w http.ResponseWriter, r *http.Request) {
		_, usage := requestUsage(r)
		usage.AddEmbeddingTokens(7)
		usage.AddGenerationTokens(90)
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/api/v1/documents/{name}", func(w http.ResponseWriter, r *http.Request) {
		if domain.UsageFromContext(r.Context()) == nil {
			t.Error("expected a usage collector in the context")
		}
		w.WriteHeader(http.StatusNotFound)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/ask", http.NoBody))
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/documents/a.pdf", http.NoBody))

	entries := logs.FilterMessage("http_request").AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("expected 2 request lines, got %d", len(entries))
	}

	ask := entries[0].ContextMap()
	if ask["embedding_tokens"] != int64(7) || ask["generation_tokens"] != int64(90) {
		t.Errorf("unexpected token fields: %v / %v", ask["embedding_tokens"], ask["generation_tokens"])
	}
	if ask["request_id"] == "" || ask["route"] != "/api/v1/ask" {
		t.Errorf("unexpected fields: %v", ask)
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Errorf("2xx should log at info, got %s", entries[0].Level)
	}

	missing := entries[1]
	if missing.Level != zapcore.WarnLevel {
		t.Errorf("4xx should log at warn, got %s", missing.Level)
	}
	if missing.ContextMap()["route"] != "/api/v1/documents/{name}" {
		t.Errorf("unexpected route: %v", missing.ContextMap()["route"])
	}
	if _, ok := missing.ContextMap()["embedding_tokens"]; ok {
		t.Error("token fields should be absent when no provider was called")
	}
}
