package chi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unihelp/internal/domain"
	logpkg "github.com/kailas-cloud/unihelp/internal/logger"
)

// statusClientClosedRequest is the nginx convention for a request the
// client abandoned; nobody reads the body.
const statusClientClosedRequest = 499

type errorMapping struct {
	sentinel error
	status   int
	code     ErrorCode
}

// Order matters: collaborator failures first so a wrapped invalid-request
// inside an unavailable error still maps to 503.
var errorMappings = []errorMapping{
	{context.Canceled, statusClientClosedRequest, ErrorCodeCanceled},
	{domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable, ErrorCodeServiceUnavailable},
	{domain.ErrIndexUnavailable, http.StatusServiceUnavailable, ErrorCodeServiceUnavailable},
	{domain.ErrGenerationUnavailable, http.StatusServiceUnavailable, ErrorCodeServiceUnavailable},
	{domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeBadRequest},
	{domain.ErrVectorDimMismatch, http.StatusBadRequest, ErrorCodeBadRequest},
	{domain.ErrDocumentNotFound, http.StatusNotFound, ErrorCodeNotFound},
	{domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound},
	{domain.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, ErrorCodeUnsupportedFormat},
	{domain.ErrInsufficientContent, http.StatusUnprocessableEntity, ErrorCodeInsufficientContent},
	{domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited},
}

// classify maps err to a response code and HTTP status.
func classify(err error) (ErrorCode, int) {
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			return m.code, m.status
		}
	}
	return ErrorCodeInternal, http.StatusInternalServerError
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			return m.sentinel.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	code, status := classify(err)
	if status == http.StatusInternalServerError {
		log.Error("internal error", zap.Error(err))
		writeError(w, status, code, "internal error")
		return
	}

	if status == statusClientClosedRequest {
		log.Info("request canceled by client", zap.Error(err))
		writeError(w, status, code, "request canceled")
		return
	}

	log.Warn("domain error", zap.Error(err), zap.Int("status", status), zap.String("kind", string(domain.FailureKindOf(err))))
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: messageFor(err, status),
		Kind:    failureKind(err),
	})
}

// messageFor keeps validation details (they come from our own checks) and
// hides collaborator error text.
func messageFor(err error, status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return err.Error()
	default:
		return safeDomainMessage(err)
	}
}
