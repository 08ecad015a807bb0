package unihelp

import "github.com/kailas-cloud/unihelp/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound              = domain.ErrNotFound
	ErrDocumentNotFound      = domain.ErrDocumentNotFound
	ErrInvalidRequest        = domain.ErrInvalidRequest
	ErrUnsupportedFormat     = domain.ErrUnsupportedFormat
	ErrVectorDimMismatch     = domain.ErrVectorDimMismatch
	ErrInsufficientContent   = domain.ErrInsufficientContent
	ErrEmbeddingUnavailable  = domain.ErrEmbeddingUnavailable
	ErrIndexUnavailable      = domain.ErrIndexUnavailable
	ErrGenerationUnavailable = domain.ErrGenerationUnavailable
)
