package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a document with no indexed chunks.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidRequest signals a request that fails validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnsupportedFormat signals a file extension with no extractor.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrInsufficientContent signals a document that yields no usable text or chunks.
	ErrInsufficientContent = errors.New("insufficient content")
	// ErrEmbeddingUnavailable signals an embedding provider failure or timeout.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrIndexUnavailable signals an unreachable vector index.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrGenerationUnavailable signals a generation provider failure or timeout.
	ErrGenerationUnavailable = errors.New("generation unavailable")
)

// FailureKind is a stable, loggable name for the class of a pipeline failure.
type FailureKind string

// Failure kinds reported on FAILED queries and failed ingestions.
const (
	FailureInsufficientContent   FailureKind = "insufficient_content"
	FailureEmbeddingUnavailable  FailureKind = "embedding_unavailable"
	FailureIndexUnavailable      FailureKind = "index_unavailable"
	FailureGenerationUnavailable FailureKind = "generation_unavailable"
	FailureInvalidRequest        FailureKind = "invalid_request"
	FailureInternal              FailureKind = "internal"
	// FailureCanceled is the caller giving up, not a collaborator failure.
	FailureCanceled FailureKind = "canceled"
)

var failureKinds = []struct {
	err  error
	kind FailureKind
}{
	{ErrInsufficientContent, FailureInsufficientContent},
	{ErrEmbeddingUnavailable, FailureEmbeddingUnavailable},
	{ErrIndexUnavailable, FailureIndexUnavailable},
	{ErrGenerationUnavailable, FailureGenerationUnavailable},
	{ErrInvalidRequest, FailureInvalidRequest},
}

// FailureKindOf classifies err. Unknown errors are internal.
func FailureKindOf(err error) FailureKind {
	if errors.Is(err, context.Canceled) {
		return FailureCanceled
	}
	for _, fk := range failureKinds {
		if errors.Is(err, fk.err) {
			return fk.kind
		}
	}
	return FailureInternal
}

// Unavailable tags err with the sentinel kind unless it already carries it.
// A caller cancellation is returned untagged.
func Unavailable(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
