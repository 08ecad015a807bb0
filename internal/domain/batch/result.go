// Package batch holds per-item outcomes of multi-document operations.
package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one document in a batch operation.
type Result struct {
	name   string
	status ItemStatus
	chunks int
	err    error
}

// NewOK creates a successful batch result.
func NewOK(name string, chunks int) Result {
	return Result{name: name, status: StatusOK, chunks: chunks}
}

// NewError creates a failed batch result.
func NewError(name string, err error) Result {
	return Result{name: name, status: StatusError, err: err}
}

// Name returns the document name.
func (r Result) Name() string { return r.name }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Chunks returns the number of chunks indexed; zero on error.
func (r Result) Chunks() int { return r.chunks }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summarize counts successes and failures.
func Summarize(results []Result) (succeeded, failed int) {
	for _, r := range results {
		if r.status == StatusOK {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
