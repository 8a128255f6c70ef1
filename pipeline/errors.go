package pipeline

import "errors"

// The three failure conditions a pipeline invocation can surface. Callers
// test for them with errors.Is; wrapped causes carry the detail.
var (
	// ErrExtractionUnavailable means the communicator capability failed or
	// returned nothing interpretable. Never retried internally.
	ErrExtractionUnavailable = errors.New("extraction unavailable")

	// ErrSearchResultUnparseable means the search step returned content the
	// parse step cannot interpret at all. The caller may retry the whole
	// search task.
	ErrSearchResultUnparseable = errors.New("search result unparseable")

	// ErrMalformedTaskOutput means a task's output violates its declared
	// schema. Missing fields are a contract breach; empty fields are not.
	ErrMalformedTaskOutput = errors.New("malformed task output")
)
