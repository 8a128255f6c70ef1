// Package websearch provides the search capability behind the condition
// search pipeline. Providers return the raw, uninterpreted result body;
// turning that blob into structured output is the caller's concern.
package websearch

import "context"

// Searcher submits a query to a search provider and returns the raw result.
// An empty string with a nil error means the provider found nothing for the
// query. Errors are reserved for transport and provider failures.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, query string) (string, error)

func (f SearcherFunc) Search(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}
