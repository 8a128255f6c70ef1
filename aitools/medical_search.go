package aitools

import (
	"context"
	"encoding/json"
	"time"
)

// QuerySearcher is the search capability the medical_search tool delegates to.
// An empty result with a nil error means the provider found nothing.
type QuerySearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// MedicalSearchTool lets an agent run a condition search against the
// configured search provider and read the raw result.
type MedicalSearchTool struct {
	Searcher QuerySearcher
	Timeout  time.Duration
}

func (t *MedicalSearchTool) ToolName() string {
	return "medical_search"
}

func (t *MedicalSearchTool) ToolDescription() string {
	return "Searches trusted medical sources for the given query and returns the raw search result."
}

func (t *MedicalSearchTool) ToolPayloadSchema() Schema {
	return Schema{
		Type: TypeObject,
		Properties: PropertyMap{
			"query": {
				Type:        TypeString,
				Description: "The search query, e.g. a comma-separated symptom list",
			},
		},
		Required: []string{"query"},
	}
}

func (t *MedicalSearchTool) Call(params string) string {
	var p struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(params), &p); err != nil {
		return "Error: invalid parameters - " + err.Error()
	}

	if p.Query == "" {
		return "Error: query is required"
	}

	if t.Searcher == nil {
		return "Error: no search provider configured"
	}

	timeout := t.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := t.Searcher.Search(ctx, p.Query)
	if err != nil {
		return "Error: search failed - " + err.Error()
	}

	if result == "" {
		return "No results found for query: " + p.Query
	}

	return result
}
