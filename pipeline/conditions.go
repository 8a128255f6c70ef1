package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aymanh23/searchv2/streamers"
)

// Searcher is the external search capability contract. An empty result with
// a nil error means the search found nothing.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// ConditionSearch executes the condition search task: one search capability
// call followed by the deterministic parse transform.
type ConditionSearch struct {
	task   *Task
	runner *Runner
}

// NewConditionSearch binds the search capability into the task's step
// runner. The optional handler receives step lifecycle events.
func NewConditionSearch(searcher Searcher, handler streamers.PipelineHandler) *ConditionSearch {
	task := ConditionSearchTask()
	runner := NewRunner(map[string]Capability{
		"search": func(ctx context.Context, query string) (string, error) {
			return searcher.Search(ctx, query)
		},
	})
	if handler != nil {
		runner = runner.WithHandler(handler)
	}
	return &ConditionSearch{task: task, runner: runner}
}

// Run searches for conditions related to the symptom set and enforces the
// task's output contract before returning.
func (c *ConditionSearch) Run(ctx context.Context, set *SymptomSet) (*SearchBundle, error) {
	out, err := c.runner.Run(ctx, c.task, set.QueryExpression())
	if err != nil {
		return nil, err
	}

	if err := c.task.ValidateOutput([]byte(out)); err != nil {
		return nil, err
	}

	var bundle SearchBundle
	if err := json.Unmarshal([]byte(out), &bundle); err != nil {
		return nil, fmt.Errorf("%w: task %q produced invalid JSON: %v", ErrMalformedTaskOutput, c.task.Name, err)
	}
	return &bundle, nil
}

// parseTransform adapts ParseSearchResults into a pipeline step.
func parseTransform(_ context.Context, raw string) (string, error) {
	bundle, err := ParseSearchResults(raw)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
