package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ToolCaller is the slice of a plugin client this package needs.
type ToolCaller interface {
	Call(toolName string, params string) (string, error)
}

// PluginSearcher adapts a plugin-hosted search tool to the Searcher
// interface, letting operators swap the built-in Serper provider for a
// custom one without touching the pipeline.
type PluginSearcher struct {
	caller   ToolCaller
	toolName string
}

// NewPluginSearcher wraps the named plugin tool as a Searcher.
func NewPluginSearcher(caller ToolCaller, toolName string) *PluginSearcher {
	return &PluginSearcher{caller: caller, toolName: toolName}
}

func (p *PluginSearcher) Search(ctx context.Context, query string) (string, error) {
	params, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return "", fmt.Errorf("plugin search: encoding params: %w", err)
	}

	type callResult struct {
		result string
		err    error
	}
	done := make(chan callResult, 1)
	go func() {
		result, err := p.caller.Call(p.toolName, string(params))
		done <- callResult{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("plugin search: %w", r.err)
		}
		if strings.TrimSpace(r.result) == "" {
			return "", nil
		}
		return r.result, nil
	}
}
