package pipeline

import (
	"context"
	"fmt"

	"github.com/aymanh23/searchv2/streamers"
)

// StepKind discriminates the step variants.
type StepKind int

const (
	// StepCall delegates to a named external capability.
	StepCall StepKind = iota
	// StepTransform applies a pure in-process function.
	StepTransform
)

// Step is one stage of a task: either a capability call or a transform.
// Each step consumes the previous step's output (the first consumes the task
// input) and produces the next input.
type Step struct {
	Name string
	Kind StepKind

	// Capability names the collaborator to invoke when Kind == StepCall.
	Capability string

	// Func is the pure transform applied when Kind == StepTransform.
	Func func(ctx context.Context, input string) (string, error)
}

// Capability is an external collaborator a StepCall delegates to.
type Capability func(ctx context.Context, input string) (string, error)

// Runner executes a task's steps in order, binding capability names to
// implementations. Step failures propagate unmodified.
type Runner struct {
	capabilities map[string]Capability
	handler      streamers.PipelineHandler // optional
}

// NewRunner creates a runner with the given capability bindings.
func NewRunner(capabilities map[string]Capability) *Runner {
	return &Runner{capabilities: capabilities}
}

// WithHandler sets an optional event handler for step lifecycle updates.
func (r *Runner) WithHandler(handler streamers.PipelineHandler) *Runner {
	r.handler = handler
	return r
}

// Run executes the task's steps sequentially, threading each output into the
// next step's input, and returns the final step's output.
func (r *Runner) Run(ctx context.Context, task *Task, input string) (string, error) {
	current := input

	for _, step := range task.Steps {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		if r.handler != nil {
			r.handler.StepStarted(task.Name, step.Name)
		}

		var out string
		var err error
		switch step.Kind {
		case StepCall:
			capability, ok := r.capabilities[step.Capability]
			if !ok {
				return "", fmt.Errorf("task %q: no capability %q bound for step %q", task.Name, step.Capability, step.Name)
			}
			out, err = capability(ctx, current)
		case StepTransform:
			if step.Func == nil {
				return "", fmt.Errorf("task %q: step %q has no transform function", task.Name, step.Name)
			}
			out, err = step.Func(ctx, current)
		default:
			return "", fmt.Errorf("task %q: step %q has unknown kind %d", task.Name, step.Name, step.Kind)
		}

		if err != nil {
			return "", err
		}

		if r.handler != nil {
			r.handler.StepCompleted(task.Name, step.Name)
		}

		current = out
	}

	return current, nil
}
