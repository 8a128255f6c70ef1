package pipeline

import (
	"encoding/json"
	"fmt"
)

// OutputField declares one field of a task's structured output contract.
type OutputField struct {
	Name     string
	Required bool
}

// Task is a typed, declarative task definition. Description and
// ExpectedOutput are the natural-language contract used to prompt the
// executing agent; Output is the machine-checked half of the same contract.
type Task struct {
	Name           string
	Description    string
	ExpectedOutput string
	AgentName      string
	Output         []OutputField
	Steps          []Step
}

// ValidateOutput checks a task's JSON output payload against its declared
// output schema. A required field that is absent or JSON null fails the
// contract; an empty value does not.
func (t *Task) ValidateOutput(payload []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return fmt.Errorf("%w: task %q output is not a JSON object: %v", ErrMalformedTaskOutput, t.Name, err)
	}

	var missing []string
	for _, f := range t.Output {
		if !f.Required {
			continue
		}
		raw, ok := fields[f.Name]
		if !ok || string(raw) == "null" {
			missing = append(missing, f.Name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: task %q missing required output fields: %v", ErrMalformedTaskOutput, t.Name, missing)
	}
	return nil
}
