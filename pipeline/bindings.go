package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aymanh23/searchv2/agent"
	"github.com/aymanh23/searchv2/streamers"
)

// AgentCommunicator adapts a conversation-mode agent into the extraction
// task's Communicator capability. Patient questions surface through the
// agent's ASK_USER channel; the finished symptom list arrives in the OUTPUT
// block and is checked against the task's output contract.
type AgentCommunicator struct {
	agent   *agent.Agent
	handler streamers.ChatHandler
	task    *Task
}

// NewAgentCommunicator wraps an agent for the symptom extraction task. The
// handler receives the agent's streaming output during each exchange.
func NewAgentCommunicator(a *agent.Agent, handler streamers.ChatHandler) *AgentCommunicator {
	return &AgentCommunicator{agent: a, handler: handler, task: SymptomExtractionTask()}
}

// Extract opens the exchange with the task framing and the patient's
// description.
func (c *AgentCommunicator) Extract(ctx context.Context, description string) (ExchangeResult, error) {
	input := fmt.Sprintf("%s\n\nExpected output: %s\n\nPatient's description:\n%s",
		c.task.Description, c.task.ExpectedOutput, description)
	result, err := c.agent.Chat(ctx, input, c.handler)
	if err != nil {
		return ExchangeResult{}, err
	}
	return c.exchange(result)
}

// Close releases the underlying agent's provider resources.
func (c *AgentCommunicator) Close() {
	c.agent.Close()
}

// Usage reports the model and cumulative token consumption of the wrapped
// agent, satisfying the registry's optional UsageReporter capability.
func (c *AgentCommunicator) Usage() (model string, inputTokens, outputTokens int) {
	u := c.agent.Usage()
	return c.agent.ModelName, u.InputTokens, u.OutputTokens
}

// Clarify relays the patient's answer to the agent's pending question.
func (c *AgentCommunicator) Clarify(ctx context.Context, answer string) (ExchangeResult, error) {
	result, err := c.agent.RespondToQuestion(ctx, answer, c.handler)
	if err != nil {
		return ExchangeResult{}, err
	}
	return c.exchange(result)
}

func (c *AgentCommunicator) exchange(result agent.ChatResult) (ExchangeResult, error) {
	if result.AskUser != "" {
		return ExchangeResult{Question: result.AskUser}, nil
	}
	if result.Output == "" {
		return ExchangeResult{}, fmt.Errorf("agent %q finished without a question or structured output", c.task.AgentName)
	}
	if err := c.task.ValidateOutput([]byte(result.Output)); err != nil {
		return ExchangeResult{}, err
	}

	var payload struct {
		Symptoms []string `json:"symptoms"`
	}
	if err := json.Unmarshal([]byte(result.Output), &payload); err != nil {
		return ExchangeResult{}, fmt.Errorf("%w: task %q produced invalid JSON: %v", ErrMalformedTaskOutput, c.task.Name, err)
	}
	return ExchangeResult{Symptoms: payload.Symptoms}, nil
}
