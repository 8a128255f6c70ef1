package streamers

import "errors"

// NopChatHandler discards all chat output. Agents running inside a pipeline
// use it when the caller has not attached a streaming surface.
type NopChatHandler struct{}

func (NopChatHandler) Welcome(agentName string, modelName string) {}

// AwaitClientAnswer fails because a nop handler has no input source. The
// pipeline collects patient answers out of band, so reaching this method
// means the agent was wired into an interactive loop by mistake.
func (NopChatHandler) AwaitClientAnswer() (string, error) {
	return "", errors.New("no input source attached")
}

func (NopChatHandler) Goodbye() {}

func (NopChatHandler) Error(err error) {}

func (NopChatHandler) Thinking() {}

func (NopChatHandler) CallingTool(toolName string, payload string) {}

func (NopChatHandler) ToolComplete(toolName string) {}

func (NopChatHandler) PublishReasoningChunk(chunk string) {}

func (NopChatHandler) FinishReasoning() {}

func (NopChatHandler) PublishAnswerChunk(chunk string) {}

func (NopChatHandler) FinishAnswer() {}

// NopPipelineHandler ignores all pipeline events.
type NopPipelineHandler struct{}

func (NopPipelineHandler) PipelineStarted(name string, intakeID string, taskCount int) {}

func (NopPipelineHandler) PipelineCompleted(name string) {}

func (NopPipelineHandler) PipelineFailed(name string, err error) {}

func (NopPipelineHandler) TaskStarted(taskName string, description string) {}

func (NopPipelineHandler) TaskCompleted(taskName string, summary string) {}

func (NopPipelineHandler) TaskFailed(taskName string, err error) {}

func (NopPipelineHandler) StepStarted(taskName string, stepName string) {}

func (NopPipelineHandler) StepCompleted(taskName string, stepName string) {}

func (NopPipelineHandler) QuestionAsked(taskName string, question string) {}

func (NopPipelineHandler) QuestionAnswered(taskName string, answer string) {}

func (NopPipelineHandler) UsageReported(taskName string, model string, inputTokens, outputTokens int) {
}

func (NopPipelineHandler) AgentHandler(taskName string, agentName string) ChatHandler {
	return NopChatHandler{}
}
