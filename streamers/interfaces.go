package streamers

// ChatHandler defines the interface for handling chat I/O
// Different implementations can handle stdout/stdin, SSE, websocket, etc.
type ChatHandler interface {
	// Welcome displays the initial welcome message when chat starts
	Welcome(agentName string, modelName string)

	// AwaitClientAnswer prompts for and reads user input, returns the input and any error
	AwaitClientAnswer() (string, error)

	// Goodbye displays the farewell message when chat ends
	Goodbye()

	// Error displays an error message
	Error(err error)

	// Thinking is called when the agent starts processing
	Thinking()

	// CallingTool is called when the agent invokes a tool
	CallingTool(toolName string, payload string)

	// ToolComplete is called when a tool finishes execution
	ToolComplete(toolName string)

	// PublishReasoningChunk is called for each chunk of the REASONING as it streams
	PublishReasoningChunk(chunk string)

	// FinishReasoning is called when the REASONING block is complete
	FinishReasoning()

	// PublishAnswerChunk is called for each chunk of the ANSWER as it streams
	PublishAnswerChunk(chunk string)

	// FinishAnswer is called when the answer is complete (to print newlines, stop spinner, etc)
	FinishAnswer()
}

// PipelineHandler defines the interface for handling intake pipeline events
type PipelineHandler interface {
	// Pipeline lifecycle
	PipelineStarted(name string, intakeID string, taskCount int)
	PipelineCompleted(name string)
	PipelineFailed(name string, err error)

	// Task lifecycle
	TaskStarted(taskName string, description string)
	TaskCompleted(taskName string, summary string)
	TaskFailed(taskName string, err error)

	// Step lifecycle within a task
	StepStarted(taskName string, stepName string)
	StepCompleted(taskName string, stepName string)

	// Clarification round trip with the patient
	QuestionAsked(taskName string, question string)
	QuestionAnswered(taskName string, answer string)

	// UsageReported carries the model tokens a completed task consumed
	UsageReported(taskName string, model string, inputTokens, outputTokens int)

	// AgentHandler returns the ChatHandler used to stream agent output during a task
	AgentHandler(taskName string, agentName string) ChatHandler
}
