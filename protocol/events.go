package protocol

// Pipeline lifecycle events, pushed to connected clients and persisted to the
// event store under the same type strings.
const (
	EventPipelineStarted   MessageType = "pipeline_started"
	EventPipelineCompleted MessageType = "pipeline_completed"
	EventPipelineFailed    MessageType = "pipeline_failed"
	EventTaskStarted       MessageType = "task_started"
	EventTaskCompleted     MessageType = "task_completed"
	EventTaskFailed        MessageType = "task_failed"
	EventStepStarted       MessageType = "step_started"
	EventStepCompleted     MessageType = "step_completed"
	EventQuestionAsked     MessageType = "question_asked"
	EventQuestionAnswered  MessageType = "question_answered"
	EventUsageReported     MessageType = "usage_reported"
	EventAgentThinking     MessageType = "agent_thinking"
	EventAgentCallingTool  MessageType = "agent_calling_tool"
	EventAgentToolComplete MessageType = "agent_tool_complete"
	EventAgentAnswer       MessageType = "agent_answer"
)

// PipelineStartedData announces a new pipeline run for an intake.
type PipelineStartedData struct {
	PipelineName string `json:"pipeline_name"`
	IntakeID     string `json:"intake_id"`
	TaskCount    int    `json:"task_count"`
}

// PipelineCompletedData announces a successful run.
type PipelineCompletedData struct {
	PipelineName string `json:"pipeline_name"`
}

// PipelineFailedData announces a failed run.
type PipelineFailedData struct {
	PipelineName string `json:"pipeline_name"`
	Error        string `json:"error"`
}

// TaskStartedData announces a task beginning.
type TaskStartedData struct {
	TaskName    string `json:"task_name"`
	Description string `json:"description,omitempty"`
}

// TaskCompletedData announces a task finishing, with a short result summary.
type TaskCompletedData struct {
	TaskName string `json:"task_name"`
	Summary  string `json:"summary,omitempty"`
}

// TaskFailedData announces a task failure.
type TaskFailedData struct {
	TaskName string `json:"task_name"`
	Error    string `json:"error"`
}

// StepStartedData announces a step within a task beginning.
type StepStartedData struct {
	TaskName string `json:"task_name"`
	StepName string `json:"step_name"`
}

// StepCompletedData announces a step finishing.
type StepCompletedData struct {
	TaskName string `json:"task_name"`
	StepName string `json:"step_name"`
}

// QuestionAskedData carries a clarifying question waiting on the patient.
type QuestionAskedData struct {
	TaskName string `json:"task_name"`
	Question string `json:"question"`
}

// QuestionAnsweredData carries the patient's answer.
type QuestionAnsweredData struct {
	TaskName string `json:"task_name"`
	Answer   string `json:"answer"`
}

// UsageReportedData carries a completed task's model token consumption.
type UsageReportedData struct {
	TaskName     string `json:"task_name"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// AgentThinkingData signals an agent reasoning between model calls.
type AgentThinkingData struct {
	TaskName  string `json:"task_name"`
	AgentName string `json:"agent_name"`
}

// AgentCallingToolData signals an agent invoking a tool.
type AgentCallingToolData struct {
	TaskName  string `json:"task_name"`
	AgentName string `json:"agent_name"`
	ToolName  string `json:"tool_name"`
	Payload   string `json:"payload,omitempty"`
}

// AgentToolCompleteData signals a tool call returning.
type AgentToolCompleteData struct {
	TaskName  string `json:"task_name"`
	AgentName string `json:"agent_name"`
	ToolName  string `json:"tool_name"`
}

// AgentAnswerData signals an agent producing its final answer.
type AgentAnswerData struct {
	TaskName  string `json:"task_name"`
	AgentName string `json:"agent_name"`
}
