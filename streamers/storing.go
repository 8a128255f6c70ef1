package streamers

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/aymanh23/searchv2/protocol"
	"github.com/aymanh23/searchv2/store"
)

// StoringPipelineHandler is a PipelineHandler decorator that persists every
// event to the EventStore, then delegates to an inner handler (e.g. CLI or
// WebSocket).
type StoringPipelineHandler struct {
	inner  PipelineHandler
	events store.EventStore

	mu       sync.Mutex
	intakeID string
}

// NewStoringPipelineHandler wraps an existing PipelineHandler with event
// persistence.
func NewStoringPipelineHandler(inner PipelineHandler, events store.EventStore) *StoringPipelineHandler {
	return &StoringPipelineHandler{inner: inner, events: events}
}

// storeEvent persists an event, logging (not failing) on error.
func (h *StoringPipelineHandler) storeEvent(eventType protocol.MessageType, data any) {
	h.mu.Lock()
	intakeID := h.intakeID
	h.mu.Unlock()
	if intakeID == "" {
		// No intake to attach the event to yet.
		return
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		log.Printf("StoringPipelineHandler: marshal event data: %v", err)
		return
	}
	if err := h.events.AppendEvent(intakeID, string(eventType), string(dataJSON)); err != nil {
		log.Printf("StoringPipelineHandler: store event: %v", err)
	}
}

// =============================================================================
// PipelineHandler implementation
// =============================================================================

func (h *StoringPipelineHandler) PipelineStarted(name string, intakeID string, taskCount int) {
	h.mu.Lock()
	h.intakeID = intakeID
	h.mu.Unlock()

	h.storeEvent(protocol.EventPipelineStarted, protocol.PipelineStartedData{
		PipelineName: name,
		IntakeID:     intakeID,
		TaskCount:    taskCount,
	})
	h.inner.PipelineStarted(name, intakeID, taskCount)
}

func (h *StoringPipelineHandler) PipelineCompleted(name string) {
	h.storeEvent(protocol.EventPipelineCompleted, protocol.PipelineCompletedData{
		PipelineName: name,
	})
	h.inner.PipelineCompleted(name)
}

func (h *StoringPipelineHandler) PipelineFailed(name string, err error) {
	h.storeEvent(protocol.EventPipelineFailed, protocol.PipelineFailedData{
		PipelineName: name,
		Error:        err.Error(),
	})
	h.inner.PipelineFailed(name, err)
}

func (h *StoringPipelineHandler) TaskStarted(taskName string, description string) {
	h.storeEvent(protocol.EventTaskStarted, protocol.TaskStartedData{
		TaskName:    taskName,
		Description: description,
	})
	h.inner.TaskStarted(taskName, description)
}

func (h *StoringPipelineHandler) TaskCompleted(taskName string, summary string) {
	h.storeEvent(protocol.EventTaskCompleted, protocol.TaskCompletedData{
		TaskName: taskName,
		Summary:  summary,
	})
	h.inner.TaskCompleted(taskName, summary)
}

func (h *StoringPipelineHandler) TaskFailed(taskName string, err error) {
	h.storeEvent(protocol.EventTaskFailed, protocol.TaskFailedData{
		TaskName: taskName,
		Error:    err.Error(),
	})
	h.inner.TaskFailed(taskName, err)
}

func (h *StoringPipelineHandler) StepStarted(taskName string, stepName string) {
	h.storeEvent(protocol.EventStepStarted, protocol.StepStartedData{
		TaskName: taskName,
		StepName: stepName,
	})
	h.inner.StepStarted(taskName, stepName)
}

func (h *StoringPipelineHandler) StepCompleted(taskName string, stepName string) {
	h.storeEvent(protocol.EventStepCompleted, protocol.StepCompletedData{
		TaskName: taskName,
		StepName: stepName,
	})
	h.inner.StepCompleted(taskName, stepName)
}

func (h *StoringPipelineHandler) QuestionAsked(taskName string, question string) {
	h.storeEvent(protocol.EventQuestionAsked, protocol.QuestionAskedData{
		TaskName: taskName,
		Question: question,
	})
	h.inner.QuestionAsked(taskName, question)
}

func (h *StoringPipelineHandler) QuestionAnswered(taskName string, answer string) {
	h.storeEvent(protocol.EventQuestionAnswered, protocol.QuestionAnsweredData{
		TaskName: taskName,
		Answer:   answer,
	})
	h.inner.QuestionAnswered(taskName, answer)
}

func (h *StoringPipelineHandler) UsageReported(taskName string, model string, inputTokens, outputTokens int) {
	h.storeEvent(protocol.EventUsageReported, protocol.UsageReportedData{
		TaskName:     taskName,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	})
	h.inner.UsageReported(taskName, model, inputTokens, outputTokens)
}

func (h *StoringPipelineHandler) AgentHandler(taskName string, agentName string) ChatHandler {
	return &storingChatHandler{
		inner:     h.inner.AgentHandler(taskName, agentName),
		parent:    h,
		taskName:  taskName,
		agentName: agentName,
	}
}

// =============================================================================
// storingChatHandler — wraps ChatHandler for agent-level events
// =============================================================================

type storingChatHandler struct {
	inner     ChatHandler
	parent    *StoringPipelineHandler
	taskName  string
	agentName string
}

func (c *storingChatHandler) Welcome(agentName string, modelName string) {
	c.inner.Welcome(agentName, modelName)
}

func (c *storingChatHandler) AwaitClientAnswer() (string, error) {
	return c.inner.AwaitClientAnswer()
}

func (c *storingChatHandler) Goodbye() {
	c.inner.Goodbye()
}

func (c *storingChatHandler) Error(err error) {
	c.inner.Error(err)
}

func (c *storingChatHandler) Thinking() {
	c.parent.storeEvent(protocol.EventAgentThinking, protocol.AgentThinkingData{
		TaskName:  c.taskName,
		AgentName: c.agentName,
	})
	c.inner.Thinking()
}

func (c *storingChatHandler) CallingTool(toolName string, payload string) {
	c.parent.storeEvent(protocol.EventAgentCallingTool, protocol.AgentCallingToolData{
		TaskName:  c.taskName,
		AgentName: c.agentName,
		ToolName:  toolName,
		Payload:   payload,
	})
	c.inner.CallingTool(toolName, payload)
}

func (c *storingChatHandler) ToolComplete(toolName string) {
	c.parent.storeEvent(protocol.EventAgentToolComplete, protocol.AgentToolCompleteData{
		TaskName:  c.taskName,
		AgentName: c.agentName,
		ToolName:  toolName,
	})
	c.inner.ToolComplete(toolName)
}

func (c *storingChatHandler) PublishReasoningChunk(chunk string) {
	// Reasoning chunks are high-volume; we don't store individual chunks.
	// The full conversation is captured by the intake message store.
	c.inner.PublishReasoningChunk(chunk)
}

func (c *storingChatHandler) FinishReasoning() {
	c.inner.FinishReasoning()
}

func (c *storingChatHandler) PublishAnswerChunk(chunk string) {
	// Answer chunks are high-volume; we don't store individual chunks.
	c.inner.PublishAnswerChunk(chunk)
}

func (c *storingChatHandler) FinishAnswer() {
	c.parent.storeEvent(protocol.EventAgentAnswer, protocol.AgentAnswerData{
		TaskName:  c.taskName,
		AgentName: c.agentName,
	})
	c.inner.FinishAnswer()
}
