package server

import (
	"log"
	"sync"

	"github.com/aymanh23/searchv2/protocol"
	"github.com/aymanh23/searchv2/streamers"
)

// WSPipelineHandler implements streamers.PipelineHandler by pushing pipeline
// events over the WebSocket connection. One instance serves one session; the
// registry's handler factory takes care of that.
type WSPipelineHandler struct {
	conn *Conn

	mu       sync.Mutex
	intakeID string
}

// NewWSPipelineHandler creates a WebSocket-backed pipeline handler.
func NewWSPipelineHandler(conn *Conn) *WSPipelineHandler {
	return &WSPipelineHandler{conn: conn}
}

func (h *WSPipelineHandler) sendEvent(eventType protocol.MessageType, data any) {
	h.mu.Lock()
	intakeID := h.intakeID
	h.mu.Unlock()

	env, err := protocol.NewEvent(protocol.TypePipelineEvent, &protocol.PipelineEventPayload{
		IntakeID:  intakeID,
		EventType: eventType,
		Data:      data,
	})
	if err != nil {
		log.Printf("WSPipelineHandler: marshal event: %v", err)
		return
	}
	if err := h.conn.SendEvent(env); err != nil {
		log.Printf("WSPipelineHandler: send event: %v", err)
	}
}

// =============================================================================
// PipelineHandler implementation
// =============================================================================

func (h *WSPipelineHandler) PipelineStarted(name string, intakeID string, taskCount int) {
	h.mu.Lock()
	h.intakeID = intakeID
	h.mu.Unlock()

	h.sendEvent(protocol.EventPipelineStarted, protocol.PipelineStartedData{
		PipelineName: name,
		IntakeID:     intakeID,
		TaskCount:    taskCount,
	})
}

func (h *WSPipelineHandler) PipelineCompleted(name string) {
	h.sendEvent(protocol.EventPipelineCompleted, protocol.PipelineCompletedData{
		PipelineName: name,
	})
}

func (h *WSPipelineHandler) PipelineFailed(name string, err error) {
	h.sendEvent(protocol.EventPipelineFailed, protocol.PipelineFailedData{
		PipelineName: name,
		Error:        err.Error(),
	})
}

func (h *WSPipelineHandler) TaskStarted(taskName string, description string) {
	h.sendEvent(protocol.EventTaskStarted, protocol.TaskStartedData{
		TaskName:    taskName,
		Description: description,
	})
}

func (h *WSPipelineHandler) TaskCompleted(taskName string, summary string) {
	h.sendEvent(protocol.EventTaskCompleted, protocol.TaskCompletedData{
		TaskName: taskName,
		Summary:  summary,
	})
}

func (h *WSPipelineHandler) TaskFailed(taskName string, err error) {
	h.sendEvent(protocol.EventTaskFailed, protocol.TaskFailedData{
		TaskName: taskName,
		Error:    err.Error(),
	})
}

func (h *WSPipelineHandler) StepStarted(taskName string, stepName string) {
	h.sendEvent(protocol.EventStepStarted, protocol.StepStartedData{
		TaskName: taskName,
		StepName: stepName,
	})
}

func (h *WSPipelineHandler) StepCompleted(taskName string, stepName string) {
	h.sendEvent(protocol.EventStepCompleted, protocol.StepCompletedData{
		TaskName: taskName,
		StepName: stepName,
	})
}

func (h *WSPipelineHandler) QuestionAsked(taskName string, question string) {
	h.sendEvent(protocol.EventQuestionAsked, protocol.QuestionAskedData{
		TaskName: taskName,
		Question: question,
	})
}

func (h *WSPipelineHandler) QuestionAnswered(taskName string, answer string) {
	h.sendEvent(protocol.EventQuestionAnswered, protocol.QuestionAnsweredData{
		TaskName: taskName,
		Answer:   answer,
	})
}

func (h *WSPipelineHandler) UsageReported(taskName string, model string, inputTokens, outputTokens int) {
	h.sendEvent(protocol.EventUsageReported, protocol.UsageReportedData{
		TaskName:     taskName,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	})
}

func (h *WSPipelineHandler) AgentHandler(taskName string, agentName string) streamers.ChatHandler {
	return &wsChatHandler{
		parent:    h,
		taskName:  taskName,
		agentName: agentName,
	}
}

// =============================================================================
// wsChatHandler — WebSocket ChatHandler for agent events
// =============================================================================

type wsChatHandler struct {
	parent    *WSPipelineHandler
	taskName  string
	agentName string
}

func (c *wsChatHandler) Welcome(agentName string, modelName string) {}

func (c *wsChatHandler) AwaitClientAnswer() (string, error) {
	return "", nil
}

func (c *wsChatHandler) Goodbye() {}

func (c *wsChatHandler) Error(err error) {}

func (c *wsChatHandler) Thinking() {
	c.parent.sendEvent(protocol.EventAgentThinking, protocol.AgentThinkingData{
		TaskName:  c.taskName,
		AgentName: c.agentName,
	})
}

func (c *wsChatHandler) CallingTool(toolName string, payload string) {
	c.parent.sendEvent(protocol.EventAgentCallingTool, protocol.AgentCallingToolData{
		TaskName:  c.taskName,
		AgentName: c.agentName,
		ToolName:  toolName,
		Payload:   payload,
	})
}

func (c *wsChatHandler) ToolComplete(toolName string) {
	c.parent.sendEvent(protocol.EventAgentToolComplete, protocol.AgentToolCompleteData{
		TaskName:  c.taskName,
		AgentName: c.agentName,
		ToolName:  toolName,
	})
}

func (c *wsChatHandler) PublishReasoningChunk(chunk string) {
	// High-volume streaming chunks are not sent over WS individually
}

func (c *wsChatHandler) FinishReasoning() {}

func (c *wsChatHandler) PublishAnswerChunk(chunk string) {
	// High-volume streaming chunks are not sent over WS individually
}

func (c *wsChatHandler) FinishAnswer() {
	c.parent.sendEvent(protocol.EventAgentAnswer, protocol.AgentAnswerData{
		TaskName:  c.taskName,
		AgentName: c.agentName,
	})
}
