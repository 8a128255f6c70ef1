package cli

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aymanh23/searchv2/config"
	"github.com/aymanh23/searchv2/streamers"
)

// PipelineHandler implements streamers.PipelineHandler for CLI output
type PipelineHandler struct {
	mu sync.Mutex
}

// NewPipelineHandler creates a new CLI pipeline handler
func NewPipelineHandler() *PipelineHandler {
	return &PipelineHandler{}
}

func (s *PipelineHandler) PipelineStarted(name string, intakeID string, taskCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("\n%s%s=== Intake: %s ===%s\n", ColorBold, ColorCyan, name, ColorReset)
	fmt.Printf("%sIntake ID: %s%s\n", ColorGray, intakeID, ColorReset)
	fmt.Printf("%sTasks: %d%s\n\n", ColorGray, taskCount, ColorReset)
}

func (s *PipelineHandler) PipelineCompleted(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("\n%s%s=== Intake '%s' completed ===%s\n", ColorBold, ColorGreen, name, ColorReset)
}

func (s *PipelineHandler) PipelineFailed(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("\n%s%s=== Intake '%s' FAILED: %v ===%s\n", ColorBold, ColorRed, name, err, ColorReset)
}

func (s *PipelineHandler) TaskStarted(taskName string, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("\n%s%s--- Task: %s ---%s\n", ColorBold, ColorCyan, taskName, ColorReset)
	if description != "" {
		fmt.Printf("%s%s%s\n\n", ColorGray, truncate(description, 120), ColorReset)
	}
}

func (s *PipelineHandler) TaskCompleted(taskName string, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("\n%s%s[Task '%s' completed]%s\n", ColorBold, ColorGreen, taskName, ColorReset)
	if summary != "" {
		fmt.Printf("%s%s%s\n", ColorGray, truncate(summary, 300), ColorReset)
	}
}

func (s *PipelineHandler) TaskFailed(taskName string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("\n%s%s[Task '%s' FAILED: %v]%s\n", ColorBold, ColorRed, taskName, err, ColorReset)
}

func (s *PipelineHandler) StepStarted(taskName string, stepName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("  [%s] Step: %s\n", taskName, stepName)
}

func (s *PipelineHandler) StepCompleted(taskName string, stepName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("  [%s] Step '%s' complete\n", taskName, stepName)
}

func (s *PipelineHandler) QuestionAsked(taskName string, question string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("\n%s%sQuestion%s %s\n\n", ColorBold, ColorOrange, ColorReset, question)
}

func (s *PipelineHandler) QuestionAnswered(taskName string, answer string) {
	// The input prompt already echoes the patient's answer.
}

func (s *PipelineHandler) UsageReported(taskName string, model string, inputTokens, outputTokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := fmt.Sprintf("%d in / %d out tokens", inputTokens, outputTokens)
	if cost := config.CalculateCost(model, inputTokens, outputTokens); cost > 0 {
		line = fmt.Sprintf("%s ($%.4f)", line, cost)
	}
	fmt.Printf("%sModel usage: %s%s\n", ColorGray, line, ColorReset)
}

func (s *PipelineHandler) AgentHandler(taskName string, agentName string) streamers.ChatHandler {
	return &agentHandler{
		taskName:  taskName,
		agentName: agentName,
		mu:        &s.mu,
		spinner:   newSpinner(),
	}
}

// truncate shortens a string to max length, adding ellipsis if needed
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// agentHandler implements streamers.ChatHandler for pipeline agent calls.
// The pipeline surfaces questions and structured results itself, so the
// agent's raw output stays behind a spinner.
type agentHandler struct {
	taskName         string
	agentName        string
	mu               *sync.Mutex
	spinner          *spinner
	reasoningStarted bool
	answerBuffer     strings.Builder
}

func (s *agentHandler) prefix() string {
	return fmt.Sprintf("  %s[%s/%s]%s", ColorLightBrown, s.taskName, s.agentName, ColorReset)
}

func (s *agentHandler) Welcome(agentName, modelName string) {
	// Not used in pipeline context
}

func (s *agentHandler) AwaitClientAnswer() (string, error) {
	// Not used in pipeline context - clarifications go through the question flow
	return "", nil
}

func (s *agentHandler) Goodbye() {
	// Not used in pipeline context
}

func (s *agentHandler) Error(err error) {
	s.spinner.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("%s Error: %v\n", s.prefix(), err)
}

func (s *agentHandler) Thinking() {
	s.spinner.Start(s.prefix(), "Thinking...")
}

func (s *agentHandler) CallingTool(toolName, payload string) {
	s.spinner.Stop()
	s.spinner.Start(s.prefix(), fmt.Sprintf("Calling %s%s%s...", ColorBold, toolName, ColorReset))
}

func (s *agentHandler) ToolComplete(toolName string) {
	s.spinner.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("  %s✓%s %s%s%s called\n", ColorGray, ColorReset, ColorBold, toolName, ColorReset)
}

func (s *agentHandler) PublishReasoningChunk(chunk string) {
	if !s.reasoningStarted {
		s.spinner.Stop()
		s.mu.Lock()
		fmt.Printf("%s Reasoning: ", s.prefix())
		s.mu.Unlock()
		s.reasoningStarted = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("%s%s%s", ColorItalic, ColorGray, chunk)
}

func (s *agentHandler) FinishReasoning() {
	if s.reasoningStarted {
		s.mu.Lock()
		fmt.Printf("%s\n", ColorReset)
		s.mu.Unlock()
		s.reasoningStarted = false
	}
	s.spinner.Start(s.prefix(), "Waiting for answer...")
}

func (s *agentHandler) PublishAnswerChunk(chunk string) {
	// Buffer chunks - spinner keeps running
	s.answerBuffer.WriteString(chunk)
}

func (s *agentHandler) FinishAnswer() {
	s.spinner.Stop()
	s.answerBuffer.Reset()
}
