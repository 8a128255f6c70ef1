package agent

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aymanh23/searchv2/aitools"
	"github.com/aymanh23/searchv2/llm"
)

// scriptedSession plays back canned responses, streaming them in small chunks.
type scriptedSession struct {
	responses   []string
	inputs      []string
	messages    []llm.Message
	compactWith []int
	usage       llm.Usage
	err         error
}

func (s *scriptedSession) SendStream(ctx context.Context, userMessage string, onChunk func(chunk llm.StreamChunk)) (*llm.ChatResponse, error) {
	s.inputs = append(s.inputs, userMessage)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return nil, fmt.Errorf("no scripted response for input %q", userMessage)
	}
	full := s.responses[0]
	s.responses = s.responses[1:]
	s.messages = append(s.messages,
		llm.Message{Role: llm.RoleUser, Content: userMessage},
		llm.Message{Role: llm.RoleAssistant, Content: full},
	)

	remaining := full
	for len(remaining) > 0 {
		n := 7
		if n > len(remaining) {
			n = len(remaining)
		}
		onChunk(llm.StreamChunk{Content: remaining[:n]})
		remaining = remaining[n:]
	}
	onChunk(llm.StreamChunk{Done: true, Usage: &s.usage})

	return &llm.ChatResponse{Content: full, Usage: s.usage}, nil
}

func (s *scriptedSession) SnapshotMessages() []llm.Message {
	return append([]llm.Message(nil), s.messages...)
}

func (s *scriptedSession) Compact(turnRetention int) int {
	s.compactWith = append(s.compactWith, turnRetention)
	return 2
}

// silentHandler discards all chat output.
type silentHandler struct{}

func (silentHandler) Welcome(string, string)       {}
func (silentHandler) Goodbye()                     {}
func (silentHandler) Error(error)                  {}
func (silentHandler) Thinking()                    {}
func (silentHandler) CallingTool(string, string)   {}
func (silentHandler) ToolComplete(string)          {}
func (silentHandler) PublishReasoningChunk(string) {}
func (silentHandler) FinishReasoning()             {}
func (silentHandler) PublishAnswerChunk(string)    {}
func (silentHandler) FinishAnswer()                {}

func (silentHandler) AwaitClientAnswer() (string, error) { return "", nil }

// recordingTool records payloads and returns a fixed result.
type recordingTool struct {
	name   string
	result string
	calls  []string
}

func (t *recordingTool) ToolName() string                  { return t.name }
func (t *recordingTool) ToolDescription() string           { return "test tool" }
func (t *recordingTool) ToolPayloadSchema() aitools.Schema { return aitools.Schema{} }
func (t *recordingTool) Call(params string) string {
	t.calls = append(t.calls, params)
	return t.result
}

// memoryEventLogger collects events in order.
type memoryEventLogger struct {
	kinds []string
	data  []map[string]any
}

func (l *memoryEventLogger) LogEvent(eventType string, data map[string]any) {
	l.kinds = append(l.kinds, eventType)
	l.data = append(l.data, data)
}

var _ = Describe("orchestrator", func() {
	var session *scriptedSession

	newTestOrchestrator := func(tools map[string]aitools.Tool, events EventLogger, compaction *CompactionConfig) *orchestrator {
		return newOrchestrator(session, silentHandler{}, tools, nil, nil, events, nil, compaction, nil)
	}

	BeforeEach(func() {
		session = &scriptedSession{}
	})

	It("completes with a final answer", func() {
		session.responses = []string{"<ANSWER>\nRest and hydrate.\n</ANSWER>"}
		o := newTestOrchestrator(nil, nil, nil)

		result, err := o.processTurn(context.Background(), "I have a mild headache")

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Complete).To(BeTrue())
		Expect(result.Answer).To(Equal("Rest and hydrate."))
		Expect(result.AskUser).To(BeEmpty())
		Expect(session.inputs).To(Equal([]string{"I have a mild headache"}))
	})

	It("returns the patient question on ASK_USER", func() {
		session.responses = []string{"<REASONING>\nToo vague.\n</REASONING>\n<ASK_USER>\nWhen did it start?\n</ASK_USER>"}
		o := newTestOrchestrator(nil, nil, nil)

		result, err := o.processTurn(context.Background(), "I feel off")

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Complete).To(BeFalse())
		Expect(result.AskUser).To(Equal("When did it start?"))
	})

	It("runs a tool and feeds the observation back", func() {
		tool := &recordingTool{name: "symptom_scan", result: "symptoms: sore throat"}
		session.responses = []string{
			"<REASONING>\nScan the text.\n</REASONING>\n<ACTION>symptom_scan</ACTION>\n<ACTION_INPUT>{\"text\": \"sore throat\"}</ACTION_INPUT>",
			"<ANSWER>\nFound a sore throat.\n</ANSWER>",
		}
		o := newTestOrchestrator(map[string]aitools.Tool{"symptom_scan": tool}, nil, nil)

		result, err := o.processTurn(context.Background(), "my throat is killing me")

		Expect(err).NotTo(HaveOccurred())
		Expect(tool.calls).To(Equal([]string{"{\"text\": \"sore throat\"}"}))
		Expect(session.inputs).To(HaveLen(2))
		Expect(session.inputs[1]).To(ContainSubstring("<OBSERVATION>"))
		Expect(session.inputs[1]).To(ContainSubstring("symptoms: sore throat"))
		Expect(result.Answer).To(Equal("Found a sore throat."))
	})

	It("reports unknown tools in the observation", func() {
		session.responses = []string{
			"<ACTION>ghost_tool</ACTION>\n<ACTION_INPUT>{}</ACTION_INPUT>",
			"<ANSWER>\nNever mind.\n</ANSWER>",
		}
		o := newTestOrchestrator(nil, nil, nil)

		_, err := o.processTurn(context.Background(), "go")

		Expect(err).NotTo(HaveOccurred())
		Expect(session.inputs[1]).To(ContainSubstring("Error: Tool 'ghost_tool' not found"))
	})

	It("captures structured output", func() {
		session.responses = []string{"<REASONING>\nDone collecting.\n</REASONING>\n<OUTPUT>\n{\"symptoms\": [\"cough\"]}\n</OUTPUT>"}
		o := newTestOrchestrator(nil, nil, nil)

		result, err := o.processTurn(context.Background(), "wrap up")

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Complete).To(BeTrue())
		Expect(result.Output).To(Equal("{\"symptoms\": [\"cough\"]}"))
		Expect(result.Answer).To(BeEmpty())
	})

	Context("compaction", func() {
		It("compacts the session when input tokens exceed the limit", func() {
			session.responses = []string{"<ANSWER>\nok\n</ANSWER>"}
			session.usage = llm.Usage{InputTokens: 9000}
			o := newTestOrchestrator(nil, nil, &CompactionConfig{TokenLimit: 8000, TurnRetention: 3})

			_, err := o.processTurn(context.Background(), "hi")

			Expect(err).NotTo(HaveOccurred())
			Expect(session.compactWith).To(Equal([]int{3}))
		})

		It("leaves the session alone under the limit", func() {
			session.responses = []string{"<ANSWER>\nok\n</ANSWER>"}
			session.usage = llm.Usage{InputTokens: 500}
			o := newTestOrchestrator(nil, nil, &CompactionConfig{TokenLimit: 8000, TurnRetention: 3})

			_, err := o.processTurn(context.Background(), "hi")

			Expect(err).NotTo(HaveOccurred())
			Expect(session.compactWith).To(BeEmpty())
		})
	})

	It("accumulates token usage across model calls", func() {
		tool := &recordingTool{name: "symptom_scan", result: "ok"}
		session.responses = []string{
			"<ACTION>symptom_scan</ACTION>\n<ACTION_INPUT>{\"text\": \"chills\"}</ACTION_INPUT>",
			"<ANSWER>\ndone\n</ANSWER>",
		}
		session.usage = llm.Usage{InputTokens: 120, OutputTokens: 40}
		var total llm.Usage
		o := newOrchestrator(session, silentHandler{}, map[string]aitools.Tool{"symptom_scan": tool}, nil, nil, nil, nil, nil, &total)

		_, err := o.processTurn(context.Background(), "go")

		Expect(err).NotTo(HaveOccurred())
		Expect(total.InputTokens).To(Equal(240))
		Expect(total.OutputTokens).To(Equal(80))
	})

	It("logs llm and tool events", func() {
		tool := &recordingTool{name: "symptom_scan", result: "ok"}
		events := &memoryEventLogger{}
		session.responses = []string{
			"<ACTION>symptom_scan</ACTION>\n<ACTION_INPUT>{\"text\": \"chills\"}</ACTION_INPUT>",
			"<ANSWER>\ndone\n</ANSWER>",
		}
		o := newTestOrchestrator(map[string]aitools.Tool{"symptom_scan": tool}, events, nil)

		_, err := o.processTurn(context.Background(), "go")

		Expect(err).NotTo(HaveOccurred())
		Expect(events.kinds).To(Equal([]string{"llm_start", "llm_end", "tool_call", "tool_result", "llm_start", "llm_end"}))

		toolCall := events.data[2]
		Expect(toolCall["tool"]).To(Equal("symptom_scan"))
		Expect(toolCall["input"]).To(Equal("{\"text\": \"chills\"}"))
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		o := newTestOrchestrator(nil, nil, nil)

		_, err := o.processTurn(ctx, "hello")

		Expect(err).To(MatchError(context.Canceled))
	})

	It("propagates session errors", func() {
		session.err = fmt.Errorf("provider unreachable")
		o := newTestOrchestrator(nil, nil, nil)

		_, err := o.processTurn(context.Background(), "hello")

		Expect(err).To(MatchError(ContainSubstring("provider unreachable")))
	})
})

var _ = Describe("extractPruningOverrides", func() {
	It("pulls both limits from the payload", func() {
		toolLimit, msgLimit := extractPruningOverrides("{\"text\": \"x\", \"single_tool_limit\": 2, \"all_tool_limit\": 10}")
		Expect(toolLimit).To(Equal(2))
		Expect(msgLimit).To(Equal(10))
	})

	It("returns zeros for payloads without overrides", func() {
		toolLimit, msgLimit := extractPruningOverrides("{\"text\": \"x\"}")
		Expect(toolLimit).To(BeZero())
		Expect(msgLimit).To(BeZero())
	})

	It("returns zeros for non-JSON payloads", func() {
		toolLimit, msgLimit := extractPruningOverrides("not json")
		Expect(toolLimit).To(BeZero())
		Expect(msgLimit).To(BeZero())
	})
})
