package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aymanh23/searchv2/aitools"
	"github.com/aymanh23/searchv2/llm"
	"github.com/aymanh23/searchv2/streamers"
)

// llmSession defines the interface for LLM session operations needed by the orchestrator
type llmSession interface {
	// SendStream sends a message and streams the response, calling onChunk for each chunk
	SendStream(ctx context.Context, userMessage string, onChunk func(chunk llm.StreamChunk)) (*llm.ChatResponse, error)
	// SnapshotMessages returns a copy of the current session messages
	SnapshotMessages() []llm.Message
	// Compact summarizes older turns, keeping the last turnRetention turns intact
	Compact(turnRetention int) int
}

// orchestrator handles the agent conversation loop
type orchestrator struct {
	session     llmSession
	streamer    streamers.ChatHandler
	tools       map[string]aitools.Tool
	interceptor *aitools.ResultInterceptor
	pruning     *llm.PruningManager
	events      EventLogger
	turnLogger  *llm.TurnLogger
	compaction  *CompactionConfig
	usage       *llm.Usage // accumulates across model calls when non-nil
}

// newOrchestrator creates a new chat orchestrator
func newOrchestrator(
	session llmSession,
	streamer streamers.ChatHandler,
	tools map[string]aitools.Tool,
	interceptor *aitools.ResultInterceptor,
	pruning *llm.PruningManager,
	events EventLogger,
	turnLogger *llm.TurnLogger,
	compaction *CompactionConfig,
	usage *llm.Usage,
) *orchestrator {
	return &orchestrator{
		session:     session,
		streamer:    streamer,
		tools:       tools,
		interceptor: interceptor,
		pruning:     pruning,
		events:      events,
		turnLogger:  turnLogger,
		compaction:  compaction,
		usage:       usage,
	}
}

// processTurn handles a single conversation turn, including any tool calls.
// Returns a ChatResult carrying either a final answer/output (complete) or an
// ASK_USER question that needs a reply from the patient before continuing.
func (o *orchestrator) processTurn(ctx context.Context, input string) (ChatResult, error) {
	currentInput := input
	var finalAnswer string
	var finalOutput string

	// Pruning registration is deferred by one round trip: the observation only
	// lands in the session once the next SendStream appends it.
	var pendingTool string
	var pendingToolLimit, pendingMsgLimit int

	for {
		select {
		case <-ctx.Done():
			return ChatResult{}, ctx.Err()
		default:
		}

		// Create parser for this message
		parser := NewMessageParser(o.streamer)

		if o.events != nil {
			o.events.LogEvent("llm_start", map[string]any{})
		}
		llmStart := time.Now()

		resp, err := o.session.SendStream(ctx, currentInput, func(chunk llm.StreamChunk) {
			if chunk.Content != "" {
				parser.ProcessChunk(chunk.Content)
			}
		})

		if resp != nil && o.usage != nil {
			o.usage.Add(resp.Usage)
		}

		if o.events != nil {
			eventData := map[string]any{
				"duration_ms": time.Since(llmStart).Milliseconds(),
			}
			if resp != nil {
				eventData["input_tokens"] = resp.Usage.InputTokens
				eventData["output_tokens"] = resp.Usage.OutputTokens
				// Include cache-related tokens if present
				if resp.Usage.CacheCreationInputTokens > 0 {
					eventData["cache_creation_input_tokens"] = resp.Usage.CacheCreationInputTokens
				}
				if resp.Usage.CacheReadInputTokens > 0 {
					eventData["cache_read_input_tokens"] = resp.Usage.CacheReadInputTokens
				}
				if resp.Usage.CachedTokens > 0 {
					eventData["cached_tokens"] = resp.Usage.CachedTokens
				}
			}
			o.events.LogEvent("llm_end", eventData)
		}

		parser.Finish()

		if err != nil {
			o.streamer.Error(err)
			return ChatResult{}, err
		}

		// Determine action for turn logging
		action := parser.GetAction()

		// Log turn snapshot
		if o.turnLogger != nil {
			o.turnLogger.LogTurn(action, o.session.SnapshotMessages())
		}

		// The previous iteration's observation is now in the session; register
		// it so old tool results get pruned under the configured limits.
		if pendingTool != "" && o.pruning != nil {
			o.pruning.RegisterAndPrune(pendingTool, pendingToolLimit, pendingMsgLimit)
		}
		pendingTool = ""
		pendingToolLimit, pendingMsgLimit = 0, 0

		// Compact after pruning registration so tracked indices stay valid
		// at the moment results are registered.
		if o.compaction != nil && resp != nil && resp.Usage.InputTokens > o.compaction.TokenLimit {
			compacted := o.session.Compact(o.compaction.TurnRetention)
			if compacted > 0 && o.events != nil {
				o.events.LogEvent("compaction", map[string]any{
					"compacted_messages": compacted,
					"turn_retention":     o.compaction.TurnRetention,
				})
			}
		}

		// Check for ASK_USER first (takes priority - agent needs patient input)
		if askUser := parser.GetAskUser(); askUser != "" {
			return ChatResult{AskUser: askUser, Complete: false}, nil
		}

		// Capture the answer if one was provided
		if answer := parser.GetAnswer(); answer != "" {
			finalAnswer = answer
		}

		// Capture structured output if one was provided
		if output := parser.GetOutput(); output != "" {
			finalOutput = output
		}

		// Check if there's an action to call
		if action == "" {
			break // No tool call, done with this turn
		}

		actionInput := parser.GetActionInput()
		o.streamer.CallingTool(action, actionInput)

		if o.events != nil {
			o.events.LogEvent("tool_call", map[string]any{
				"tool":  action,
				"input": actionInput,
			})
		}

		// Look up the tool
		tool := o.lookupTool(action)
		if tool == nil {
			o.streamer.ToolComplete(action)
			currentInput = fmt.Sprintf("<OBSERVATION>\nError: Tool '%s' not found\n</OBSERVATION>", action)
			continue
		}

		// Execute the tool
		toolStart := time.Now()
		result := tool.Call(actionInput)

		o.streamer.ToolComplete(action)

		if o.events != nil {
			o.events.LogEvent("tool_result", map[string]any{
				"tool":        action,
				"result":      result,
				"duration_ms": time.Since(toolStart).Milliseconds(),
			})
		}

		pendingTool = action
		pendingToolLimit, pendingMsgLimit = extractPruningOverrides(actionInput)

		currentInput = o.formatObservation(action, result)
	}

	return ChatResult{
		Answer:   finalAnswer,
		Output:   finalOutput,
		Complete: finalAnswer != "" || finalOutput != "",
	}, nil
}

// lookupTool finds a tool by name
func (o *orchestrator) lookupTool(name string) aitools.Tool {
	if tool, ok := o.tools[name]; ok {
		return tool
	}
	return nil
}

// formatObservation formats a tool result as an observation, with optional metadata
func (o *orchestrator) formatObservation(toolName, result string) string {
	if o.interceptor == nil {
		return fmt.Sprintf("<OBSERVATION>\n%s\n</OBSERVATION>", result)
	}

	ir := o.interceptor.Intercept(toolName, result)
	if ir.Metadata == "" {
		return fmt.Sprintf("<OBSERVATION>\n%s\n</OBSERVATION>", ir.Data)
	}

	return fmt.Sprintf("<OBSERVATION>\n%s\n</OBSERVATION>\n<OBSERVATION_METADATA>\n%s\n</OBSERVATION_METADATA>", ir.Data, ir.Metadata)
}

// extractPruningOverrides pulls the optional pruning parameters out of a tool
// payload. Tools ignore the extra keys; they only steer result retention.
func extractPruningOverrides(actionInput string) (toolLimit, msgLimit int) {
	var params map[string]any
	if err := json.Unmarshal([]byte(actionInput), &params); err != nil {
		return 0, 0
	}
	if v, ok := params["single_tool_limit"].(float64); ok {
		toolLimit = int(v)
	}
	if v, ok := params["all_tool_limit"].(float64); ok {
		msgLimit = int(v)
	}
	return toolLimit, msgLimit
}
