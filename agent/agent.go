package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/aymanh23/searchv2/agent/internal/prompts"
	"github.com/aymanh23/searchv2/aitools"
	"github.com/aymanh23/searchv2/config"
	"github.com/aymanh23/searchv2/llm"
	"github.com/aymanh23/searchv2/streamers"
)

// ChatResult represents the outcome of a chat interaction
type ChatResult struct {
	Answer   string // Final answer (if complete)
	AskUser  string // Clarifying question for the patient (if agent needs input)
	Output   string // Structured output block, JSON (if the agent emitted one)
	Complete bool   // True if the turn produced an answer or output
}

// Agent represents a fully initialized agent ready to chat
type Agent struct {
	Name      string
	ModelName string
	Mode      config.AgentMode

	session        *llm.Session
	tools          map[string]aitools.Tool
	provider       llm.Provider
	ownsProvider   bool // true if we created the provider and should close it
	resultStore    *aitools.MemoryResultStore
	interceptor    *aitools.ResultInterceptor
	pruningManager *llm.PruningManager
	compaction     *CompactionConfig // Compaction settings (nil if disabled)
	eventLogger    EventLogger
	turnLogger     *llm.TurnLogger // Persists across Chat() calls for consistent turn numbering
	usage          llm.Usage       // Cumulative token consumption across all model calls
}

// CompactionConfig holds settings for context compaction
type CompactionConfig struct {
	TokenLimit    int // Trigger compaction when input tokens exceed this threshold
	TurnRetention int // Keep this many recent turns uncompacted
}

// Options for creating an agent
type Options struct {
	// ConfigPath is the path to the config directory
	ConfigPath string
	// Config is the pre-loaded configuration (optional, avoids reloading and shares plugins)
	Config *config.Config
	// AgentName is the name of the agent to load
	AgentName string
	// Mode overrides the agent's default conversation mode (optional)
	Mode *config.AgentMode
	// DebugFile enables debug logging to the specified file (optional)
	DebugFile string
	// EventLogger provides structured event logging (optional)
	EventLogger EventLogger
	// TurnLogFile enables per-turn session snapshots to the specified JSONL file (optional)
	TurnLogFile string
	// Searcher backs the medical_search tool (optional; the tool reports the
	// missing provider at call time when nil)
	Searcher aitools.QuerySearcher
}

// New creates a new agent from config
func New(ctx context.Context, opts Options) (*Agent, error) {
	// Use provided config or load from path
	var cfg *config.Config
	var err error
	if opts.Config != nil {
		cfg = opts.Config
	} else {
		cfg, err = config.LoadAndValidate(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	// Find the agent config
	var agentCfg *config.Agent
	for _, a := range cfg.Agents {
		if a.Name == opts.AgentName {
			agentCfg = &a
			break
		}
	}

	if agentCfg == nil {
		return nil, fmt.Errorf("agent '%s' not found", opts.AgentName)
	}

	// Resolve model from config
	modelConfig, actualModelName, err := agentCfg.ResolveModel(cfg.Models)
	if err != nil {
		return nil, fmt.Errorf("resolving model: %w", err)
	}

	if modelConfig.APIKey == "" {
		return nil, fmt.Errorf("API key not set for model '%s'", modelConfig.Name)
	}

	// Create provider
	provider, ownsProvider, err := createProvider(ctx, modelConfig)
	if err != nil {
		return nil, fmt.Errorf("creating provider: %w", err)
	}

	// Build tools map
	tools := config.BuildToolsMap(agentCfg.Tools, cfg.CustomTools, cfg.LoadedPlugins, opts.Searcher)

	// Create result store and interceptor for large results
	resultStore := aitools.NewMemoryResultStore()
	interceptor := aitools.NewResultInterceptor(resultStore, aitools.DefaultLargeResultConfig())

	// Add result tools to agent's tool map
	tools["result_info"] = &aitools.ResultInfoTool{Store: resultStore}
	tools["result_items"] = &aitools.ResultItemsTool{Store: resultStore}
	tools["result_get"] = &aitools.ResultGetTool{Store: resultStore}
	tools["result_keys"] = &aitools.ResultKeysTool{Store: resultStore}
	tools["result_chunk"] = &aitools.ResultChunkTool{Store: resultStore}

	// Determine mode (defaults to conversation, can be overridden via Options)
	mode := config.ModeConversation
	if opts.Mode != nil {
		mode = *opts.Mode
	}

	// Build system prompts
	systemPrompts := []string{
		prompts.GetAgentPrompt(tools, mode),
		fmt.Sprintf("Personality: %s", agentCfg.Personality),
		fmt.Sprintf("Role: %s", agentCfg.Role),
	}

	// Create session
	session := llm.NewSession(provider, actualModelName, systemPrompts...)

	// Set stop sequences to prevent LLM from hallucinating observations
	session.SetStopSequences([]string{"___STOP___"})

	if opts.DebugFile != "" {
		if err := session.EnableDebug(opts.DebugFile); err != nil {
			// Non-fatal, just log warning
			fmt.Printf("Warning: could not enable debug logging: %v\n", err)
		}
	}

	// Create pruning manager tied to this session
	pruningManager := llm.NewPruningManager(
		session,
		agentCfg.GetSingleToolLimit(),
		agentCfg.GetAllToolLimit(),
		agentCfg.GetTurnLimit(),
	)

	// Extract compaction settings from config (if present)
	var compaction *CompactionConfig
	if agentCfg.Compaction != nil {
		compaction = &CompactionConfig{
			TokenLimit:    agentCfg.Compaction.TokenLimit,
			TurnRetention: agentCfg.Compaction.TurnRetention,
		}
	}

	// Create turn logger if path provided (persists across Chat() calls)
	var turnLogger *llm.TurnLogger
	if opts.TurnLogFile != "" {
		if tl, err := llm.NewTurnLogger(opts.TurnLogFile); err == nil {
			turnLogger = tl
		}
	}

	return &Agent{
		Name:           agentCfg.Name,
		ModelName:      actualModelName,
		Mode:           mode,
		session:        session,
		tools:          tools,
		provider:       provider,
		ownsProvider:   ownsProvider,
		resultStore:    resultStore,
		interceptor:    interceptor,
		pruningManager: pruningManager,
		compaction:     compaction,
		eventLogger:    opts.EventLogger,
		turnLogger:     turnLogger,
	}, nil
}

// Close releases resources held by the agent
func (a *Agent) Close() {
	if a.session != nil {
		a.session.Close()
	}
	if a.turnLogger != nil {
		a.turnLogger.Close()
	}
	if a.ownsProvider {
		if closer, ok := a.provider.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

// Chat processes a single message and returns a ChatResult
// The streamer receives real-time updates during processing
func (a *Agent) Chat(ctx context.Context, input string, streamer streamers.ChatHandler) (ChatResult, error) {
	orchestrator := newOrchestrator(a.session, streamer, a.tools, a.interceptor, a.pruningManager, a.eventLogger, a.turnLogger, a.compaction, &a.usage)
	return orchestrator.processTurn(ctx, input)
}

// RespondToQuestion feeds the patient's reply to an earlier ASK_USER question
// back into the conversation and continues processing until the agent either
// completes or asks again.
func (a *Agent) RespondToQuestion(ctx context.Context, answer string, streamer streamers.ChatHandler) (ChatResult, error) {
	input := fmt.Sprintf("<PATIENT_RESPONSE>\n%s\n</PATIENT_RESPONSE>", answer)
	orchestrator := newOrchestrator(a.session, streamer, a.tools, a.interceptor, a.pruningManager, a.eventLogger, a.turnLogger, a.compaction, &a.usage)
	return orchestrator.processTurn(ctx, input)
}

// AnswerFollowUp handles a follow-up question using the agent's existing conversation context.
// The agent answers from memory without executing any tool calls.
func (a *Agent) AnswerFollowUp(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf(`<FOLLOWUP_QUESTION>%s</FOLLOWUP_QUESTION>

Answer this question based on your previous work. Do not use any tools.
Provide a direct, factual answer wrapped in <ANSWER> tags.`, question)

	resp, err := a.session.Send(ctx, prompt)
	if err != nil {
		return "", err
	}
	a.usage.Add(resp.Usage)

	// Parse the answer from the response
	content := resp.Content
	if idx := strings.Index(content, "<ANSWER>"); idx != -1 {
		content = content[idx+8:]
		if endIdx := strings.Index(content, "</ANSWER>"); endIdx != -1 {
			content = content[:endIdx]
		}
	}

	return strings.TrimSpace(content), nil
}

// GetTools returns the agent's available tools
func (a *Agent) GetTools() map[string]aitools.Tool {
	return a.tools
}

// SessionHistory returns a snapshot of the agent's conversation messages
func (a *Agent) SessionHistory() []llm.Message {
	return a.session.SnapshotMessages()
}

// Usage returns the tokens consumed across every model call this agent has
// made. Callers use it with the pricing table to report session cost.
func (a *Agent) Usage() llm.Usage {
	return a.usage
}

// createProvider creates the appropriate LLM provider based on config
func createProvider(ctx context.Context, modelConfig *config.Model) (llm.Provider, bool, error) {
	switch modelConfig.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIProvider(modelConfig.APIKey), false, nil
	case config.ProviderAnthropic:
		return llm.NewAnthropicProvider(modelConfig.APIKey), false, nil
	case config.ProviderGemini:
		provider, err := llm.NewGeminiProvider(ctx, modelConfig.APIKey)
		if err != nil {
			return nil, false, err
		}
		return provider, true, nil // Gemini provider needs to be closed
	default:
		return nil, false, fmt.Errorf("unknown provider: %s", modelConfig.Provider)
	}
}
