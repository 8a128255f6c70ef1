package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/aymanh23/searchv2/agent"
	"github.com/aymanh23/searchv2/config"
	"github.com/aymanh23/searchv2/pipeline"
	"github.com/aymanh23/searchv2/streamers"
	"github.com/aymanh23/searchv2/websearch"
)

// buildSearcher wires the configured search provider into the pipeline's
// search capability.
func buildSearcher(cfg *config.Config) (websearch.Searcher, error) {
	sc := cfg.Search
	if sc == nil {
		return nil, fmt.Errorf("no search block in config; add one with a provider and api_key")
	}

	switch {
	case sc.Provider == config.SearchProviderSerper:
		opts := []websearch.SerperOption{websearch.WithMaxResults(sc.MaxResults)}
		if len(sc.TrustedSites) > 0 {
			opts = append(opts, websearch.WithTrustedSites(sc.TrustedSites))
		}
		return websearch.NewSerperClient(sc.APIKey, opts...), nil

	case sc.Provider == config.SearchProviderAgent:
		return agentSearcher(cfg, sc.Agent), nil

	case strings.HasPrefix(sc.Provider, "plugins."):
		client, toolName, err := cfg.GetPluginTool(sc.Provider)
		if err != nil {
			return nil, fmt.Errorf("search provider '%s': %w", sc.Provider, err)
		}
		return websearch.NewPluginSearcher(client, toolName), nil

	default:
		return nil, fmt.Errorf("unknown search provider '%s'", sc.Provider)
	}
}

// agentSearcher delegates each query to a fresh instance of the named agent.
// A new agent per query keeps one search's conversation state out of the
// next.
func agentSearcher(cfg *config.Config, agentName string) websearch.Searcher {
	return websearch.SearcherFunc(func(ctx context.Context, query string) (string, error) {
		a, err := agent.New(ctx, agent.Options{Config: cfg, AgentName: agentName})
		if err != nil {
			return "", fmt.Errorf("creating search agent: %w", err)
		}
		defer a.Close()

		input := fmt.Sprintf("Search for reliable medical information about: %s\n\n"+
			"Return everything you find as plain text.", query)
		result, err := a.Chat(ctx, input, streamers.NopChatHandler{})
		if err != nil {
			return "", err
		}
		if result.Answer != "" {
			return result.Answer, nil
		}
		return result.Output, nil
	})
}

// newCommunicatorFactory builds the conversational capability behind symptom
// extraction. Each session gets a fresh agent so patient transcripts stay
// isolated. The searcher backs the agent's medical_search tool when its
// config lists one; events, when non-nil, receives the agent's model and
// tool activity.
func newCommunicatorFactory(ctx context.Context, cfg *config.Config, debugFile string, events agent.EventLogger, searcher websearch.Searcher) pipeline.CommunicatorFactory {
	agentName := pipeline.SymptomExtractionTask().AgentName
	return func(chat streamers.ChatHandler) (pipeline.Communicator, error) {
		opts := agent.Options{
			Config:    cfg,
			AgentName: agentName,
			DebugFile: debugFile,
			Searcher:  searcher,
		}
		if events != nil {
			opts.EventLogger = agent.NewContextEventLogger(events, map[string]any{"agent": agentName})
		}
		a, err := agent.New(ctx, opts)
		if err != nil {
			return nil, err
		}
		return pipeline.NewAgentCommunicator(a, chat), nil
	}
}
