package config

import (
	"fmt"
	"strings"
)

// Search provider kinds. Provider may also be a full plugin tool reference
// in the form "plugins.{name}.{tool}".
const (
	SearchProviderSerper = "serper"
	SearchProviderAgent  = "agent"
)

// SearchConfig defines how condition searches are performed
type SearchConfig struct {
	// Provider is "serper" (direct API), "agent" (delegate to a searcher
	// agent), or a plugin tool reference like "plugins.sitereader.read_page"
	Provider string `hcl:"provider,optional"`
	APIKey   string `hcl:"api_key,optional"`
	Agent    string `hcl:"agent,optional"`
	// TrustedSites overrides the built-in list of medical sources queries
	// are pinned to; empty means use the websearch default
	TrustedSites []string `hcl:"trusted_sites,optional"`
	MaxResults   int      `hcl:"max_results,optional"`
}

// Defaults fills in default values for unset fields
func (s *SearchConfig) Defaults() {
	if s.Provider == "" {
		s.Provider = SearchProviderSerper
	}
	if s.MaxResults <= 0 {
		s.MaxResults = 5
	}
}

// Validate checks that required fields are set for the chosen provider
func (s *SearchConfig) Validate() error {
	switch {
	case s.Provider == SearchProviderSerper:
		if s.APIKey == "" {
			return fmt.Errorf("api_key is required for the serper provider")
		}
	case s.Provider == SearchProviderAgent:
		if s.Agent == "" {
			return fmt.Errorf("agent is required for the agent provider")
		}
	case strings.HasPrefix(s.Provider, "plugins."):
		parts := strings.Split(s.Provider, ".")
		if len(parts) != 3 {
			return fmt.Errorf("plugin provider must be in plugins.{name}.{tool} format, got '%s'", s.Provider)
		}
	default:
		return fmt.Errorf("unknown search provider '%s' (expected 'serper', 'agent' or a plugins.{name}.{tool} reference)", s.Provider)
	}
	return nil
}
