package config

import (
	"strings"

	"github.com/aymanh23/searchv2/aitools"
	"github.com/aymanh23/searchv2/plugin"
)

// BuildToolsMap creates a map of tool name -> Tool implementation from the agent's tools list
// Tools can be:
//   - Plugin tools: plugins.http.get, plugins.medical.symptom_scan, plugins.sitereader.read_page
//   - Custom tools: tools.condition_lookup (defined in HCL)
//
// searcher provides the backend for the medical_search tool; pass nil when no
// search provider is configured and the tool will report that at call time.
func BuildToolsMap(agentTools []string, customTools []CustomTool, loadedPlugins map[string]*plugin.PluginClient, searcher aitools.QuerySearcher) map[string]aitools.Tool {
	tools := make(map[string]aitools.Tool)

	// Build a lookup map for custom tool definitions
	customToolMap := make(map[string]*CustomTool)
	for i := range customTools {
		customToolMap[customTools[i].Name] = &customTools[i]
	}

	// Add tools from the agent's tools list
	for _, toolRef := range agentTools {
		// Check for "plugins.{name}.all" - expand to all tools from that plugin
		if strings.HasPrefix(toolRef, "plugins.") && strings.HasSuffix(toolRef, ".all") {
			parts := strings.Split(toolRef, ".")
			if len(parts) == 3 {
				pluginName := parts[1]
				// Check internal plugins first
				if internalTools, ok := InternalPluginTools[pluginName]; ok {
					for _, toolName := range internalTools {
						ref := "plugins." + pluginName + "." + toolName
						tool := GetInternalPluginTool(ref, searcher)
						if tool != nil {
							tools[ref] = tool
						}
					}
				} else if client, ok := loadedPlugins[pluginName]; ok {
					// External plugin - get all tools
					pluginTools, err := client.ListTools()
					if err == nil {
						for _, t := range pluginTools {
							ref := "plugins." + pluginName + "." + t.Name
							if tool, err := client.GetTool(t.Name); err == nil {
								tools[ref] = tool
							}
						}
					}
				}
			}
			continue
		}

		// Check if it's a plugin tool reference (plugins.{namespace}.{tool})
		if IsInternalPluginTool(toolRef) {
			// Internal plugin tool (http, medical)
			tool := GetInternalPluginTool(toolRef, searcher)
			if tool != nil {
				tools[toolRef] = tool
			}
		} else if strings.HasPrefix(toolRef, "plugins.") {
			// External plugin tool
			parts := strings.Split(toolRef, ".")
			if len(parts) == 3 {
				pluginName := parts[1]
				toolName := parts[2]
				if client, ok := loadedPlugins[pluginName]; ok {
					if tool, err := client.GetTool(toolName); err == nil {
						tools[toolRef] = tool
					}
				}
			}
		} else if strings.HasPrefix(toolRef, "tools.") {
			// Custom tool reference (tools.condition_lookup)
			customToolName := strings.TrimPrefix(toolRef, "tools.")
			if ct, ok := customToolMap[customToolName]; ok {
				tool := ct.ToToolWithPlugins(loadedPlugins)
				if tool != nil {
					tools[toolRef] = tool
				}
			}
		}
	}

	return tools
}

// GetInternalPluginTool returns the aitools.Tool for an internal plugin tool reference
// searcher is optional and only used by the medical_search tool.
func GetInternalPluginTool(ref string, searcher aitools.QuerySearcher) aitools.Tool {
	switch ref {
	case "plugins.http.get":
		return &aitools.HTTPGetTool{}
	case "plugins.http.post":
		return &aitools.HTTPPostTool{}
	case "plugins.medical.symptom_scan":
		return aitools.NewSymptomScanTool()
	case "plugins.medical.medical_search":
		return &aitools.MedicalSearchTool{Searcher: searcher}
	default:
		return nil
	}
}
