package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/aymanh23/searchv2/plugin"
)

// Config holds all configuration
type Config struct {
	Models      []Model      `hcl:"model,block"`
	Agents      []Agent      `hcl:"agent,block"`
	Variables   []Variable   `hcl:"variable,block"`
	CustomTools []CustomTool `hcl:"tool,block"`
	Plugins     []Plugin     `hcl:"plugin,block"`

	// Singleton blocks
	Search  *SearchConfig  `hcl:"search,block"`
	Storage *StorageConfig `hcl:"storage,block"`
	Server  *ServerConfig  `hcl:"server,block"`

	// LoadedPlugins holds the loaded plugin clients, keyed by plugin name
	LoadedPlugins map[string]*plugin.PluginClient `hcl:"-"`
	// PluginWarnings holds warnings for plugins that could not be loaded
	PluginWarnings []string `hcl:"-"`
	// ResolvedVars holds the resolved variable values for runtime use
	ResolvedVars map[string]cty.Value `hcl:"-"`
}

func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// LoadAndValidate loads the config and validates all components
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all config components are valid
func (c *Config) Validate() error {
	for _, m := range c.Models {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("model '%s': %w", m.Name, err)
		}
	}

	for _, v := range c.Variables {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("variable '%s': %w", v.Name, err)
		}
	}

	for _, a := range c.Agents {
		if err := a.Validate(); err != nil {
			return err
		}
	}

	// Validate plugins
	for _, p := range c.Plugins {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("plugin '%s': %w", p.Name, err)
		}
	}

	// Validate custom tools and check for reserved name conflicts
	for _, t := range c.CustomTools {
		if err := t.Validate(); err != nil {
			return err
		}
		for _, tools := range InternalPluginTools {
			for _, toolName := range tools {
				if t.Name == toolName {
					return fmt.Errorf("custom tool '%s': name conflicts with internal tool", t.Name)
				}
			}
		}
	}

	// Build valid tool references for validation
	// Format: plugins.{namespace}.{tool} for internal/external plugins
	//         tools.{name} for custom tools
	validToolRefs := make(map[string]bool)

	// Add internal plugin tools (plugins.http.get, plugins.medical.symptom_scan, etc.)
	for namespace, tools := range InternalPluginTools {
		for _, toolName := range tools {
			validToolRefs[fmt.Sprintf("plugins.%s.%s", namespace, toolName)] = true
		}
		// Add "all" marker for loading all tools from this plugin
		validToolRefs[fmt.Sprintf("plugins.%s.all", namespace)] = true
	}

	// Add external plugin tools
	for pluginName, client := range c.LoadedPlugins {
		tools, err := client.ListTools()
		if err == nil {
			for _, t := range tools {
				validToolRefs[fmt.Sprintf("plugins.%s.%s", pluginName, t.Name)] = true
			}
		}
		// Add "all" marker for loading all tools from this plugin
		validToolRefs[fmt.Sprintf("plugins.%s.all", pluginName)] = true
	}

	// Add custom tools
	for _, t := range c.CustomTools {
		validToolRefs[fmt.Sprintf("tools.%s", t.Name)] = true
	}

	// Validate tool references in agents
	for _, a := range c.Agents {
		for _, toolRef := range a.Tools {
			if !validToolRefs[toolRef] {
				return fmt.Errorf("agent '%s': unknown tool '%s'. Available tools: %v", a.Name, toolRef, getToolNames(validToolRefs))
			}
		}
	}

	// Validate singleton blocks
	if c.Search != nil {
		if err := c.Search.Validate(); err != nil {
			return fmt.Errorf("search: %w", err)
		}
		if c.Search.Provider == SearchProviderAgent {
			if _, err := c.GetAgent(c.Search.Agent); err != nil {
				return fmt.Errorf("search: %w", err)
			}
		}
	}
	if c.Storage != nil {
		if err := c.Storage.Validate(); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}

	return nil
}

// GetAgent returns the agent config with the given name
func (c *Config) GetAgent(name string) (*Agent, error) {
	for i := range c.Agents {
		if c.Agents[i].Name == name {
			return &c.Agents[i], nil
		}
	}
	return nil, fmt.Errorf("agent '%s' not found", name)
}

// getToolNames returns a sorted list of tool names from the map
func getToolNames(tools map[string]bool) []string {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	return names
}

func LoadFile(filename string) (*Config, error) {
	return loadFromFiles([]string{filename})
}

func LoadDir(dir string) (*Config, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.hcl"))
	if err != nil {
		return nil, err
	}
	return loadFromFiles(files)
}

// parsedBlocks holds all blocks extracted from a file in one pass
type parsedBlocks struct {
	Variables []*hcl.Block
	Models    []*hcl.Block
	Agents    []*hcl.Block
	Tools     []*hcl.Block
	Plugins   []*hcl.Block
	Searches  []*hcl.Block
	Storages  []*hcl.Block
	Servers   []*hcl.Block
}

// loadFromFiles implements staged loading: variables → plugins → models →
// tools → agents → singleton blocks. Later stages can reference the
// namespaces built by earlier ones.
func loadFromFiles(files []string) (*Config, error) {
	// Parse all files and extract all block types in a single pass
	parser := hclparse.NewParser()
	var allParsedBlocks []parsedBlocks

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("[1] parse %s: %w", file, diags)
		}

		// Extract all known block types in one PartialContent call
		content, _, diags := hclFile.Body.PartialContent(&hcl.BodySchema{
			Blocks: []hcl.BlockHeaderSchema{
				{Type: "variable", LabelNames: []string{"name"}},
				{Type: "model", LabelNames: []string{"name"}},
				{Type: "agent", LabelNames: []string{"name"}},
				{Type: "tool", LabelNames: []string{"name"}},
				{Type: "plugin", LabelNames: []string{"name"}},
				{Type: "search"},
				{Type: "storage"},
				{Type: "server"},
			},
		})
		if diags.HasErrors() {
			return nil, fmt.Errorf("[2] partial content %s: %w", file, diags)
		}

		var pb parsedBlocks
		for _, block := range content.Blocks {
			switch block.Type {
			case "variable":
				pb.Variables = append(pb.Variables, block)
			case "model":
				pb.Models = append(pb.Models, block)
			case "agent":
				pb.Agents = append(pb.Agents, block)
			case "tool":
				pb.Tools = append(pb.Tools, block)
			case "plugin":
				pb.Plugins = append(pb.Plugins, block)
			case "search":
				pb.Searches = append(pb.Searches, block)
			case "storage":
				pb.Storages = append(pb.Storages, block)
			case "server":
				pb.Servers = append(pb.Servers, block)
			}
		}
		allParsedBlocks = append(allParsedBlocks, pb)
	}

	// Stage 1: Load variables (no context needed)
	var allVars []Variable
	for _, pb := range allParsedBlocks {
		for _, block := range pb.Variables {
			var v Variable
			v.Name = block.Labels[0]
			diags := gohcl.DecodeBody(block.Body, nil, &v)
			if diags.HasErrors() {
				return nil, fmt.Errorf("[3] decode variable %s: %w", v.Name, diags)
			}
			allVars = append(allVars, v)
		}
	}

	// Build vars context
	varsCtx, resolvedVars := buildVarsContext(allVars)

	// Stage 2: Load plugins (with vars context - plugins load early so tools can reference them)
	var allPlugins []Plugin
	var pluginWarnings []string
	loadedPlugins := make(map[string]*plugin.PluginClient)

	for _, pb := range allParsedBlocks {
		for _, block := range pb.Plugins {
			p, err := parsePluginBlock(block, varsCtx)
			if err != nil {
				return nil, err
			}
			allPlugins = append(allPlugins, *p)

			// Try to load the plugin (passes source for auto-download if not found locally)
			client, err := plugin.LoadPlugin(p.Name, p.Version, p.Source)
			if err != nil {
				pluginWarnings = append(pluginWarnings, fmt.Sprintf("plugin '%s' (version %s): %v", p.Name, p.Version, err))
			} else {
				// Configure the plugin with settings if any
				if len(p.Settings) > 0 {
					if err := client.Configure(p.Settings); err != nil {
						pluginWarnings = append(pluginWarnings, fmt.Sprintf("plugin '%s' configure: %v", p.Name, err))
						client.Close()
						continue
					}
				}
				loadedPlugins[p.Name] = client
			}
		}
	}

	// Build plugins context for HCL evaluation
	pluginsCtx := buildPluginsContext(varsCtx, loadedPlugins)

	// Stage 3: Load models (with vars + plugins context)
	var allModels []Model
	for _, pb := range allParsedBlocks {
		for _, block := range pb.Models {
			var m Model
			m.Name = block.Labels[0]
			diags := gohcl.DecodeBody(block.Body, pluginsCtx, &m)
			if diags.HasErrors() {
				return nil, diags
			}
			allModels = append(allModels, m)
		}
	}

	// Build models context (add to plugins context)
	modelsCtx := buildModelsContext(pluginsCtx, allModels)

	// Stage 4: Load custom tools (with vars + models + plugins context, plus dynamic field parsing)
	var allTools []CustomTool
	for _, pb := range allParsedBlocks {
		for _, block := range pb.Tools {
			tool, err := parseToolBlock(block, modelsCtx, loadedPlugins)
			if err != nil {
				return nil, err
			}
			allTools = append(allTools, *tool)
		}
	}

	// Build tools context (add to models context) - includes both internal and custom tools
	fullCtx := buildToolsContext(modelsCtx, allTools)

	// Stage 5: Load agents (with vars + models + tools context)
	var allAgents []Agent
	for _, pb := range allParsedBlocks {
		for _, block := range pb.Agents {
			var a Agent
			a.Name = block.Labels[0]
			diags := gohcl.DecodeBody(block.Body, fullCtx, &a)
			if diags.HasErrors() {
				return nil, diags
			}
			allAgents = append(allAgents, a)
		}
	}

	// Build agents context (add to full context)
	agentsCtx := buildAgentsContext(fullCtx, allAgents)

	// Stage 6: Load singleton blocks (with the full context so they can
	// reference vars and agents)
	var searchCfg *SearchConfig
	var storageCfg *StorageConfig
	var serverCfg *ServerConfig

	for _, pb := range allParsedBlocks {
		for _, block := range pb.Searches {
			if searchCfg != nil {
				return nil, fmt.Errorf("multiple search blocks defined; only one is allowed")
			}
			var sc SearchConfig
			diags := gohcl.DecodeBody(block.Body, agentsCtx, &sc)
			if diags.HasErrors() {
				return nil, fmt.Errorf("decode search block: %w", diags)
			}
			sc.Defaults()
			searchCfg = &sc
		}
		for _, block := range pb.Storages {
			if storageCfg != nil {
				return nil, fmt.Errorf("multiple storage blocks defined; only one is allowed")
			}
			var st StorageConfig
			diags := gohcl.DecodeBody(block.Body, agentsCtx, &st)
			if diags.HasErrors() {
				return nil, fmt.Errorf("decode storage block: %w", diags)
			}
			st.Defaults()
			storageCfg = &st
		}
		for _, block := range pb.Servers {
			if serverCfg != nil {
				return nil, fmt.Errorf("multiple server blocks defined; only one is allowed")
			}
			var sv ServerConfig
			diags := gohcl.DecodeBody(block.Body, agentsCtx, &sv)
			if diags.HasErrors() {
				return nil, fmt.Errorf("decode server block: %w", diags)
			}
			sv.Defaults()
			serverCfg = &sv
		}
	}

	return &Config{
		Variables:      allVars,
		Models:         allModels,
		Agents:         allAgents,
		CustomTools:    allTools,
		Plugins:        allPlugins,
		Search:         searchCfg,
		Storage:        storageCfg,
		Server:         serverCfg,
		LoadedPlugins:  loadedPlugins,
		PluginWarnings: pluginWarnings,
		ResolvedVars:   resolvedVars,
	}, nil
}

// inputFieldBlock is used for parsing input field blocks
type inputFieldBlock struct {
	Name        string `hcl:"name,label"`
	Type        string `hcl:"type"`
	Description string `hcl:"description,optional"`
	Required    bool   `hcl:"required,optional"`
}

// inputsBlock is used for parsing the inputs block
type inputsBlock struct {
	Fields []inputFieldBlock `hcl:"field,block"`
}

// parseToolBlock parses a single tool block with dynamic fields based on implemented tool schema
func parseToolBlock(block *hcl.Block, baseCtx *hcl.EvalContext, loadedPlugins map[string]*plugin.PluginClient) (*CustomTool, error) {
	toolName := block.Labels[0]

	// Parse the tool block content: static fields (implements, description) + inputs block + dynamic fields
	toolContent, remainBody, diags := block.Body.PartialContent(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "implements", Required: true},
			{Name: "description"},
		},
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "inputs"},
		},
	})
	if diags.HasErrors() {
		return nil, diags
	}

	// Get implements attribute
	implementsAttr := toolContent.Attributes["implements"]
	implementsVal, diags := implementsAttr.Expr.Value(baseCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	implements := implementsVal.AsString()

	// Get optional description
	var description string
	if descAttr, ok := toolContent.Attributes["description"]; ok {
		descVal, diags := descAttr.Expr.Value(baseCtx)
		if diags.HasErrors() {
			return nil, diags
		}
		description = descVal.AsString()
	}

	tool := &CustomTool{
		Name:        toolName,
		Implements:  implements,
		Description: description,
		Inputs:      nil,
		FieldExprs:  make(map[string]hcl.Expression),
	}

	// Get the implemented tool's schema (supports both internal and plugin tools)
	implTool := tool.GetImplementedToolWithPlugins(loadedPlugins)
	if implTool == nil {
		return nil, fmt.Errorf("tool '%s': unknown implemented tool '%s'", toolName, implements)
	}

	// Parse inputs block if present
	for _, blk := range toolContent.Blocks {
		if blk.Type == "inputs" {
			var parsedInputs inputsBlock
			diags := gohcl.DecodeBody(blk.Body, nil, &parsedInputs)
			if diags.HasErrors() {
				return nil, diags
			}

			tool.Inputs = &InputsSchema{}
			for _, f := range parsedInputs.Fields {
				tool.Inputs.Fields = append(tool.Inputs.Fields, InputField{
					Name:        f.Name,
					Type:        f.Type,
					Description: f.Description,
					Required:    f.Required,
				})
			}
		}
	}

	// Build eval context with inputs placeholder to validate expressions
	inputsType := tool.BuildInputsCtyType()
	toolCtx := BuildFieldsEvalContext(baseCtx, inputsType)

	// Get the remaining attributes (dynamic fields from the implemented tool's schema)
	// Build schema for remaining attributes based on implemented tool's schema
	implSchema := implTool.ToolPayloadSchema()
	var attrSchemas []hcl.AttributeSchema
	for propName := range implSchema.Properties {
		attrSchemas = append(attrSchemas, hcl.AttributeSchema{Name: propName})
	}

	remainContent, _, diags := remainBody.PartialContent(&hcl.BodySchema{
		Attributes: attrSchemas,
	})
	if diags.HasErrors() {
		return nil, diags
	}

	for attrName, attr := range remainContent.Attributes {
		// Verify this is a valid field from the implemented tool's schema
		if _, ok := implSchema.Properties[attrName]; !ok {
			return nil, fmt.Errorf("tool '%s': unknown field '%s' - not part of '%s' tool schema", toolName, attrName, implements)
		}

		// Validate the expression can be evaluated (with unknown inputs)
		_, diags := attr.Expr.Value(toolCtx)
		if diags.HasErrors() {
			return nil, diags
		}

		// Store the expression for runtime evaluation
		tool.FieldExprs[attrName] = attr.Expr
	}

	return tool, nil
}

// buildVarsContext creates context with just vars
func buildVarsContext(vars []Variable) (*hcl.EvalContext, map[string]cty.Value) {
	varsMap := make(map[string]cty.Value)
	fileVars, _ := LoadVarsFromFile()
	for _, v := range vars {
		if val, ok := fileVars[v.Name]; ok {
			varsMap[v.Name] = cty.StringVal(val)
		} else if v.Default != "" {
			varsMap[v.Name] = cty.StringVal(v.Default)
		} else {
			varsMap[v.Name] = cty.StringVal("")
		}
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"vars": cty.ObjectVal(varsMap),
		},
	}, varsMap
}

// buildModelsContext adds models to existing context
func buildModelsContext(ctx *hcl.EvalContext, models []Model) *hcl.EvalContext {
	modelsMap := make(map[string]cty.Value)
	for _, m := range models {
		providerModels := make(map[string]cty.Value)
		for _, modelKey := range m.AllowedModels {
			providerModels[modelKey] = cty.StringVal(modelKey)
		}
		modelsMap[m.Name] = cty.ObjectVal(providerModels)
	}

	// Copy existing vars and add models
	newVars := make(map[string]cty.Value)
	for k, v := range ctx.Variables {
		newVars[k] = v
	}
	newVars["models"] = cty.ObjectVal(modelsMap)

	return &hcl.EvalContext{
		Variables: newVars,
	}
}

// buildToolsContext adds tools namespace to existing context (custom tools only)
// Internal tools live in the plugins namespace (plugins.http.get, plugins.medical.symptom_scan)
func buildToolsContext(ctx *hcl.EvalContext, customTools []CustomTool) *hcl.EvalContext {
	toolsMap := make(map[string]cty.Value)

	// Add custom tools with tools.{name} reference format
	for _, t := range customTools {
		toolsMap[t.Name] = cty.StringVal(fmt.Sprintf("tools.%s", t.Name))
	}

	// Copy existing vars and add tools
	newVars := make(map[string]cty.Value)
	for k, v := range ctx.Variables {
		newVars[k] = v
	}
	newVars["tools"] = cty.ObjectVal(toolsMap)

	return &hcl.EvalContext{
		Variables: newVars,
	}
}

// buildPluginsContext adds plugins namespace to existing context
// Creates plugins.{plugin_name}.{tool_name} references
// Includes both internal tools (http, medical) and external plugins
func buildPluginsContext(ctx *hcl.EvalContext, loadedPlugins map[string]*plugin.PluginClient) *hcl.EvalContext {
	pluginsMap := make(map[string]cty.Value)

	// Add internal plugin namespaces (http, medical)
	for namespace, tools := range InternalPluginTools {
		toolsMap := make(map[string]cty.Value)
		for _, toolName := range tools {
			toolsMap[toolName] = cty.StringVal(fmt.Sprintf("plugins.%s.%s", namespace, toolName))
		}
		// Add "all" marker that expands to all tools from this plugin
		toolsMap["all"] = cty.StringVal(fmt.Sprintf("plugins.%s.all", namespace))
		pluginsMap[namespace] = cty.ObjectVal(toolsMap)
	}

	// Add external plugins
	for pluginName, client := range loadedPlugins {
		toolsMap := make(map[string]cty.Value)
		tools, err := client.ListTools()
		if err == nil {
			for _, t := range tools {
				// Value is "plugins.{plugin_name}.{tool_name}" to identify the source
				toolsMap[t.Name] = cty.StringVal(fmt.Sprintf("plugins.%s.%s", pluginName, t.Name))
			}
		}
		// Add "all" marker that expands to all tools from this plugin
		toolsMap["all"] = cty.StringVal(fmt.Sprintf("plugins.%s.all", pluginName))
		pluginsMap[pluginName] = cty.ObjectVal(toolsMap)
	}

	// Copy existing vars and add plugins
	newVars := make(map[string]cty.Value)
	for k, v := range ctx.Variables {
		newVars[k] = v
	}
	newVars["plugins"] = cty.ObjectVal(pluginsMap)

	return &hcl.EvalContext{
		Variables: newVars,
	}
}

// GetPluginTool returns a plugin tool by its implements string (e.g., "plugins.sitereader.read_page")
func (c *Config) GetPluginTool(implements string) (*plugin.PluginClient, string, error) {
	parts := strings.Split(implements, ".")
	if len(parts) != 3 || parts[0] != "plugins" {
		return nil, "", fmt.Errorf("invalid plugin tool reference: %s", implements)
	}

	pluginName := parts[1]
	toolName := parts[2]

	client, ok := c.LoadedPlugins[pluginName]
	if !ok {
		return nil, "", fmt.Errorf("plugin '%s' not loaded", pluginName)
	}

	return client, toolName, nil
}

// buildAgentsContext adds agents namespace to existing context
// Creates agents.{agent_name} references
func buildAgentsContext(ctx *hcl.EvalContext, agents []Agent) *hcl.EvalContext {
	agentsMap := make(map[string]cty.Value)
	for _, a := range agents {
		agentsMap[a.Name] = cty.StringVal(a.Name)
	}

	// Copy existing vars and add agents
	newVars := make(map[string]cty.Value)
	for k, v := range ctx.Variables {
		newVars[k] = v
	}
	newVars["agents"] = cty.ObjectVal(agentsMap)

	return &hcl.EvalContext{
		Variables: newVars,
	}
}

// parsePluginBlock parses a plugin block with optional settings
func parsePluginBlock(block *hcl.Block, ctx *hcl.EvalContext) (*Plugin, error) {
	pluginName := block.Labels[0]

	// Parse the plugin block content
	pluginContent, _, diags := block.Body.PartialContent(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "source", Required: true},
			{Name: "version", Required: true},
		},
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "settings"},
		},
	})
	if diags.HasErrors() {
		return nil, fmt.Errorf("plugin '%s': %w", pluginName, diags)
	}

	// Get source
	sourceVal, diags := pluginContent.Attributes["source"].Expr.Value(ctx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("plugin '%s': %w", pluginName, diags)
	}

	// Get version
	versionVal, diags := pluginContent.Attributes["version"].Expr.Value(ctx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("plugin '%s': %w", pluginName, diags)
	}

	p := &Plugin{
		Name:     pluginName,
		Source:   sourceVal.AsString(),
		Version:  versionVal.AsString(),
		Settings: make(map[string]string),
	}

	// Parse settings block if present
	for _, settingsBlock := range pluginContent.Blocks {
		if settingsBlock.Type == "settings" {
			attrs, diags := settingsBlock.Body.JustAttributes()
			if diags.HasErrors() {
				return nil, fmt.Errorf("plugin '%s' settings: %w", pluginName, diags)
			}

			for name, attr := range attrs {
				val, diags := attr.Expr.Value(ctx)
				if diags.HasErrors() {
					return nil, fmt.Errorf("plugin '%s' setting '%s': %w", pluginName, name, diags)
				}
				// Convert to string
				if val.Type() == cty.String {
					p.Settings[name] = val.AsString()
				} else if val.Type() == cty.Bool {
					p.Settings[name] = fmt.Sprintf("%v", val.True())
				} else if val.Type() == cty.Number {
					bf := val.AsBigFloat()
					p.Settings[name] = bf.String()
				} else {
					p.Settings[name] = val.GoString()
				}
			}
		}
	}

	return p, nil
}
