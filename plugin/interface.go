package plugin

import (
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"

	"github.com/aymanh23/searchv2/aitools"
)

// Handshake is the handshake config shared between the host and plugins.
// A plugin built against a different protocol version is rejected at load.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "SEARCHV2_PLUGIN",
	MagicCookieValue: "c7e1c1a4-tool-provider",
}

// PluginMap is the map of plugins we can dispense
var PluginMap = map[string]goplugin.Plugin{
	"tool": &ToolPlugin{},
}

// ToolInfo contains metadata about a tool
type ToolInfo struct {
	Name        string
	Description string
	Schema      aitools.Schema
}

// ToolProvider is the interface a plugin binary implements. The host talks
// to it over net/rpc via LoadPlugin; plugin authors pass their implementation
// to Serve in their main.
type ToolProvider interface {
	// Configure passes settings from HCL config to the plugin
	Configure(settings map[string]string) error

	// Call invokes a tool with the given JSON payload
	Call(toolName string, payload string) (string, error)

	// GetToolInfo returns metadata about a specific tool
	GetToolInfo(toolName string) (*ToolInfo, error)

	// ListTools returns info for all tools this plugin provides
	ListTools() ([]*ToolInfo, error)
}

// ToolPlugin is the goplugin.Plugin implementation carrying a ToolProvider
// over net/rpc. Impl is only set on the plugin side.
type ToolPlugin struct {
	Impl ToolProvider
}

func (p *ToolPlugin) Server(*goplugin.MuxBroker) (any, error) {
	return &providerServer{impl: p.Impl}, nil
}

func (p *ToolPlugin) Client(b *goplugin.MuxBroker, c *rpc.Client) (any, error) {
	return &providerClient{client: c}, nil
}

// Serve starts the plugin side of the connection. Plugin binaries call this
// from main with their ToolProvider implementation and block until the host
// disconnects.
func Serve(impl ToolProvider) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]goplugin.Plugin{
			"tool": &ToolPlugin{Impl: impl},
		},
	})
}

// RPC payloads. Everything crossing the wire is gob-encoded, so all fields
// stay concrete types.

type configureArgs struct {
	Settings map[string]string
}

type callArgs struct {
	ToolName string
	Payload  string
}

type toolInfoArgs struct {
	ToolName string
}

// providerClient is the host-side stub
type providerClient struct {
	client *rpc.Client
}

func (c *providerClient) Configure(settings map[string]string) error {
	var reply struct{}
	return c.client.Call("Plugin.Configure", configureArgs{Settings: settings}, &reply)
}

func (c *providerClient) Call(toolName string, payload string) (string, error) {
	var reply string
	err := c.client.Call("Plugin.Call", callArgs{ToolName: toolName, Payload: payload}, &reply)
	return reply, err
}

func (c *providerClient) GetToolInfo(toolName string) (*ToolInfo, error) {
	var reply ToolInfo
	if err := c.client.Call("Plugin.GetToolInfo", toolInfoArgs{ToolName: toolName}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *providerClient) ListTools() ([]*ToolInfo, error) {
	var reply []*ToolInfo
	if err := c.client.Call("Plugin.ListTools", struct{}{}, &reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// providerServer is the plugin-side dispatcher
type providerServer struct {
	impl ToolProvider
}

func (s *providerServer) Configure(args configureArgs, reply *struct{}) error {
	return s.impl.Configure(args.Settings)
}

func (s *providerServer) Call(args callArgs, reply *string) error {
	result, err := s.impl.Call(args.ToolName, args.Payload)
	if err != nil {
		return err
	}
	*reply = result
	return nil
}

func (s *providerServer) GetToolInfo(args toolInfoArgs, reply *ToolInfo) error {
	info, err := s.impl.GetToolInfo(args.ToolName)
	if err != nil {
		return err
	}
	*reply = *info
	return nil
}

func (s *providerServer) ListTools(args struct{}, reply *[]*ToolInfo) error {
	tools, err := s.impl.ListTools()
	if err != nil {
		return err
	}
	*reply = tools
	return nil
}
