// Package mcp exposes the trip toolkit to AI orchestrators over the
// Model Context Protocol. Planning agents drive validate, save and
// load through these tools instead of shelling out to the CLI.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tripweaver/tripweaver/pkg/registry"
	"github.com/tripweaver/tripweaver/pkg/store"
	"github.com/tripweaver/tripweaver/pkg/valconfig"
	"github.com/tripweaver/tripweaver/pkg/validate"
)

// Handlers binds the tool implementations to one registry and store.
type Handlers struct {
	Registry *registry.Registry
	Store    *store.Store
}

// NewHandlers loads the schema registry and validation config and wires
// them into a store. Registry failures are fatal; a missing config file
// falls back to the built-in defaults.
func NewHandlers(schemasDir, configPath string) (*Handlers, error) {
	reg, err := registry.Load(schemasDir)
	if err != nil {
		return nil, err
	}
	cfg, err := valconfig.Load(configPath)
	if err != nil {
		return nil, err
	}
	return &Handlers{
		Registry: reg,
		Store:    store.New(validate.New(reg, cfg)),
	}, nil
}

// NewServer creates an MCP server with the trip tools registered.
func NewServer(version string, h *Handlers) *server.MCPServer {
	s := server.NewMCPServer(
		"tripweaver",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("trip/validate",
			mcp.WithDescription("Run the full validation pipeline over a trip directory"),
			mcp.WithString("trip", mcp.Required(), mcp.Description("Path to the trip directory")),
			mcp.WithString("severity", mcp.Description("Minimum severity to report: HIGH, MEDIUM, LOW, or INFO")),
		),
		h.HandleValidate,
	)

	s.AddTool(
		mcp.NewTool("trip/save",
			mcp.WithDescription("Save one agent's file through the validate-before-replace gate"),
			mcp.WithString("trip", mcp.Required(), mcp.Description("Path to the trip directory")),
			mcp.WithString("agent", mcp.Required(), mcp.Description("Agent name, e.g. attractions or budget")),
			mcp.WithString("payload", mcp.Required(), mcp.Description("The agent document as a JSON string (envelope or bare data)")),
			mcp.WithBoolean("merge_days", mcp.Description("Merge incoming days into the existing file by day number")),
			mcp.WithBoolean("allow_high", mcp.Description("Write even when HIGH issues are found")),
		),
		h.HandleSave,
	)

	s.AddTool(
		mcp.NewTool("trip/load",
			mcp.WithDescription("Load one agent's file with progressive disclosure"),
			mcp.WithString("trip", mcp.Required(), mcp.Description("Path to the trip directory")),
			mcp.WithString("agent", mcp.Required(), mcp.Description("Agent name")),
			mcp.WithNumber("level", mcp.Description("Detail level: 1 summary, 2 headers, 3 full (default)")),
			mcp.WithNumber("day", mcp.Description("Restrict to one day number")),
		),
		h.HandleLoad,
	)

	s.AddTool(
		mcp.NewTool("trip/schema",
			mcp.WithDescription("Export a JSON Schema: the envelope or a named agent"),
			mcp.WithString("name", mcp.Required(), mcp.Description("'envelope' or an agent name")),
		),
		h.HandleSchema,
	)

	return s
}
