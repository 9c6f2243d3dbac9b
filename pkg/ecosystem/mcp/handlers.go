package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tripweaver/tripweaver/pkg/issue"
	"github.com/tripweaver/tripweaver/pkg/registry"
	"github.com/tripweaver/tripweaver/pkg/store"
)

// HandleValidate implements the trip/validate MCP tool.
func (h *Handlers) HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	tripDir, _ := args["trip"].(string)
	if tripDir == "" {
		return errorResult("trip argument is required"), nil
	}

	report, err := h.Store.Pipeline.RunDir(tripDir)
	if err != nil {
		return errorResult(fmt.Sprintf("load trip: %s", err)), nil
	}

	if sev, _ := args["severity"].(string); sev != "" {
		min, err := issue.ParseSeverity(sev)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		report = report.Filter(min)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: !report.Pass(),
	}, nil
}

// HandleSave implements the trip/save MCP tool. The gate always runs;
// allow_high writes anyway but still reports the issues.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	tripDir, _ := args["trip"].(string)
	agent, _ := args["agent"].(string)
	payload, _ := args["payload"].(string)
	if tripDir == "" || agent == "" || payload == "" {
		return errorResult("trip, agent and payload arguments are required"), nil
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return errorResult(fmt.Sprintf("payload is not valid JSON: %s", err)), nil
	}

	opts := store.DefaultSaveOptions()
	opts.MergeDays, _ = args["merge_days"].(bool)
	opts.AllowHigh, _ = args["allow_high"].(bool)

	report, err := h.Store.SaveAgent(tripDir, agent, doc, opts)
	if err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			data, _ := json.MarshalIndent(verr.Report, "", "  ")
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(string(data))},
				IsError: true,
			}, nil
		}
		return errorResult(fmt.Sprintf("save %s: %s", agent, err)), nil
	}

	response := map[string]any{"status": "saved", "agent": agent}
	if report != nil {
		response["report"] = report
	}
	data, _ := json.MarshalIndent(response, "", "  ")
	return textResult(string(data)), nil
}

// HandleLoad implements the trip/load MCP tool.
func (h *Handlers) HandleLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	tripDir, _ := args["trip"].(string)
	agent, _ := args["agent"].(string)
	if tripDir == "" || agent == "" {
		return errorResult("trip and agent arguments are required"), nil
	}

	opts := store.LoadOptions{}
	if level, ok := args["level"].(float64); ok {
		opts.Level = int(level)
	}
	if day, ok := args["day"].(float64); ok {
		opts.Day = int(day)
	}

	doc, err := h.Store.LoadAgent(tripDir, agent, opts)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// HandleSchema implements the trip/schema MCP tool.
func (h *Handlers) HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	name, _ := args["name"].(string)

	if name == "envelope" {
		data, err := registry.GenerateEnvelopeSchema()
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return textResult(string(data)), nil
	}

	raw, ok := h.Registry.Schema(name)
	if !ok {
		return errorResult(fmt.Sprintf("unknown schema %q (use 'envelope' or an agent name)", name)), nil
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
