// mock-server is a test helper binary that implements a minimal MCP
// server over stdio, standing in for the external map and weather
// services. Supports initialize, tools/list, and tools/call.
//
//go:build ignore

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   any    `json:"error,omitempty"`
}

func main() {
	scanner := bufio.NewScanner(os.Stdin)
	// Increase buffer for large messages
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var req request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			continue
		}

		// Skip notifications (no ID)
		if req.ID == nil {
			continue
		}

		var resp response
		resp.JSONRPC = "2.0"
		resp.ID = *req.ID

		switch req.Method {
		case "initialize":
			resp.Result = map[string]any{
				"protocolVersion": "2024-11-05",
				"capabilities": map[string]any{
					"tools": map[string]any{},
				},
				"serverInfo": map[string]any{
					"name":    "mock-server",
					"version": "1.0.0",
				},
			}

		case "tools/list":
			resp.Result = map[string]any{
				"tools": []map[string]any{
					{
						"name":        "geocode",
						"description": "Resolve a place name to coordinates",
						"inputSchema": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"place": map[string]any{"type": "string"},
							},
						},
					},
					{
						"name":        "forecast",
						"description": "Return a weather forecast",
						"inputSchema": map[string]any{
							"type":       "object",
							"properties": map[string]any{},
						},
					},
					{
						"name":        "failing",
						"description": "Always returns an error",
						"inputSchema": map[string]any{
							"type":       "object",
							"properties": map[string]any{},
						},
					},
				},
			}

		case "tools/call":
			var params struct {
				Name      string         `json:"name"`
				Arguments map[string]any `json:"arguments"`
			}
			json.Unmarshal(req.Params, &params)

			switch params.Name {
			case "geocode":
				place := ""
				if p, ok := params.Arguments["place"]; ok {
					place = fmt.Sprintf("%v", p)
				}
				resp.Result = map[string]any{
					"content": []map[string]any{
						{"type": "text", "text": fmt.Sprintf(`{"place":%q,"lat":35.6895,"lng":139.6917}`, place)},
					},
				}

			case "forecast":
				resp.Result = map[string]any{
					"content": []map[string]any{
						{"type": "text", "text": `{"summary":"clear","high_c":21,"low_c":12}`},
					},
				}

			case "failing":
				resp.Result = map[string]any{
					"content": []map[string]any{
						{"type": "text", "text": "upstream service unavailable"},
					},
					"isError": true,
				}

			default:
				resp.Error = map[string]any{
					"code":    -32601,
					"message": fmt.Sprintf("unknown tool %q", params.Name),
				}
			}

		default:
			resp.Error = map[string]any{
				"code":    -32601,
				"message": fmt.Sprintf("method %q not found", req.Method),
			}
		}

		data, _ := json.Marshal(resp)
		fmt.Fprintln(os.Stdout, string(data))
	}
}
