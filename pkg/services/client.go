package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Client is one running MCP server subprocess. MCP is JSON-RPC 2.0
// over stdio with an initialization handshake.
type Client struct {
	name   string
	cmd    *exec.Cmd
	stdin  *json.Encoder
	reader *bufio.Reader
	nextID int64
	tools  map[string]bool
	mu     sync.Mutex
	done   chan struct{}
	log    zerolog.Logger
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type callContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type callResult struct {
	Content []callContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// Spawn launches a configured server and runs the MCP handshake.
func Spawn(ctx context.Context, name string, cfg ServerConfig, log zerolog.Logger) (*Client, error) {
	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start server %q: %w", name, err)
	}

	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()

	clog := log.With().Str("server", name).Logger()
	go func() {
		scanner := bufio.NewScanner(stderrPipe)
		for scanner.Scan() {
			clog.Debug().Msg(scanner.Text())
		}
	}()

	c := &Client{
		name:   name,
		cmd:    cmd,
		stdin:  json.NewEncoder(stdinPipe),
		reader: bufio.NewReader(stdout),
		tools:  make(map[string]bool),
		done:   done,
		log:    clog,
	}

	initCtx, cancel := context.WithTimeout(ctx, cfg.StartupTimeout())
	defer cancel()

	if err := c.initialize(initCtx); err != nil {
		c.kill()
		return nil, fmt.Errorf("initialize server %q: %w", name, err)
	}
	c.notify("notifications/initialized", nil)
	if err := c.discoverTools(initCtx); err != nil {
		// Non-fatal: tools may still be called by name.
		clog.Warn().Err(err).Msg("tools/list failed")
	}
	clog.Info().Int("tools", len(c.tools)).Msg("server initialized")
	return c, nil
}

func (c *Client) initialize(ctx context.Context) error {
	id := atomic.AddInt64(&c.nextID, 1)
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{},
			"clientInfo": map[string]any{
				"name":    "tripweaver",
				"version": "0.1.0",
			},
		},
	}
	if err := c.stdin.Encode(req); err != nil {
		return fmt.Errorf("send initialize: %w", err)
	}
	resp, err := c.readResponse(ctx)
	if err != nil {
		return fmt.Errorf("read initialize response: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("initialize error [%d]: %s", resp.Error.Code, resp.Error.Message)
	}
	return nil
}

func (c *Client) notify(method string, params any) {
	msg := map[string]any{"jsonrpc": "2.0", "method": method}
	if params != nil {
		msg["params"] = params
	}
	c.stdin.Encode(msg)
}

func (c *Client) discoverTools(ctx context.Context) error {
	id := atomic.AddInt64(&c.nextID, 1)
	if err := c.stdin.Encode(map[string]any{"jsonrpc": "2.0", "id": id, "method": "tools/list"}); err != nil {
		return err
	}
	resp, err := c.readResponse(ctx)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("tools/list error [%d]: %s", resp.Error.Code, resp.Error.Message)
	}
	var list struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &list); err != nil {
		return fmt.Errorf("parse tools/list result: %w", err)
	}
	for _, t := range list.Tools {
		c.tools[t.Name] = true
	}
	return nil
}

// Tools lists the discovered tool names.
func (c *Client) Tools() []string {
	names := make([]string, 0, len(c.tools))
	for n := range c.tools {
		names = append(names, n)
	}
	return names
}

// CallTool invokes a tool and returns the joined text content, which
// for these servers is a JSON payload.
func (c *Client) CallTool(ctx context.Context, tool string, args map[string]any) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return "", fmt.Errorf("server %q has exited", c.name)
	default:
	}

	id := atomic.AddInt64(&c.nextID, 1)
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params":  map[string]any{"name": tool, "arguments": args},
	}
	start := time.Now()
	if err := c.stdin.Encode(req); err != nil {
		return "", fmt.Errorf("send tools/call: %w", err)
	}
	resp, err := c.readResponse(ctx)
	if err != nil {
		return "", fmt.Errorf("read tools/call response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("tools/call error [%d]: %s", resp.Error.Code, resp.Error.Message)
	}

	var result callResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return string(resp.Result), nil
	}
	var texts []string
	for _, item := range result.Content {
		if item.Type == "text" {
			texts = append(texts, item.Text)
		}
	}
	if result.IsError {
		return "", fmt.Errorf("tool %q error: %s", tool, strings.Join(texts, "; "))
	}
	c.log.Debug().Str("tool", tool).Dur("elapsed", time.Since(start)).Msg("tool call")
	return strings.Join(texts, "\n"), nil
}

// readResponse reads one JSON-RPC response, skipping server-initiated
// notifications.
func (c *Client) readResponse(ctx context.Context) (*rpcResponse, error) {
	type readResult struct {
		resp *rpcResponse
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		for {
			line, err := c.reader.ReadString('\n')
			if err != nil {
				ch <- readResult{err: fmt.Errorf("read: %w", err)}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			var peek struct {
				ID     json.RawMessage `json:"id"`
				Method string          `json:"method"`
			}
			if err := json.Unmarshal([]byte(line), &peek); err != nil {
				continue
			}
			if len(peek.ID) == 0 && peek.Method != "" {
				continue
			}
			var resp rpcResponse
			if err := json.Unmarshal([]byte(line), &resp); err != nil {
				ch <- readResult{err: fmt.Errorf("unmarshal response: %w", err)}
				return
			}
			ch <- readResult{resp: &resp}
			return
		}
	}()

	select {
	case result := <-ch:
		return result.resp, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, fmt.Errorf("server %q exited while waiting for response", c.name)
	}
}

// Shutdown interrupts the process and kills it after the grace period.
func (c *Client) Shutdown(grace time.Duration) error {
	c.cmd.Process.Signal(os.Interrupt)
	select {
	case <-c.done:
		return nil
	case <-time.After(grace):
		return c.kill()
	}
}

func (c *Client) kill() error {
	select {
	case <-c.done:
		return nil
	default:
	}
	if c.cmd.Process != nil {
		return c.cmd.Process.Kill()
	}
	return nil
}

// Manager lazily spawns configured servers and hands out clients.
type Manager struct {
	cfg     *WorkspaceConfig
	log     zerolog.Logger
	mu      sync.Mutex
	clients map[string]*Client
}

// NewManager builds a manager over a workspace config.
func NewManager(cfg *WorkspaceConfig, log zerolog.Logger) *Manager {
	return &Manager{cfg: cfg, log: log, clients: make(map[string]*Client)}
}

// Get returns a running client for a named server, spawning it on
// first use.
func (m *Manager) Get(ctx context.Context, name string) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[name]; ok {
		select {
		case <-c.done:
			delete(m.clients, name) // fall through to respawn
		default:
			return c, nil
		}
	}
	sc, ok := m.cfg.Servers[name]
	if !ok {
		return nil, fmt.Errorf("no server %q in workspace config", name)
	}
	c, err := Spawn(ctx, name, sc, m.log)
	if err != nil {
		return nil, err
	}
	m.clients[name] = c
	return c, nil
}

// Close shuts every running server down.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, c := range m.clients {
		if err := c.Shutdown(2 * time.Second); err != nil {
			m.log.Warn().Str("server", name).Err(err).Msg("shutdown")
		}
		delete(m.clients, name)
	}
}
