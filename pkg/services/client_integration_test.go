package services

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// TestClientIntegration builds a mock MCP server and exercises the full
// flow: spawn, initialize handshake, tools/list discovery, tools/call,
// shutdown.
func TestClientIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	mockBin := buildMockServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cfg := ServerConfig{Command: mockBin, Timeout: "5s"}

	t.Run("spawn and discover tools", func(t *testing.T) {
		c, err := Spawn(ctx, "mock", cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		defer c.Shutdown(2 * time.Second)

		tools := c.Tools()
		if len(tools) == 0 {
			t.Fatal("expected discovered tools, got none")
		}
		found := map[string]bool{}
		for _, n := range tools {
			found[n] = true
		}
		if !found["geocode"] || !found["forecast"] {
			t.Errorf("missing expected tools in %v", tools)
		}
	})

	t.Run("call geocode tool", func(t *testing.T) {
		c, err := Spawn(ctx, "mock", cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		defer c.Shutdown(2 * time.Second)

		result, err := c.CallTool(ctx, "geocode", map[string]any{"place": "Tokyo"})
		if err != nil {
			t.Fatalf("CallTool geocode: %v", err)
		}
		if !strings.Contains(result, "Tokyo") || !strings.Contains(result, "35.6895") {
			t.Errorf("unexpected geocode result: %s", result)
		}
	})

	t.Run("failing tool surfaces as error", func(t *testing.T) {
		c, err := Spawn(ctx, "mock", cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		defer c.Shutdown(2 * time.Second)

		_, err = c.CallTool(ctx, "failing", nil)
		if err == nil {
			t.Fatal("expected error from failing tool")
		}
		if !strings.Contains(err.Error(), "unavailable") {
			t.Errorf("error should carry the tool's text: %v", err)
		}
	})

	t.Run("unknown tool", func(t *testing.T) {
		c, err := Spawn(ctx, "mock", cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		defer c.Shutdown(2 * time.Second)

		if _, err := c.CallTool(ctx, "teleport", nil); err == nil {
			t.Fatal("expected error for unknown tool")
		}
	})

	t.Run("call after shutdown", func(t *testing.T) {
		c, err := Spawn(ctx, "mock", cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		if err := c.Shutdown(2 * time.Second); err != nil {
			t.Fatalf("Shutdown: %v", err)
		}
		if _, err := c.CallTool(ctx, "forecast", nil); err == nil {
			t.Fatal("expected error calling a stopped server")
		}
	})
}

func buildMockServer(t *testing.T) string {
	t.Helper()
	mockSrc := filepath.Join("..", "..", "testdata", "servers", "mock-server.go")
	if _, err := os.Stat(mockSrc); err != nil {
		t.Fatalf("mock server source not found: %v", err)
	}

	ext := ""
	if runtime.GOOS == "windows" {
		ext = ".exe"
	}
	mockBin := filepath.Join(t.TempDir(), "mock-server"+ext)

	buildCmd := exec.Command("go", "build", "-o", mockBin, mockSrc)
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		t.Fatalf("build mock server: %v", err)
	}
	return mockBin
}
