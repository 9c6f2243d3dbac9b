package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadConfigMissing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Servers) != 0 {
		t.Errorf("missing config should yield no servers, got %v", cfg.Servers)
	}
}

func TestLoadConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".tripweaver"), 0o755); err != nil {
		t.Fatal(err)
	}
	content := `servers:
  maps:
    command: gaode-maps-server
    args: ["--stdio"]
    env:
      MAPS_KEY: test
    timeout: 30s
  weather:
    command: weather-server
`
	if err := os.WriteFile(filepath.Join(root, ConfigPath), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	maps, ok := cfg.Servers["maps"]
	if !ok {
		t.Fatal("maps server missing")
	}
	if maps.Command != "gaode-maps-server" || maps.Env["MAPS_KEY"] != "test" {
		t.Errorf("maps config wrong: %+v", maps)
	}
	if maps.StartupTimeout() != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", maps.StartupTimeout())
	}
	if cfg.Servers["weather"].StartupTimeout() != 15*time.Second {
		t.Error("absent timeout should default to 15s")
	}
}

func TestLoadConfigRejectsMissingCommand(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".tripweaver"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ConfigPath), []byte("servers:\n  broken: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(root); err == nil {
		t.Fatal("want error for server without command")
	}
}

func TestManagerUnknownServer(t *testing.T) {
	m := NewManager(&WorkspaceConfig{Servers: map[string]ServerConfig{}}, zerolog.Nop())
	if _, err := m.Get(context.Background(), "maps"); err == nil {
		t.Fatal("want error for unconfigured server")
	}
}

func TestSpawnMissingBinary(t *testing.T) {
	_, err := Spawn(context.Background(), "ghost", ServerConfig{Command: "definitely-not-a-real-binary-1f9b"}, zerolog.Nop())
	if err == nil {
		t.Fatal("want error for missing binary")
	}
}
