// Package services manages the external tool servers a trip workspace
// declares: maps, weather, photo extraction and the like, each spoken
// to over stdio as a subprocess-launched MCP server. The clients are
// opaque producers of JSON payloads; what to do with a payload is the
// caller's business.
package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the workspace config location relative to the
// workspace root.
const ConfigPath = ".tripweaver/config.yaml"

// ServerConfig declares one external tool server.
type ServerConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Timeout string            `yaml:"timeout,omitempty"` // startup handshake timeout, e.g. "30s"
}

// StartupTimeout parses the configured timeout, defaulting to 15s.
func (c ServerConfig) StartupTimeout() time.Duration {
	if c.Timeout == "" {
		return 15 * time.Second
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// WorkspaceConfig is the parsed .tripweaver/config.yaml.
type WorkspaceConfig struct {
	Servers map[string]ServerConfig `yaml:"servers"`
}

// LoadConfig reads the workspace config under root. A missing file is
// an empty config; a malformed one is an error.
func LoadConfig(root string) (*WorkspaceConfig, error) {
	path := filepath.Join(root, ConfigPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &WorkspaceConfig{Servers: map[string]ServerConfig{}}, nil
		}
		return nil, fmt.Errorf("read workspace config %s: %w", path, err)
	}
	var cfg WorkspaceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse workspace config %s: %w", path, err)
	}
	if cfg.Servers == nil {
		cfg.Servers = map[string]ServerConfig{}
	}
	for name, sc := range cfg.Servers {
		if sc.Command == "" {
			return nil, fmt.Errorf("workspace config: server %q has no command", name)
		}
	}
	return &cfg, nil
}
