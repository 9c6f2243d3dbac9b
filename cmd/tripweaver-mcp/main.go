// Package main provides the tripweaver-mcp binary, the MCP server that
// lets AI planning agents validate, save and load trip data.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	tmcp "github.com/tripweaver/tripweaver/pkg/ecosystem/mcp"
)

var version = "dev"

func main() {
	schemasDir := flag.String("schemas", "schemas", "directory holding the agent schemas")
	configPath := flag.String("config", "config/validation.json", "path to the validation config")
	flag.Parse()

	h, err := tmcp.NewHandlers(*schemasDir, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := server.ServeStdio(tmcp.NewServer(version, h)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
