//go:build ignore

package main

import (
	"fmt"
	"os"

	"github.com/tripweaver/tripweaver/pkg/registry"
)

func main() {
	data, err := registry.GenerateEnvelopeSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("schemas/envelope.json", data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote schemas/envelope.json")
}
