// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Command gen-schema writes the JSON Schema for plugin call definition
// documents.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/holomush/plugincall/internal/plugincall"
)

func main() {
	outPath := flag.String("out", filepath.Join("schemas", "plugincall.schema.json"), "output file")
	flag.Parse()

	if err := run(*outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s\n", *outPath)
}

func run(outPath string) error {
	schema, err := plugincall.GenerateSchema()
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(outPath, schema, 0o600); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}
