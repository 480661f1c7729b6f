// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/holomush/plugincall/internal/plugincall"
	"github.com/holomush/plugincall/internal/tracker"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate plugin call definition documents",
		Long: `Validates definition documents against the document schema and builds
every call they define. Does NOT start plugins or the gateway.
Exits with code 0 on success, non-zero on failure.

Useful in CI pipelines to catch definition errors early:
  plugincall validate plugins/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args)
		},
	}
}

func runValidate(cmd *cobra.Command, paths []string) error {
	catalog := plugincall.NewCatalog(nil, tracker.New())
	out := cmd.OutOrStdout()

	failed := 0
	for _, path := range paths {
		doc, err := catalog.LoadFile(path)
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %s\n", path, plugincall.FormatSchemaError(err)) //nolint:errcheck // terminal output
			continue
		}
		fmt.Fprintf(out, "ok   %s: extension %s, version %s, %d calls\n", //nolint:errcheck // terminal output
			path, doc.Extension.ID, doc.Version, len(doc.Calls))
	}

	if failed > 0 {
		return fmt.Errorf("validation failed: %d of %d documents invalid", failed, len(paths))
	}
	return nil
}
