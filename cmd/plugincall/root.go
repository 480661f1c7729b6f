// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "plugincall",
		Short: "Host for out-of-process plugin calls",
		Long: `plugincall runs plugin calls: commands implemented by external
programs that answer a single JSON-RPC request and may call back into the
host through a local gateway socket.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/plugincall/config.yaml)")

	cmd.AddCommand(NewServeCmd(&configFile))
	cmd.AddCommand(NewCallCmd(&configFile))
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewMigrateCmd(&configFile))

	return cmd
}
