// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/plugincall/internal/command"
	"github.com/holomush/plugincall/internal/identity"
	"github.com/holomush/plugincall/pkg/errutil"
)

// callConfig holds flags for the call command.
type callConfig struct {
	as   string
	line bool
}

// NewCallCmd creates the call subcommand.
func NewCallCmd(configFile *string) *cobra.Command {
	opts := &callConfig{}

	cmd := &cobra.Command{
		Use:   "call [flags] COMMAND [ARGS...]",
		Short: "Run one command or plugin call and print the result",
		Long: `Build the host from configuration, serve the gateway on a private
socket and run a single command as a seeded player. Messages delivered to
the player while the command runs are printed before the result.`,
		Example: `  plugincall call --as Alice '$dice' 2d6
  plugincall call --as Alice --line 'GET_ATTR me description'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runCallWithDeps(cmd.Context(), cfg, opts, cmd, args, nil)
		},
	}

	addConfigFlags(cmd.Flags())
	cmd.Flags().StringVar(&opts.as, "as", "", "player to run as (default: the super-identity)")
	cmd.Flags().BoolVar(&opts.line, "line", false, "treat the single argument as a command line to tokenize")

	return cmd
}

// runCallWithDeps runs args once and prints the result to cmd's output.
// If deps is nil, default implementations are used.
func runCallWithDeps(ctx context.Context, cfg *Config, opts *callConfig, cmd *cobra.Command, args []string, deps *HostDeps) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := setupLogging(cfg); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	if opts.line {
		if len(args) != 1 {
			return oops.Code(command.CodeInvalidArgs).Errorf("--line takes exactly one argument, got %d", len(args))
		}
		parsed, err := command.Parse(args[0])
		if err != nil {
			return err
		}
		args = parsed
	}

	// A private socket keeps one-shot calls clear of a running server.
	dir, err := os.MkdirTemp("", "plugincall-")
	if err != nil {
		return oops.Code("CALL_SETUP_FAILED").Wrapf(err, "create socket directory")
	}
	defer os.RemoveAll(dir) //nolint:errcheck // best-effort cleanup

	h, err := buildHost(ctx, cfg, filepath.Join(dir, "gateway.sock"), deps)
	if err != nil {
		return fmt.Errorf("failed to build host: %w", err)
	}
	defer h.close()

	if err := h.gateway.Start(ctx); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := h.gateway.Shutdown(shutdownCtx); err != nil {
			errutil.LogError(shutdownCtx, slog.Default(), "error stopping gateway", err)
		}
	}()

	principal, actor, err := h.resolveCaller(ctx, opts.as)
	if err != nil {
		return err
	}

	result, runErr := h.dispatcher.Run(ctx, actor, principal, args)

	out := cmd.OutOrStdout()
	if !principal.IsPrivileged() {
		for _, m := range h.world.Inbox(principal) {
			fmt.Fprintln(out, m.Text) //nolint:errcheck // terminal output
		}
	}
	if runErr != nil {
		return oops.With("command", args[0]).Errorf("%s", command.FailureMessage(runErr))
	}
	if result != "" {
		fmt.Fprintln(out, result) //nolint:errcheck // terminal output
	}
	return nil
}

// resolveCaller finds the principal and actor a call runs as. Players that
// are not connected get a UTC session for the duration of the call.
func (h *host) resolveCaller(ctx context.Context, name string) (identity.Principal, identity.Actor, error) {
	if name == "" {
		return identity.God(), identity.Actor{ID: "cli", Username: identity.GodID, Timezone: time.UTC}, nil
	}
	p, ok := h.world.PlayerByName(ctx, name)
	if !ok {
		return identity.Principal{}, identity.Actor{}, oops.Code(command.CodeNotFound).
			With("player", name).
			Errorf("Player %s not found", name)
	}
	if actor, ok := h.world.CurrentActor(ctx, p); ok {
		return p, actor, nil
	}
	actor, err := h.world.Connect(p, time.UTC)
	if err != nil {
		return identity.Principal{}, identity.Actor{}, err
	}
	return p, actor, nil
}
