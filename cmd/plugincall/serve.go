// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/plugincall/internal/api"
	"github.com/holomush/plugincall/internal/command"
	"github.com/holomush/plugincall/internal/observability"
	"github.com/holomush/plugincall/internal/plugincall"
	"github.com/holomush/plugincall/internal/tracker"
	"github.com/holomush/plugincall/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// ObservabilityServer is the subset of observability.Server that serve uses.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	HostDeps

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer with every component's metrics
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker) ObservabilityServer

	// Signals delivers shutdown signals.
	// Default: SIGINT and SIGTERM via signal.Notify
	Signals <-chan os.Signal
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the plugin gateway",
		Long: `Load plugin call definitions, seed the world from configuration and
serve the gateway socket until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}
	addConfigFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps runs the host until a signal arrives or a server fails.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, version, ready,
				api.RegisterMetrics,
				command.RegisterMetrics,
				plugincall.RegisterMetrics,
				tracker.RegisterMetrics)
		}
	}
	if deps.Signals == nil {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		deps.Signals = sigChan
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := setupLogging(cfg); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h, err := buildHost(ctx, cfg, cfg.Gateway.Socket, &deps.HostDeps)
	if err != nil {
		return fmt.Errorf("failed to build host: %w", err)
	}
	defer h.close()

	var ready atomic.Bool
	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready.Load)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	if err := h.gateway.Start(ctx); err != nil {
		stopObservability(obsServer)
		return fmt.Errorf("failed to start gateway: %w", err)
	}
	ready.Store(true)

	cmd.Println("Gateway listening on " + h.gateway.Path())
	slog.Info("plugin call host ready",
		"socket", h.gateway.Path(),
		"calls", len(h.catalog.All()))

	select {
	case sig := <-deps.Signals:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := h.gateway.Shutdown(shutdownCtx); err != nil {
		errutil.LogError(shutdownCtx, slog.Default(), "error stopping gateway", err)
	}
	stopObservability(obsServer)

	slog.Info("shutdown complete")
	return nil
}

func stopObservability(s ObservabilityServer) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when an error is received, the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
