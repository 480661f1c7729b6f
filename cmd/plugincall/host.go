// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/plugincall/internal/api"
	"github.com/holomush/plugincall/internal/api/methods"
	"github.com/holomush/plugincall/internal/command"
	"github.com/holomush/plugincall/internal/plugincall"
	"github.com/holomush/plugincall/internal/tracker"
	"github.com/holomush/plugincall/internal/world"
	"github.com/holomush/plugincall/internal/world/postgres"
)

// host is the assembled plugin call runtime: world state, the command
// dispatcher, the plugin catalog and the gateway serving plugins.
type host struct {
	world      *world.World
	seeded     *world.Seeded
	tracker    *tracker.Tracker
	catalog    *plugincall.Catalog
	dispatcher *command.Dispatcher
	gateway    *api.Server

	closers []func()
}

// HostDeps contains injectable dependencies for building a host.
// All fields with nil values will use their default implementations.
type HostDeps struct {
	// AttrStoreFactory opens PostgreSQL attribute storage.
	// Default: postgres.Connect and postgres.NewAttrStore
	AttrStoreFactory func(ctx context.Context, url string) (world.AttrStore, func(), error)

	// MigratorFactory creates a schema migrator.
	// Default: postgres.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// ProcessFactory starts plugin processes.
	// Default: plugincall.ExecFactory
	ProcessFactory plugincall.ProcessFactory
}

// Migrator is the subset of postgres.Migrator the commands use.
type Migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Pending() ([]uint, error)
	Close() error
}

func (d *HostDeps) withDefaults() *HostDeps {
	out := HostDeps{}
	if d != nil {
		out = *d
	}
	if out.AttrStoreFactory == nil {
		out.AttrStoreFactory = func(ctx context.Context, url string) (world.AttrStore, func(), error) {
			pool, err := postgres.Connect(ctx, url)
			if err != nil {
				return nil, nil, err
			}
			return postgres.NewAttrStore(pool), pool.Close, nil
		}
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			return postgres.NewMigrator(url)
		}
	}
	return &out
}

// buildHost wires a host from cfg. The gateway is created but not started.
func buildHost(ctx context.Context, cfg *Config, socket string, deps *HostDeps) (*host, error) {
	deps = deps.withDefaults()
	h := &host{tracker: tracker.New()}

	store, err := h.openStore(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}

	h.world = world.New(store)
	if h.seeded, err = h.world.Apply(ctx, cfg.World); err != nil {
		h.close()
		return nil, oops.With("operation", "seed world").Wrap(err)
	}

	commands := command.NewRegistry()
	if err := h.world.RegisterCommands(commands); err != nil {
		h.close()
		return nil, oops.With("operation", "register commands").Wrap(err)
	}

	execOpts := []plugincall.ExecutorOption{
		plugincall.WithGatewaySocket(socket),
		plugincall.WithTimeout(cfg.Plugins.Timeout),
		plugincall.WithMaxResponseSize(cfg.Plugins.MaxResponseSize),
	}
	if deps.ProcessFactory != nil {
		execOpts = append(execOpts, plugincall.WithProcessFactory(deps.ProcessFactory))
	}
	h.catalog = plugincall.NewCatalog(plugincall.NewExecutor(h.world, execOpts...), h.tracker)

	if err := h.loadCatalog(ctx, cfg.Plugins.Dirs); err != nil {
		h.close()
		return nil, err
	}

	h.dispatcher = command.NewDispatcher(commands,
		command.WithRoleProvider(h.world),
		command.WithResolver(h.catalog))

	registry, err := api.NewRegistry(methods.Builtins(), api.WithAllowList(cfg.Gateway.Methods...))
	if err != nil {
		h.close()
		return nil, oops.With("operation", "build gateway registry").Wrap(err)
	}
	handler := api.NewHandler(registry, h.tracker, &api.Services{
		Commands: h.dispatcher,
		Players:  h.world,
		Messages: h.world,
	}, api.WithReadTimeout(cfg.Gateway.ReadTimeout))
	h.gateway = api.NewServer(socket, handler)

	return h, nil
}

func (h *host) openStore(ctx context.Context, cfg *Config, deps *HostDeps) (world.AttrStore, error) {
	if cfg.Database.URL == "" {
		slog.Info("using in-memory attribute storage")
		return world.NewMemoryAttrStore(), nil
	}

	if cfg.Database.AutoMigrate {
		if err := runMigrations(deps, cfg.Database.URL); err != nil {
			return nil, err
		}
	}

	store, closeStore, err := deps.AttrStoreFactory(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		h.closers = append(h.closers, closeStore)
	}
	slog.Info("connected to database")
	return store, nil
}

// runMigrations applies pending migrations.
func runMigrations(deps *HostDeps, url string) error {
	m, err := deps.MigratorFactory(url)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "auto-migrate").Wrap(err)
	}
	slog.Info("database migrations applied")
	return nil
}

// loadCatalog loads definition documents from dirs, then definitions held
// as extension attributes. Every extension a definition names is made known
// to the world so that its roles can be resolved.
func (h *host) loadCatalog(ctx context.Context, dirs []string) error {
	for _, dir := range dirs {
		n, err := h.catalog.LoadDir(dir)
		if err != nil {
			return err
		}
		slog.Debug("loaded plugin documents", "dir", dir, "documents", n)
	}

	extensions, err := h.world.ExtensionAttrs(ctx)
	if err != nil {
		return oops.With("operation", "load extension attributes").Wrap(err)
	}
	for _, ea := range extensions {
		if n := h.catalog.LoadAttrs(ea.Extension, ea.Attrs); n > 0 {
			slog.Info("loaded plugin calls from attributes", "extension", ea.Extension.Name, "calls", n)
		}
	}

	for _, def := range h.catalog.All() {
		h.world.EnsureExtension(def.Extension())
	}
	return nil
}

// close releases storage. The gateway is stopped separately.
func (h *host) close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		h.closers[i]()
	}
	h.closers = nil
}
