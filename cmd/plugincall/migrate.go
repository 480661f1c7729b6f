// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate subcommand and its up, down and status
// children.
func NewMigrateCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the attribute database schema",
		Long: `Apply or roll back PostgreSQL migrations for attribute storage.
The database URL comes from --database-url or database.url in the config file.`,
	}

	cmd.AddCommand(newMigrateSubCmd(configFile, "up", "Apply all pending migrations", runMigrateUp))
	cmd.AddCommand(newMigrateSubCmd(configFile, "down", "Roll back all migrations", runMigrateDown))
	cmd.AddCommand(newMigrateSubCmd(configFile, "status", "Show the current schema version", runMigrateStatus))

	return cmd
}

type migrateFunc func(cmd *cobra.Command, m Migrator) error

func newMigrateSubCmd(configFile *string, use, short string, run migrateFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runMigrateWithDeps(cmd, cfg, run, nil)
		},
	}
	cmd.Flags().String("database-url", "", "PostgreSQL URL for attribute storage")
	return cmd
}

// runMigrateWithDeps opens a migrator for cfg and runs fn with it.
// If deps is nil, default implementations are used.
func runMigrateWithDeps(cmd *cobra.Command, cfg *Config, fn migrateFunc, deps *HostDeps) error {
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required (--database-url or database.url)")
	}
	deps = deps.withDefaults()

	m, err := deps.MigratorFactory(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()
	return fn(cmd, m)
}

func runMigrateUp(cmd *cobra.Command, m Migrator) error {
	pending, err := m.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		cmd.Println("No pending migrations")
		return nil
	}
	cmd.Printf("Applying %d migration(s)...\n", len(pending))
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "up").Wrap(err)
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateDown(cmd *cobra.Command, m Migrator) error {
	cmd.Println("Rolling back migrations...")
	if err := m.Down(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "down").Wrap(err)
	}
	cmd.Println("Rollback completed successfully")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, m Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	pending, err := m.Pending()
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	cmd.Printf("Schema version: %d (%s)\n", version, state)
	cmd.Printf("Pending migrations: %d\n", len(pending))
	return nil
}
