// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/plugincall/internal/identity"
)

var tracer = otel.Tracer("plugincall/command")

// Resolver supplies handlers for commands that are not in the registry,
// such as plugin calls defined on extensions.
type Resolver interface {
	Resolve(name string) (Entry, bool)
}

// Dispatcher runs commands from a registry. It implements Executor.
type Dispatcher struct {
	registry *Registry
	roles    identity.RoleProvider // optional, required for entries with Roles
	resolver Resolver              // optional
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithRoleProvider configures the role lookup used for entries that restrict
// their callers by role.
func WithRoleProvider(rp identity.RoleProvider) DispatcherOption {
	return func(d *Dispatcher) {
		d.roles = rp
	}
}

// WithResolver configures a fallback for names missing from the registry.
func WithResolver(r Resolver) DispatcherOption {
	return func(d *Dispatcher) {
		d.resolver = r
	}
}

// NewDispatcher creates a new command dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{registry: registry}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) lookup(name string) (Entry, bool) {
	if entry, ok := d.registry.Get(name); ok {
		return entry, true
	}
	if d.resolver != nil {
		return d.resolver.Resolve(name)
	}
	return Entry{}, false
}

// Run executes args as principal as on behalf of actor.
func (d *Dispatcher) Run(ctx context.Context, actor identity.Actor, as identity.Principal, args []string) (result string, err error) {
	if len(args) == 0 || args[0] == "" {
		return "", ErrEmptyCommand()
	}
	name := args[0]

	ctx, span := tracer.Start(ctx, "command.run",
		trace.WithAttributes(
			attribute.String("command.name", name),
			attribute.String("command.principal", as.String()),
			attribute.String("command.actor", actor.Username),
		),
	)
	start := time.Now()
	source := sourceUnresolved
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observeRun(name, source, err, time.Since(start))
		span.End()
	}()

	entry, ok := d.lookup(name)
	if !ok {
		err = ErrUnknownCommand(name)
		return "", err
	}
	source = entry.Source
	span.SetAttributes(attribute.String("command.source", entry.Source))

	if len(entry.Roles) > 0 && !as.IsPrivileged() {
		if err = d.checkRoles(ctx, entry, as); err != nil {
			return "", err
		}
	}

	result, err = entry.Handler(ctx, &Invocation{
		Actor: actor,
		As:    as,
		Name:  entry.Name,
		Args:  append([]string(nil), args[1:]...),
	})
	if err != nil {
		slog.WarnContext(ctx, "command execution failed",
			"command", entry.Name,
			"principal", as.String(),
			"error", err,
		)
	}
	return result, err
}

func (d *Dispatcher) checkRoles(ctx context.Context, entry Entry, as identity.Principal) error {
	if d.roles == nil {
		return ErrPermissionDenied(entry.Name, as.String())
	}
	held, err := d.roles.RolesOf(ctx, as)
	if err != nil {
		return Failed("Unable to determine your roles", err)
	}
	if !held.Intersects(entry.Roles) {
		return ErrPermissionDenied(entry.Name, as.String())
	}
	return nil
}
