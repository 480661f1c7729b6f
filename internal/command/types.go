// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package command provides the generic command executor that plugin
// callbacks ultimately run through: a registry of named handlers and a
// dispatcher that runs them as a given identity.
package command

import (
	"context"

	"github.com/holomush/plugincall/internal/identity"
)

// Executor runs a command line as a principal on behalf of an actor.
// args[0] is the command name.
type Executor interface {
	Run(ctx context.Context, actor identity.Actor, as identity.Principal, args []string) (string, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, actor identity.Actor, as identity.Principal, args []string) (string, error)

// Run calls f.
func (f ExecutorFunc) Run(ctx context.Context, actor identity.Actor, as identity.Principal, args []string) (string, error) {
	return f(ctx, actor, as, args)
}

// Handler is the function signature for command handlers. The returned
// string is the command result and may be empty.
type Handler func(ctx context.Context, inv *Invocation) (string, error)

// Entry is a registered command.
type Entry struct {
	Name    string         // canonical name (e.g., "GET_ATTR")
	Handler Handler        // implementation
	Roles   identity.Roles // if non-empty, the principal must hold one of these
	Help    string         // short description (one line)
	Usage   string         // usage pattern (e.g., "GET_ATTR <thing> <name>")
	Source  string         // "core" or the extension that defines it
}

// Invocation is the context a handler runs with.
type Invocation struct {
	Actor identity.Actor
	As    identity.Principal
	Name  string
	Args  []string // arguments after the command name
}

// Arg returns argument i, or "" when absent.
func (inv *Invocation) Arg(i int) string {
	if i < 0 || i >= len(inv.Args) {
		return ""
	}
	return inv.Args[i]
}
