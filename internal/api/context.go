// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package api implements the gateway plugins call back into while a plugin
// call is in flight: the method registry, the per-connection request
// handler, and the Unix socket server.
package api

import (
	"context"

	"github.com/holomush/plugincall/internal/command"
	"github.com/holomush/plugincall/internal/identity"
)

// RunAs selects the identity a method acts as.
type RunAs int

const (
	// AsCaller acts as the player who invoked the plugin call.
	AsCaller RunAs = iota
	// AsExtension acts as the extension that owns the plugin call.
	AsExtension
)

func (r RunAs) String() string {
	if r == AsExtension {
		return "extension"
	}
	return "caller"
}

// Directory finds players known to the host.
type Directory interface {
	// PlayerByName returns the player with the given name.
	PlayerByName(ctx context.Context, name string) (identity.Principal, bool)
	// CurrentActor returns the actor player is currently connected as.
	CurrentActor(ctx context.Context, player identity.Principal) (identity.Actor, bool)
}

// Messenger delivers text to players.
type Messenger interface {
	// Send delivers text to player to, attributed to from.
	Send(ctx context.Context, from, to identity.Principal, text string) error
}

// Services are the host collaborators shared by every method invocation.
// Every field must be set.
type Services struct {
	Commands command.Executor
	Players  Directory
	Messages Messenger
}

// Context is what a method runs with: the identities resolved from the
// plugin call id plus the shared host services.
type Context struct {
	CallID    string
	Actor     identity.Actor
	Caller    identity.Principal
	Extension identity.Principal
	Services  *Services
}

// Principal returns the identity to act as.
func (c *Context) Principal(as RunAs) identity.Principal {
	if as == AsExtension {
		return c.Extension
	}
	return c.Caller
}

// Exec runs a command as the selected identity on behalf of the call's actor.
func (c *Context) Exec(ctx context.Context, as RunAs, args ...string) (string, error) {
	return c.Services.Commands.Run(ctx, c.Actor, c.Principal(as), args)
}
