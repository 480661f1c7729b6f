// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/plugincall/internal/attr"
	"github.com/holomush/plugincall/internal/command"
	"github.com/holomush/plugincall/internal/identity"
)

// Command names registered by RegisterCommands.
const (
	CmdGetAttr      = "GET_ATTR"
	CmdSetAttr      = "SET_ATTR"
	CmdRemoveAttr   = "REMOVE_ATTR"
	CmdGetAttrNames = "GET_ATTR_NAMES"
	CmdRole         = "ROLE"
)

const commandSource = "core"

// RegisterCommands adds the attribute and role commands to reg.
func (w *World) RegisterCommands(reg *command.Registry) error {
	entries := []command.Entry{
		{
			Name:    CmdGetAttr,
			Handler: w.getAttr,
			Help:    "Show an attribute",
			Usage:   "GET_ATTR <thing> <name>",
		},
		{
			Name:    CmdSetAttr,
			Handler: w.setAttr,
			Roles:   identity.NonGuestRoles(),
			Help:    "Create or replace an attribute",
			Usage:   "SET_ATTR <thing> <name>[TYPE]=<value>",
		},
		{
			Name:    CmdRemoveAttr,
			Handler: w.removeAttr,
			Roles:   identity.NonGuestRoles(),
			Help:    "Delete an attribute",
			Usage:   "REMOVE_ATTR <thing> <name>",
		},
		{
			Name:    CmdGetAttrNames,
			Handler: w.getAttrNames,
			Help:    "List attribute names",
			Usage:   "GET_ATTR_NAMES <thing>",
		},
		{
			Name:    CmdRole,
			Handler: w.role,
			Help:    "Show or change player roles",
			Usage:   "ROLE GET|ADD|REMOVE <player> [role]",
		},
	}
	for _, e := range entries {
		e.Source = commandSource
		if err := reg.Register(e); err != nil {
			return oops.With("command", e.Name).Wrap(err)
		}
	}
	return nil
}

func (w *World) thing(id string) (string, error) {
	name, ok := w.ThingName(id)
	if !ok {
		return "", command.ErrNotFound(fmt.Sprintf("There is no thing %s", id))
	}
	return name, nil
}

func (w *World) storeFailure(thingName, name string, err error) error {
	if errors.Is(err, ErrAttrNotFound) {
		return command.ErrNotFound(fmt.Sprintf("There is no attribute %s on %s", name, thingName))
	}
	return command.Failed("Attribute storage failed", err)
}

func (w *World) getAttr(ctx context.Context, inv *command.Invocation) (string, error) {
	if len(inv.Args) != 2 {
		return "", command.ErrInvalidArgs(CmdGetAttr, "GET_ATTR <thing> <name>")
	}
	thingName, err := w.thing(inv.Arg(0))
	if err != nil {
		return "", err
	}
	a, err := w.store.Get(ctx, inv.Arg(0), inv.Arg(1))
	if err != nil {
		return "", w.storeFailure(thingName, inv.Arg(1), err)
	}
	return a.Spec(), nil
}

func (w *World) setAttr(ctx context.Context, inv *command.Invocation) (string, error) {
	if len(inv.Args) != 2 {
		return "", command.ErrInvalidArgs(CmdSetAttr, "SET_ATTR <thing> <name>[TYPE]=<value>")
	}
	thingName, err := w.thing(inv.Arg(0))
	if err != nil {
		return "", err
	}
	a, err := attr.ParseSpec(inv.Arg(1))
	if err != nil {
		return "", command.Failed("Invalid attribute "+inv.Arg(1), err)
	}
	if err := a.Validate(); err != nil {
		return "", command.Failed("Invalid value for attribute "+a.Name, err)
	}
	if err := w.store.Set(ctx, inv.Arg(0), a); err != nil {
		return "", w.storeFailure(thingName, a.Name, err)
	}
	return "", nil
}

func (w *World) removeAttr(ctx context.Context, inv *command.Invocation) (string, error) {
	if len(inv.Args) != 2 {
		return "", command.ErrInvalidArgs(CmdRemoveAttr, "REMOVE_ATTR <thing> <name>")
	}
	thingName, err := w.thing(inv.Arg(0))
	if err != nil {
		return "", err
	}
	if err := w.store.Remove(ctx, inv.Arg(0), inv.Arg(1)); err != nil {
		return "", w.storeFailure(thingName, inv.Arg(1), err)
	}
	return "", nil
}

func (w *World) getAttrNames(ctx context.Context, inv *command.Invocation) (string, error) {
	if len(inv.Args) != 1 {
		return "", command.ErrInvalidArgs(CmdGetAttrNames, "GET_ATTR_NAMES <thing>")
	}
	thingName, err := w.thing(inv.Arg(0))
	if err != nil {
		return "", err
	}
	attrs, err := w.store.List(ctx, inv.Arg(0))
	if err != nil {
		return "", w.storeFailure(thingName, "", err)
	}
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.Name
	}
	return strings.Join(names, ","), nil
}

func (w *World) role(ctx context.Context, inv *command.Invocation) (string, error) {
	const usage = "ROLE GET|ADD|REMOVE <player> [role]"
	if len(inv.Args) < 2 {
		return "", command.ErrInvalidArgs(CmdRole, usage)
	}
	sub := strings.ToUpper(inv.Arg(0))
	target, ok := w.PlayerByID(inv.Arg(1))
	if !ok {
		return "", command.ErrNotFound(fmt.Sprintf("Player %s not found", inv.Arg(1)))
	}

	switch sub {
	case "GET":
		if len(inv.Args) != 2 {
			return "", command.ErrInvalidArgs(CmdRole, usage)
		}
		held, err := w.RolesOf(ctx, target)
		if err != nil {
			return "", command.Failed("Unable to read roles", err)
		}
		return fmt.Sprintf("Roles for %s: %s", target.Name, strings.Join(held.Strings(), ",")), nil
	case "ADD", "REMOVE":
		if len(inv.Args) != 3 {
			return "", command.ErrInvalidArgs(CmdRole, usage)
		}
		if err := w.requireRole(ctx, inv.As, identity.RoleThaumaturge); err != nil {
			return "", err
		}
		r, err := identity.ParseRole(strings.ToUpper(inv.Arg(2)))
		if err != nil {
			return "", command.Failed("Unknown role "+inv.Arg(2), err)
		}
		held, err := w.RolesOf(ctx, target)
		if err != nil {
			return "", command.Failed("Unable to read roles", err)
		}
		if sub == "ADD" {
			held[r] = struct{}{}
		} else {
			delete(held, r)
		}
		if err := w.SetRoles(target, held); err != nil {
			return "", command.Failed("Unable to update roles", err)
		}
		return fmt.Sprintf("Roles for %s: %s", target.Name, strings.Join(held.Strings(), ",")), nil
	default:
		return "", command.ErrInvalidArgs(CmdRole, usage)
	}
}

func (w *World) requireRole(ctx context.Context, p identity.Principal, r identity.Role) error {
	held, err := w.RolesOf(ctx, p)
	if err != nil {
		return command.Failed("Unable to determine your roles", err)
	}
	if !identity.Authorize(p, held, identity.NewRoles(r)) {
		return command.ErrPermissionDenied(CmdRole, p.String())
	}
	return nil
}
