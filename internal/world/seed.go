// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/plugincall/internal/attr"
	"github.com/holomush/plugincall/internal/identity"
)

// CodeInvalidSeed is the oops code for a seed entry that cannot be applied.
const CodeInvalidSeed = "INVALID_SEED"

// Seed describes the initial population of a world.
type Seed struct {
	Players    []PlayerSeed    `koanf:"players"`
	Extensions []ExtensionSeed `koanf:"extensions"`
	Things     []ThingSeed     `koanf:"things"`
}

// PlayerSeed describes one player.
type PlayerSeed struct {
	Name      string   `koanf:"name"`
	Roles     []string `koanf:"roles"`
	Timezone  string   `koanf:"timezone"`
	Connected bool     `koanf:"connected"`
}

// ExtensionSeed describes one extension. ID is optional and matches the
// extension ID of plugin definition documents. Attrs are attribute specs of
// the form name[TYPE]=value; a value of @path is read from that file.
type ExtensionSeed struct {
	ID    string   `koanf:"id"`
	Name  string   `koanf:"name"`
	Roles []string `koanf:"roles"`
	Attrs []string `koanf:"attrs"`
}

// ThingSeed describes a plain object.
type ThingSeed struct {
	Name  string   `koanf:"name"`
	Attrs []string `koanf:"attrs"`
}

// Seeded records the principals a seed created, keyed by name.
type Seeded struct {
	Players    map[string]identity.Principal
	Extensions map[string]identity.Principal
	Things     map[string]string
}

// Apply populates w from seed. It stops at the first invalid entry.
func (w *World) Apply(ctx context.Context, seed Seed) (*Seeded, error) {
	out := &Seeded{
		Players:    make(map[string]identity.Principal),
		Extensions: make(map[string]identity.Principal),
		Things:     make(map[string]string),
	}

	for _, ps := range seed.Players {
		errb := oops.Code(CodeInvalidSeed).With("player", ps.Name)
		roles, err := parseRoles(ps.Roles)
		if err != nil {
			return nil, errb.Wrap(err)
		}
		p, err := w.AddPlayer(ps.Name, roles...)
		if err != nil {
			return nil, errb.Wrap(err)
		}
		if ps.Connected {
			tz := time.UTC
			if ps.Timezone != "" {
				if tz, err = time.LoadLocation(ps.Timezone); err != nil {
					return nil, errb.With("timezone", ps.Timezone).Wrapf(err, "load timezone")
				}
			}
			if _, err := w.Connect(p, tz); err != nil {
				return nil, errb.Wrap(err)
			}
		}
		out.Players[ps.Name] = p
	}

	for _, es := range seed.Extensions {
		errb := oops.Code(CodeInvalidSeed).With("extension", es.Name)
		roles, err := parseRoles(es.Roles)
		if err != nil {
			return nil, errb.Wrap(err)
		}
		var p identity.Principal
		if es.ID != "" {
			p = w.EnsureExtension(identity.NewExtension(es.ID, es.Name), roles...)
		} else {
			p = w.AddExtension(es.Name, roles...)
		}
		if err := w.applyAttrs(ctx, p.ID, es.Attrs); err != nil {
			return nil, errb.Wrap(err)
		}
		out.Extensions[es.Name] = p
	}

	for _, ts := range seed.Things {
		id := w.AddThing(ts.Name)
		if err := w.applyAttrs(ctx, id, ts.Attrs); err != nil {
			return nil, oops.Code(CodeInvalidSeed).With("thing", ts.Name).Wrap(err)
		}
		out.Things[ts.Name] = id
	}
	return out, nil
}

func (w *World) applyAttrs(ctx context.Context, thingID string, specs []string) error {
	for _, spec := range specs {
		a, err := attr.ParseSpec(spec)
		if err != nil {
			return err
		}
		if a, err = attr.ExpandFileValue(a); err != nil {
			return err
		}
		if err := a.Validate(); err != nil {
			return err
		}
		if err := w.store.Set(ctx, thingID, a); err != nil {
			return oops.With("attr", a.Name).Wrap(err)
		}
	}
	return nil
}

func parseRoles(names []string) ([]identity.Role, error) {
	roles := make([]identity.Role, 0, len(names))
	for _, name := range names {
		r, err := identity.ParseRole(name)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}
