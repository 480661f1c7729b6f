// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package world is the reference host for plugin calls: an in-memory set of
// players, extensions and things, with attribute storage delegated to an
// AttrStore. It supplies the player directory, the messenger and the
// attribute and role commands the gateway methods run through.
package world

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/plugincall/internal/attr"
	"github.com/holomush/plugincall/internal/identity"
)

// Error codes for world failures.
const (
	CodeUnknownPrincipal = "UNKNOWN_PRINCIPAL"
	CodeDuplicateName    = "DUPLICATE_NAME"
)

// Message is a line of text delivered to a player.
type Message struct {
	From identity.Principal
	To   identity.Principal
	Text string
	At   time.Time
}

type player struct {
	principal identity.Principal
	roles     identity.Roles
	actor     *identity.Actor
	inbox     []Message
}

type extension struct {
	principal identity.Principal
	roles     identity.Roles
}

// World holds the live state of the reference host. It is safe for
// concurrent use.
type World struct {
	mu         sync.RWMutex
	store      AttrStore
	players    map[string]*player
	names      map[string]string // lower-cased player name to ID
	extensions map[string]*extension
	things     map[string]string // ID to display name, for every object
	now        func() time.Time
}

// New creates an empty world backed by store. A nil store selects an
// in-memory one.
func New(store AttrStore) *World {
	if store == nil {
		store = NewMemoryAttrStore()
	}
	return &World{
		store:      store,
		players:    make(map[string]*player),
		names:      make(map[string]string),
		extensions: make(map[string]*extension),
		things:     make(map[string]string),
		now:        time.Now,
	}
}

// Store returns the attribute store.
func (w *World) Store() AttrStore { return w.store }

func newID() string { return ulid.Make().String() }

// AddPlayer creates a player holding roles. Player names are unique
// ignoring case.
func (w *World) AddPlayer(name string, roles ...identity.Role) (identity.Principal, error) {
	if name == "" {
		return identity.Principal{}, oops.Code(CodeDuplicateName).Errorf("player name must not be empty")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	key := strings.ToLower(name)
	if _, exists := w.names[key]; exists {
		return identity.Principal{}, oops.Code(CodeDuplicateName).With("name", name).
			Errorf("a player named %s already exists", name)
	}
	p := identity.NewPlayer(newID(), name)
	w.players[p.ID] = &player{principal: p, roles: identity.NewRoles(roles...)}
	w.names[key] = p.ID
	w.things[p.ID] = name
	return p, nil
}

// AddExtension creates an extension holding roles.
func (w *World) AddExtension(name string, roles ...identity.Role) identity.Principal {
	return w.EnsureExtension(identity.NewExtension(newID(), name), roles...)
}

// EnsureExtension registers an extension with a known ID, such as one named
// by a plugin definition document. An already registered extension is
// returned unchanged.
func (w *World) EnsureExtension(p identity.Principal, roles ...identity.Role) identity.Principal {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ext, ok := w.extensions[p.ID]; ok {
		return ext.principal
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	w.extensions[p.ID] = &extension{principal: p, roles: identity.NewRoles(roles...)}
	w.things[p.ID] = p.Name
	return p
}

// AddThing creates a plain object that can carry attributes and returns its ID.
func (w *World) AddThing(name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := newID()
	w.things[id] = name
	return id
}

// ThingName returns the display name of any object.
func (w *World) ThingName(id string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	name, ok := w.things[id]
	return name, ok
}

// Connect attaches an actor session to a player.
func (w *World) Connect(p identity.Principal, tz *time.Location) (identity.Actor, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pl, ok := w.players[p.ID]
	if !ok {
		return identity.Actor{}, errUnknownPrincipal(p)
	}
	actor := identity.Actor{ID: newID(), Username: pl.principal.Name, Timezone: tz}
	pl.actor = &actor
	return actor, nil
}

// Disconnect detaches the player's actor session, if any.
func (w *World) Disconnect(p identity.Principal) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if pl, ok := w.players[p.ID]; ok {
		pl.actor = nil
	}
}

// SetRoles replaces the roles held by a player or extension.
func (w *World) SetRoles(p identity.Principal, roles identity.Roles) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	replacement := make(identity.Roles, len(roles))
	for r := range roles {
		replacement[r] = struct{}{}
	}
	switch p.Kind {
	case identity.KindPlayer:
		if pl, ok := w.players[p.ID]; ok {
			pl.roles = replacement
			return nil
		}
	case identity.KindExtension:
		if ext, ok := w.extensions[p.ID]; ok {
			ext.roles = replacement
			return nil
		}
	}
	return errUnknownPrincipal(p)
}

// RolesOf implements identity.RoleProvider. The super-identity holds every role.
func (w *World) RolesOf(_ context.Context, p identity.Principal) (identity.Roles, error) {
	if p.IsPrivileged() {
		return identity.NewRoles(identity.AllRoles()...), nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()

	held, err := w.rolesLocked(p)
	if err != nil {
		return nil, err
	}
	out := make(identity.Roles, len(held))
	for r := range held {
		out[r] = struct{}{}
	}
	return out, nil
}

func (w *World) rolesLocked(p identity.Principal) (identity.Roles, error) {
	switch p.Kind {
	case identity.KindPlayer:
		if pl, ok := w.players[p.ID]; ok {
			return pl.roles, nil
		}
	case identity.KindExtension:
		if ext, ok := w.extensions[p.ID]; ok {
			return ext.roles, nil
		}
	}
	return nil, errUnknownPrincipal(p)
}

// PlayerByName returns the player with the given name, ignoring case.
func (w *World) PlayerByName(_ context.Context, name string) (identity.Principal, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	id, ok := w.names[strings.ToLower(name)]
	if !ok {
		return identity.Principal{}, false
	}
	return w.players[id].principal, true
}

// PlayerByID returns the player with the given ID.
func (w *World) PlayerByID(id string) (identity.Principal, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	pl, ok := w.players[id]
	if !ok {
		return identity.Principal{}, false
	}
	return pl.principal, true
}

// CurrentActor returns the session the player is connected as.
func (w *World) CurrentActor(_ context.Context, p identity.Principal) (identity.Actor, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	pl, ok := w.players[p.ID]
	if !ok || pl.actor == nil {
		return identity.Actor{}, false
	}
	return *pl.actor, true
}

// Send delivers text to a player's inbox.
func (w *World) Send(ctx context.Context, from, to identity.Principal, text string) error {
	w.mu.Lock()
	pl, ok := w.players[to.ID]
	if !ok {
		w.mu.Unlock()
		return errUnknownPrincipal(to)
	}
	pl.inbox = append(pl.inbox, Message{From: from, To: pl.principal, Text: text, At: w.now()})
	w.mu.Unlock()

	slog.DebugContext(ctx, "message delivered",
		"from", from.String(),
		"to", to.String(),
		"length", len(text))
	return nil
}

// Inbox returns a copy of the messages delivered to a player.
func (w *World) Inbox(p identity.Principal) []Message {
	w.mu.RLock()
	defer w.mu.RUnlock()

	pl, ok := w.players[p.ID]
	if !ok {
		return nil
	}
	return append([]Message(nil), pl.inbox...)
}

// ExtensionAttrs returns the stored attributes of every extension, keyed by
// extension principal and ordered by extension name.
func (w *World) ExtensionAttrs(ctx context.Context) ([]ExtensionAttrs, error) {
	w.mu.RLock()
	exts := make([]identity.Principal, 0, len(w.extensions))
	for _, ext := range w.extensions {
		exts = append(exts, ext.principal)
	}
	w.mu.RUnlock()
	sort.Slice(exts, func(i, j int) bool { return exts[i].Name < exts[j].Name })

	out := make([]ExtensionAttrs, 0, len(exts))
	for _, ext := range exts {
		attrs, err := w.store.List(ctx, ext.ID)
		if err != nil {
			return nil, oops.With("extension", ext.Name).Wrap(err)
		}
		out = append(out, ExtensionAttrs{Extension: ext, Attrs: attrs})
	}
	return out, nil
}

// ExtensionAttrs pairs an extension with its stored attributes.
type ExtensionAttrs struct {
	Extension identity.Principal
	Attrs     []attr.Attr
}

func errUnknownPrincipal(p identity.Principal) error {
	return oops.Code(CodeUnknownPrincipal).
		With("principal", p.String()).
		Errorf("unknown %s %s", p.Kind, p.ID)
}
