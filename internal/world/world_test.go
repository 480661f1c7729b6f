// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/plugincall/internal/attr"
	"github.com/holomush/plugincall/internal/identity"
)

func TestWorld_Players(t *testing.T) {
	ctx := context.Background()
	w := New(nil)

	alice, err := w.AddPlayer("Alice", identity.RoleBard)
	require.NoError(t, err)
	assert.Equal(t, identity.KindPlayer, alice.Kind)
	assert.NotEmpty(t, alice.ID)

	_, err = w.AddPlayer("alice")
	require.Error(t, err)
	_, err = w.AddPlayer("")
	require.Error(t, err)

	got, ok := w.PlayerByName(ctx, "ALICE")
	require.True(t, ok)
	assert.Equal(t, alice, got)

	_, ok = w.PlayerByName(ctx, "bob")
	assert.False(t, ok)

	byID, ok := w.PlayerByID(alice.ID)
	require.True(t, ok)
	assert.Equal(t, "Alice", byID.Name)

	name, ok := w.ThingName(alice.ID)
	require.True(t, ok)
	assert.Equal(t, "Alice", name)
}

func TestWorld_ConnectAndCurrentActor(t *testing.T) {
	ctx := context.Background()
	w := New(nil)
	alice, err := w.AddPlayer("Alice")
	require.NoError(t, err)

	_, ok := w.CurrentActor(ctx, alice)
	assert.False(t, ok)

	tz, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	actor, err := w.Connect(alice, tz)
	require.NoError(t, err)
	assert.Equal(t, "Alice", actor.Username)

	current, ok := w.CurrentActor(ctx, alice)
	require.True(t, ok)
	assert.Equal(t, "Europe/Paris", current.TimezoneName())

	w.Disconnect(alice)
	_, ok = w.CurrentActor(ctx, alice)
	assert.False(t, ok)

	_, err = w.Connect(identity.NewPlayer("missing", "ghost"), nil)
	require.Error(t, err)
}

func TestWorld_RolesOf(t *testing.T) {
	ctx := context.Background()
	w := New(nil)
	alice, err := w.AddPlayer("Alice", identity.RoleBard, identity.RoleDenizen)
	require.NoError(t, err)
	ext := w.AddExtension("Dice", identity.RoleAdept)

	roles, err := w.RolesOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"BARD", "DENIZEN"}, roles.Strings())

	roles[identity.RoleThaumaturge] = struct{}{}
	again, err := w.RolesOf(ctx, alice)
	require.NoError(t, err)
	assert.False(t, again.Has(identity.RoleThaumaturge), "returned set must be a copy")

	roles, err = w.RolesOf(ctx, ext)
	require.NoError(t, err)
	assert.Equal(t, []string{"ADEPT"}, roles.Strings())

	roles, err = w.RolesOf(ctx, identity.God())
	require.NoError(t, err)
	assert.Len(t, roles, len(identity.AllRoles()))

	_, err = w.RolesOf(ctx, identity.NewExtension("nope", "nope"))
	require.Error(t, err)

	require.NoError(t, w.SetRoles(alice, identity.NewRoles(identity.RoleGuest)))
	roles, err = w.RolesOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"GUEST"}, roles.Strings())

	require.Error(t, w.SetRoles(identity.NewPlayer("nope", "nope"), nil))
}

func TestWorld_Send(t *testing.T) {
	ctx := context.Background()
	w := New(nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	alice, err := w.AddPlayer("Alice")
	require.NoError(t, err)
	ext := w.AddExtension("Dice")

	require.NoError(t, w.Send(ctx, ext, alice, "You rolled 4"))
	require.Error(t, w.Send(ctx, ext, identity.NewPlayer("nope", "nope"), "lost"))

	inbox := w.Inbox(alice)
	require.Len(t, inbox, 1)
	assert.Equal(t, Message{From: ext, To: alice, Text: "You rolled 4", At: fixed}, inbox[0])
	assert.Nil(t, w.Inbox(identity.NewPlayer("nope", "nope")))
}

func TestWorld_ExtensionAttrs(t *testing.T) {
	ctx := context.Background()
	w := New(nil)
	zed := w.AddExtension("Zed")
	dice := w.AddExtension("Dice")
	require.NoError(t, w.Store().Set(ctx, dice.ID, attr.Attr{Name: "$roll", Value: "[]", Type: attr.TypeAttrList}))

	got, err := w.ExtensionAttrs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, dice, got[0].Extension)
	require.Len(t, got[0].Attrs, 1)
	assert.Equal(t, "$roll", got[0].Attrs[0].Name)
	assert.Equal(t, zed, got[1].Extension)
	assert.Empty(t, got[1].Attrs)
}

func TestWorld_EnsureExtension(t *testing.T) {
	ctx := context.Background()
	w := New(nil)

	p := w.EnsureExtension(identity.NewExtension("ext-dice", ""), identity.RoleBard)
	assert.Equal(t, "ext-dice", p.Name)

	again := w.EnsureExtension(identity.NewExtension("ext-dice", "Dice"), identity.RoleAdept)
	assert.Equal(t, p, again)

	roles, err := w.RolesOf(ctx, identity.NewExtension("ext-dice", "Dice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"BARD"}, roles.Strings())

	name, ok := w.ThingName("ext-dice")
	require.True(t, ok)
	assert.Equal(t, "ext-dice", name)
}
