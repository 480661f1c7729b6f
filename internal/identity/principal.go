// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"context"
	"time"
)

// Kind distinguishes the identities a command can run as.
type Kind uint8

// Principal kinds.
const (
	KindPlayer Kind = iota + 1
	KindExtension
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindExtension:
		return "extension"
	default:
		return "unknown"
	}
}

// GodID is the identifier of the super-identity.
const GodID = "GOD"

// Principal is an identity a command runs as: a player, or an extension
// acting as a delegated identity.
type Principal struct {
	Kind Kind
	ID   string
	Name string

	privileged bool
}

// NewPlayer returns a player principal.
func NewPlayer(id, name string) Principal {
	return Principal{Kind: KindPlayer, ID: id, Name: name}
}

// NewExtension returns an extension principal.
func NewExtension(id, name string) Principal {
	return Principal{Kind: KindExtension, ID: id, Name: name}
}

// God returns the super-identity, which bypasses every role check.
func God() Principal {
	return Principal{Kind: KindPlayer, ID: GodID, Name: GodID, privileged: true}
}

// IsPrivileged reports whether p is the super-identity.
func (p Principal) IsPrivileged() bool { return p.privileged }

// IsZero reports whether p is unset.
func (p Principal) IsZero() bool { return p.Kind == 0 && p.ID == "" }

// String renders the principal for logs.
func (p Principal) String() string {
	if p.Name != "" {
		return p.Kind.String() + ":" + p.Name
	}
	return p.Kind.String() + ":" + p.ID
}

// Actor is the technical session a call originated from.
type Actor struct {
	ID       string
	Username string
	Timezone *time.Location
}

// TimezoneName returns the actor's IANA zone name, UTC when unset.
func (a Actor) TimezoneName() string {
	if a.Timezone == nil {
		return time.UTC.String()
	}
	return a.Timezone.String()
}

// RoleProvider reports the roles a principal currently holds.
type RoleProvider interface {
	RolesOf(ctx context.Context, p Principal) (Roles, error)
}

// Authorize reports whether a principal holding roles may use something
// restricted to permitted. The super-identity always passes.
func Authorize(p Principal, roles, permitted Roles) bool {
	if p.IsPrivileged() {
		return true
	}
	return roles.Intersects(permitted)
}
