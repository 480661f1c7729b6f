// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package identity defines the principals, actors and roles that plugin calls
// run under, and the authorization predicate over them.
package identity

import (
	"sort"
	"strings"

	"github.com/samber/oops"
)

// Role is a named permission group a player can belong to.
type Role string

// Known roles, from most to least privileged.
const (
	RoleThaumaturge Role = "THAUMATURGE"
	RoleAdept       Role = "ADEPT"
	RoleBard        Role = "BARD"
	RoleDenizen     Role = "DENIZEN"
	RoleGuest       Role = "GUEST"
)

// CodeUnknownRole is the oops code for an unrecognized role name.
const CodeUnknownRole = "UNKNOWN_ROLE"

var allRoles = []Role{RoleThaumaturge, RoleAdept, RoleBard, RoleDenizen, RoleGuest}

// AllRoles returns every known role.
func AllRoles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// ParseRole converts a role name into a Role. Names are case sensitive.
func ParseRole(name string) (Role, error) {
	for _, r := range allRoles {
		if string(r) == name {
			return r, nil
		}
	}
	return "", oops.Code(CodeUnknownRole).With("role", name).Errorf("unknown role %q", name)
}

// Roles is a set of roles.
type Roles map[Role]struct{}

// NewRoles builds a set from the given roles.
func NewRoles(roles ...Role) Roles {
	set := make(Roles, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// NonGuestRoles returns the default permitted set: every role except GUEST.
func NonGuestRoles() Roles {
	set := make(Roles, len(allRoles)-1)
	for _, r := range allRoles {
		if r != RoleGuest {
			set[r] = struct{}{}
		}
	}
	return set
}

// ParseRoleList parses a comma-separated list of role names. Blank entries are
// skipped. An input with no names yields an empty set.
func ParseRoleList(list string) (Roles, error) {
	set := Roles{}
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		r, err := ParseRole(name)
		if err != nil {
			return nil, oops.With("roles", list).Wrap(err)
		}
		set[r] = struct{}{}
	}
	return set, nil
}

// Has reports whether r is in the set.
func (s Roles) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Intersects reports whether the two sets share at least one role.
func (s Roles) Intersects(other Roles) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for r := range small {
		if large.Has(r) {
			return true
		}
	}
	return false
}

// Sorted returns the roles in a stable order.
func (s Roles) Sorted() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted role names.
func (s Roles) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, r := range sorted {
		out[i] = string(r)
	}
	return out
}
