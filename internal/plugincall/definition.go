// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugincall

import (
	"sort"
	"strings"

	"github.com/holomush/plugincall/internal/attr"
	"github.com/holomush/plugincall/internal/identity"
	"github.com/holomush/plugincall/internal/tracker"
)

// Field names in declarative call data.
const (
	FieldPath   = "pluginPath"
	FieldMethod = "pluginMethod"
	FieldRoles  = "callerRoles"
	FieldHelp   = "commandHelp"
)

// Prefix marks extension attributes that define plugin calls.
const Prefix = "$"

// Definition describes an external program invocable as a plugin call.
// It is immutable after Build.
type Definition struct {
	name      string
	path      string
	method    string
	roles     identity.Roles
	help      map[string]string
	extension identity.Principal
	tracker   *tracker.Tracker
}

// Build creates a definition named name from declarative data owned by
// extension. data must be a map holding pluginPath and pluginMethod strings,
// and optionally callerRoles (a comma-separated string or a list of role
// names) and commandHelp (a map of command names to maps of help keys).
func Build(name string, data attr.Value, extension identity.Principal, tr *tracker.Tracker) (*Definition, error) {
	if data.Kind() != attr.KindMap {
		return nil, ErrDefinition(name, "call data must be a map, not "+data.Kind().String())
	}
	if tr == nil {
		return nil, ErrDefinition(name, "no call tracker")
	}

	path, err := requiredString(name, data, FieldPath)
	if err != nil {
		return nil, err
	}
	method, err := requiredString(name, data, FieldMethod)
	if err != nil {
		return nil, err
	}
	roles, err := buildRoles(name, data)
	if err != nil {
		return nil, err
	}
	help, err := buildHelp(name, data)
	if err != nil {
		return nil, err
	}

	return &Definition{
		name:      name,
		path:      path,
		method:    method,
		roles:     roles,
		help:      help,
		extension: extension,
		tracker:   tr,
	}, nil
}

// BuildFromAttr creates a definition from an ATTRLIST attribute, named after
// the attribute.
func BuildFromAttr(a attr.Attr, extension identity.Principal, tr *tracker.Tracker) (*Definition, error) {
	if a.Type != attr.TypeAttrList {
		return nil, ErrDefinition(a.Name, "attribute must be of type ATTRLIST but is of type "+string(a.Type))
	}
	v, err := a.ToValue()
	if err != nil {
		return nil, wrapDefinition(a.Name, err)
	}
	return Build(a.Name, v, extension, tr)
}

func requiredString(name string, data attr.Value, field string) (string, error) {
	v, ok := data.Get(field)
	if !ok {
		return "", ErrDefinition(name, "missing "+field)
	}
	s, err := v.AsString()
	if err != nil {
		return "", wrapDefinition(name, err)
	}
	if s == "" {
		return "", ErrDefinition(name, "empty "+field)
	}
	return s, nil
}

func buildRoles(name string, data attr.Value) (identity.Roles, error) {
	v, ok := data.Get(FieldRoles)
	if !ok {
		return identity.NonGuestRoles(), nil
	}

	var list string
	switch v.Kind() {
	case attr.KindString:
		list, _ = v.AsString()
	case attr.KindList:
		names, err := v.AsStrings()
		if err != nil {
			return nil, wrapDefinition(name, err)
		}
		list = strings.Join(names, ",")
	default:
		return nil, ErrDefinition(name, FieldRoles+" must be a string or list, not "+v.Kind().String())
	}

	roles, err := identity.ParseRoleList(list)
	if err != nil {
		return nil, wrapDefinition(name, err)
	}
	if len(roles) == 0 {
		return identity.NonGuestRoles(), nil
	}
	return roles, nil
}

func buildHelp(name string, data attr.Value) (map[string]string, error) {
	help := map[string]string{}
	v, ok := data.Get(FieldHelp)
	if !ok {
		return help, nil
	}
	commands, err := v.AsMap()
	if err != nil {
		return nil, wrapDefinition(name, err)
	}
	for _, cmd := range commands {
		entries, err := cmd.Value.AsMap()
		if err != nil {
			return nil, wrapDefinition(name, err)
		}
		for _, entry := range entries {
			text, err := entry.Value.AsString()
			if err != nil {
				return nil, wrapDefinition(name, err)
			}
			help[cmd.Name+"."+entry.Name] = text
		}
	}
	return help, nil
}

// Name returns the command name the call is invoked by.
func (d *Definition) Name() string { return d.name }

// Path returns the executable path.
func (d *Definition) Path() string { return d.path }

// Method returns the remote method invoked in the plugin.
func (d *Definition) Method() string { return d.method }

// Roles returns a copy of the permitted caller roles.
func (d *Definition) Roles() identity.Roles {
	out := make(identity.Roles, len(d.roles))
	for r := range d.roles {
		out[r] = struct{}{}
	}
	return out
}

// Extension returns the owning extension.
func (d *Definition) Extension() identity.Principal { return d.extension }

// Tracker returns the shared correlation tracker.
func (d *Definition) Tracker() *tracker.Tracker { return d.tracker }

// Help returns the help text stored under key ("command.key").
func (d *Definition) Help(key string) (string, bool) {
	text, ok := d.help[key]
	return text, ok
}

// HelpKeys returns every help key in sorted order.
func (d *Definition) HelpKeys() []string {
	keys := make([]string, 0, len(d.help))
	for k := range d.help {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Permits reports whether a principal holding roles may invoke the call.
func (d *Definition) Permits(p identity.Principal, roles identity.Roles) bool {
	return identity.Authorize(p, roles, d.roles)
}

// String renders the definition for logs.
func (d *Definition) String() string {
	return d.name + "(" + d.path + "#" + d.method + ")"
}
