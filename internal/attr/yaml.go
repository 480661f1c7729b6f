// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package attr

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// FromYAML converts a YAML node into a tagged value. Mappings keep their key
// order, !!bool scalars become bools, and every other scalar becomes a string.
func FromYAML(node *yaml.Node) (Value, error) {
	if node == nil {
		return Value{}, oops.Code(CodeWrongKind).Errorf("empty YAML node")
	}
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Map(), nil
		}
		return FromYAML(node.Content[0])
	case yaml.AliasNode:
		return FromYAML(node.Alias)
	case yaml.MappingNode:
		fields := make([]Field, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			v, err := FromYAML(node.Content[i+1])
			if err != nil {
				return Value{}, oops.With("key", key.Value).With("line", key.Line).Wrap(err)
			}
			fields = append(fields, F(key.Value, v))
		}
		return Map(fields...), nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for i, child := range node.Content {
			v, err := FromYAML(child)
			if err != nil {
				return Value{}, oops.With("index", i).Wrap(err)
			}
			items = append(items, v)
		}
		return List(items...), nil
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!bool":
			b, err := strconv.ParseBool(strings.ToLower(node.Value))
			if err != nil {
				return Value{}, oops.Code(CodeWrongKind).With("line", node.Line).Wrapf(err, "invalid boolean %q", node.Value)
			}
			return Bool(b), nil
		case "!!null":
			return String(""), nil
		default:
			return String(node.Value), nil
		}
	default:
		return Value{}, oops.Code(CodeWrongKind).With("line", node.Line).Errorf("unsupported YAML node kind %d", node.Kind)
	}
}

// ExpandFileValue replaces a value of the form @path with the contents of
// that file. ATTR and ATTRLIST files are YAML and are re-encoded as JSON.
// Attributes without an @ reference are returned unchanged.
func ExpandFileValue(a Attr) (Attr, error) {
	if !strings.HasPrefix(a.Value, "@") || len(a.Value) < 2 {
		return a, nil
	}
	path := a.Value[1:]
	data, err := os.ReadFile(path)
	if err != nil {
		return Attr{}, oops.Code(CodeInvalidAttr).With("name", a.Name).With("path", path).
			Wrapf(err, "read attribute value")
	}
	if a.Type != TypeAttr && a.Type != TypeAttrList {
		a.Value = string(data)
		return a, nil
	}
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return Attr{}, oops.Code(CodeInvalidAttr).With("name", a.Name).With("path", path).
			Wrapf(err, "parse attribute value")
	}
	encoded, err := json.Marshal(tree)
	if err != nil {
		return Attr{}, oops.Code(CodeInvalidAttr).With("name", a.Name).With("path", path).
			Wrapf(err, "encode attribute value")
	}
	a.Value = string(encoded)
	return a, a.Validate()
}
