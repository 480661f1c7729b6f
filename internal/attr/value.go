// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package attr models object attributes and the loosely-typed declarative
// data they carry.
package attr

import (
	"github.com/samber/oops"
)

// CodeWrongKind is the oops code for a value that is not of the expected kind.
const CodeWrongKind = "WRONG_KIND"

// Kind identifies the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindString Kind = iota + 1
	KindBool
	KindList
	KindMap
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is a recursive tagged value: a string, a bool, a list of values, or an
// ordered map of named values. The zero Value is invalid.
type Value struct {
	kind   Kind
	str    string
	b      bool
	list   []Value
	fields []Field
}

// Field is one named entry of a map value.
type Field struct {
	Name  string
	Value Value
}

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns a list value.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Map returns a map value. Field order is preserved.
func Map(fields ...Field) Value { return Value{kind: KindMap, fields: fields} }

// F is shorthand for building a Field.
func F(name string, v Value) Field { return Field{Name: name, Value: v} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != 0 }

func (v Value) wrongKind(want Kind) error {
	return oops.Code(CodeWrongKind).
		With("want", want.String()).
		With("got", v.kind.String()).
		Errorf("expected %s, got %s", want, v.kind)
}

// AsString returns the string held by v.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", v.wrongKind(KindString)
	}
	return v.str, nil
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.wrongKind(KindBool)
	}
	return v.b, nil
}

// AsList returns the items held by v.
func (v Value) AsList() ([]Value, error) {
	if v.kind != KindList {
		return nil, v.wrongKind(KindList)
	}
	return v.list, nil
}

// AsMap returns the fields held by v, in order.
func (v Value) AsMap() ([]Field, error) {
	if v.kind != KindMap {
		return nil, v.wrongKind(KindMap)
	}
	return v.fields, nil
}

// AsStrings returns a list value whose items are all strings.
func (v Value) AsStrings() ([]string, error) {
	items, err := v.AsList()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, err := item.AsString()
		if err != nil {
			return nil, oops.With("index", i).Wrap(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Get returns the first field named name of a map value. It returns false for
// non-map values.
func (v Value) Get(name string) (Value, bool) {
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}
