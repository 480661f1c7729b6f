// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package attr

import (
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/samber/oops"
)

// Error codes for attribute failures.
const (
	CodeInvalidSpec = "INVALID_ATTR_SPEC"
	CodeInvalidType = "INVALID_ATTR_TYPE"
	CodeInvalidAttr = "INVALID_ATTR"
)

// Type is an attribute value type.
type Type string

// Attribute types.
const (
	TypeString   Type = "STRING"
	TypeInteger  Type = "INTEGER"
	TypeBoolean  Type = "BOOLEAN"
	TypeThing    Type = "THING"
	TypeAttr     Type = "ATTR"
	TypeAttrList Type = "ATTRLIST"
)

var types = []Type{TypeString, TypeInteger, TypeBoolean, TypeThing, TypeAttr, TypeAttrList}

// ParseType converts a type name into a Type. Names are case sensitive.
func ParseType(name string) (Type, error) {
	for _, t := range types {
		if string(t) == name {
			return t, nil
		}
	}
	return "", oops.Code(CodeInvalidType).With("type", name).Errorf("invalid type %s", name)
}

// Attr is a named, typed attribute. Value is always held in string form;
// ATTR and ATTRLIST values are JSON encodings of an Attr or []Attr.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  Type   `json:"type"`
}

// New returns an attribute after checking the value is valid for its type.
func New(name, value string, typ Type) (Attr, error) {
	a := Attr{Name: name, Value: value, Type: typ}
	if err := a.Validate(); err != nil {
		return Attr{}, err
	}
	return a, nil
}

// NewList returns an ATTRLIST attribute holding children.
func NewList(name string, children ...Attr) Attr {
	if children == nil {
		children = []Attr{}
	}
	encoded, _ := json.Marshal(children) //nolint:errcheck // Attr encoding cannot fail
	return Attr{Name: name, Value: string(encoded), Type: TypeAttrList}
}

// Validate checks the attribute name and that the value parses as its type.
func (a Attr) Validate() error {
	if a.Name == "" {
		return oops.Code(CodeInvalidAttr).Errorf("attribute name must not be empty")
	}
	if _, err := ParseType(string(a.Type)); err != nil {
		return err
	}
	errb := oops.Code(CodeInvalidAttr).With("name", a.Name).With("type", string(a.Type))
	switch a.Type {
	case TypeInteger:
		if _, err := strconv.ParseInt(a.Value, 10, 32); err != nil {
			return errb.Wrapf(err, "attribute %s is not an integer", a.Name)
		}
	case TypeBoolean:
		if _, err := strconv.ParseBool(a.Value); err != nil {
			return errb.Wrapf(err, "attribute %s is not a boolean", a.Name)
		}
	case TypeAttr:
		if _, err := a.AttrValue(); err != nil {
			return err
		}
	case TypeAttrList:
		if _, err := a.ListValue(); err != nil {
			return err
		}
	}
	return nil
}

// AttrValue decodes the nested attribute held by an ATTR attribute.
func (a Attr) AttrValue() (Attr, error) {
	if a.Type != TypeAttr {
		return Attr{}, oops.Code(CodeInvalidAttr).With("name", a.Name).Errorf("attribute %s is type %s", a.Name, a.Type)
	}
	var nested Attr
	if err := json.Unmarshal([]byte(a.Value), &nested); err != nil {
		return Attr{}, oops.Code(CodeInvalidAttr).With("name", a.Name).Wrapf(err, "decode attribute %s", a.Name)
	}
	if nested.Type == "" {
		nested.Type = TypeString
	}
	return nested, nil
}

// ListValue decodes the children held by an ATTRLIST attribute.
func (a Attr) ListValue() ([]Attr, error) {
	if a.Type != TypeAttrList {
		return nil, oops.Code(CodeInvalidAttr).With("name", a.Name).Errorf("attribute %s is type %s", a.Name, a.Type)
	}
	var children []Attr
	if err := json.Unmarshal([]byte(a.Value), &children); err != nil {
		return nil, oops.Code(CodeInvalidAttr).With("name", a.Name).Wrapf(err, "decode attribute list %s", a.Name)
	}
	for i := range children {
		if children[i].Type == "" {
			children[i].Type = TypeString
		}
	}
	return children, nil
}

// Spec renders the attribute as name[TYPE]=value.
func (a Attr) Spec() string {
	return a.Name + "[" + string(a.Type) + "]=" + a.Value
}

var (
	typedSpecPattern  = regexp.MustCompile(`(?s)^([^\[]+)\[([^\]]+)\]=(.*)$`)
	stringSpecPattern = regexp.MustCompile(`(?s)^([^\[=]+)=(.*)$`)
)

// ParseSpec parses name[TYPE]=value, or name=value for a STRING attribute.
func ParseSpec(spec string) (Attr, error) {
	if m := typedSpecPattern.FindStringSubmatch(spec); m != nil {
		typ, err := ParseType(m[2])
		if err != nil {
			return Attr{}, oops.With("spec", spec).Wrap(err)
		}
		return Attr{Name: m[1], Value: m[3], Type: typ}, nil
	}
	if m := stringSpecPattern.FindStringSubmatch(spec); m != nil {
		return Attr{Name: m[1], Value: m[2], Type: TypeString}, nil
	}
	return Attr{}, oops.Code(CodeInvalidSpec).With("spec", spec).Errorf("invalid attribute spec %s", spec)
}

// ToValue converts the attribute value into a tagged value. ATTR and
// ATTRLIST values become maps keyed by child name; BOOLEAN values become
// bools; every other type stays a string.
func (a Attr) ToValue() (Value, error) {
	switch a.Type {
	case TypeBoolean:
		b, err := strconv.ParseBool(a.Value)
		if err != nil {
			return Value{}, oops.Code(CodeInvalidAttr).With("name", a.Name).Wrapf(err, "attribute %s is not a boolean", a.Name)
		}
		return Bool(b), nil
	case TypeAttr:
		nested, err := a.AttrValue()
		if err != nil {
			return Value{}, err
		}
		v, err := nested.ToValue()
		if err != nil {
			return Value{}, err
		}
		return Map(F(nested.Name, v)), nil
	case TypeAttrList:
		children, err := a.ListValue()
		if err != nil {
			return Value{}, err
		}
		fields := make([]Field, 0, len(children))
		for _, child := range children {
			v, err := child.ToValue()
			if err != nil {
				return Value{}, oops.With("parent", a.Name).Wrap(err)
			}
			fields = append(fields, F(child.Name, v))
		}
		return Map(fields...), nil
	default:
		return String(a.Value), nil
	}
}
