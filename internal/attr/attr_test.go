// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package attr_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/holomush/plugincall/internal/attr"
	"github.com/holomush/plugincall/pkg/errutil"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want attr.Attr
	}{
		{"typed", "count[INTEGER]=3", attr.Attr{Name: "count", Value: "3", Type: attr.TypeInteger}},
		{"untyped is string", "color=red", attr.Attr{Name: "color", Value: "red", Type: attr.TypeString}},
		{"value may contain equals", "eq=a=b", attr.Attr{Name: "eq", Value: "a=b", Type: attr.TypeString}},
		{"empty value", "blank[STRING]=", attr.Attr{Name: "blank", Value: "", Type: attr.TypeString}},
		{"multiline value", "desc=line1\nline2", attr.Attr{Name: "desc", Value: "line1\nline2", Type: attr.TypeString}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := attr.ParseSpec(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSpec_Errors(t *testing.T) {
	_, err := attr.ParseSpec("noequals")
	errutil.AssertErrorCode(t, err, attr.CodeInvalidSpec)

	_, err = attr.ParseSpec("x[FLOAT]=1.5")
	errutil.AssertErrorCode(t, err, attr.CodeInvalidType)
}

func TestSpecRoundTrip(t *testing.T) {
	a := attr.Attr{Name: "home", Value: "01JABC", Type: attr.TypeThing}
	got, err := attr.ParseSpec(a.Spec())
	require.NoError(t, err)
	assert.Equal(t, a, got)
	assert.Equal(t, "home[THING]=01JABC", a.Spec())
}

func TestValidate(t *testing.T) {
	_, err := attr.New("n", "abc", attr.TypeInteger)
	errutil.AssertErrorCode(t, err, attr.CodeInvalidAttr)

	_, err = attr.New("b", "maybe", attr.TypeBoolean)
	errutil.AssertErrorCode(t, err, attr.CodeInvalidAttr)

	_, err = attr.New("l", "not json", attr.TypeAttrList)
	errutil.AssertErrorCode(t, err, attr.CodeInvalidAttr)

	_, err = attr.New("", "x", attr.TypeString)
	errutil.AssertErrorCode(t, err, attr.CodeInvalidAttr)

	a, err := attr.New("b", "true", attr.TypeBoolean)
	require.NoError(t, err)
	assert.Equal(t, attr.TypeBoolean, a.Type)
}

func TestToValue_AttrList(t *testing.T) {
	help := attr.NewList("commandHelp",
		attr.NewList("roll",
			attr.Attr{Name: "summary", Value: "Roll dice", Type: attr.TypeString},
		),
	)
	call := attr.NewList("$roll",
		attr.Attr{Name: "pluginPath", Value: "/opt/dice", Type: attr.TypeString},
		attr.Attr{Name: "quiet", Value: "true", Type: attr.TypeBoolean},
		help,
	)

	v, err := call.ToValue()
	require.NoError(t, err)
	require.Equal(t, attr.KindMap, v.Kind())

	path, ok := v.Get("pluginPath")
	require.True(t, ok)
	s, err := path.AsString()
	require.NoError(t, err)
	assert.Equal(t, "/opt/dice", s)

	quiet, ok := v.Get("quiet")
	require.True(t, ok)
	b, err := quiet.AsBool()
	require.NoError(t, err)
	assert.True(t, b)

	helpValue, ok := v.Get("commandHelp")
	require.True(t, ok)
	roll, ok := helpValue.Get("roll")
	require.True(t, ok)
	summary, ok := roll.Get("summary")
	require.True(t, ok)
	assert.Equal(t, attr.String("Roll dice"), summary)
}

func TestToValue_ChildWithoutTypeIsString(t *testing.T) {
	a := attr.Attr{Name: "l", Value: `[{"name":"x","value":"y"}]`, Type: attr.TypeAttrList}
	v, err := a.ToValue()
	require.NoError(t, err)
	x, ok := v.Get("x")
	require.True(t, ok)
	assert.Equal(t, attr.KindString, x.Kind())
}

func TestValueAccessors_WrongKind(t *testing.T) {
	_, err := attr.Bool(true).AsString()
	errutil.AssertErrorCode(t, err, attr.CodeWrongKind)
	errutil.AssertErrorContext(t, err, "want", "string")

	_, err = attr.String("x").AsMap()
	errutil.AssertErrorCode(t, err, attr.CodeWrongKind)

	_, err = attr.List(attr.String("a"), attr.Bool(false)).AsStrings()
	errutil.AssertErrorCode(t, err, attr.CodeWrongKind)

	strs, err := attr.List(attr.String("a"), attr.String("b")).AsStrings()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, strs)

	assert.False(t, attr.Value{}.IsValid())
}

func TestFromYAML(t *testing.T) {
	src := `
pluginPath: /bin/dice
callerRoles: [ADEPT, BARD]
hidden: true
nothing:
commandHelp:
  roll:
    summary: Roll dice
`
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &node))

	v, err := attr.FromYAML(&node)
	require.NoError(t, err)

	fields, err := v.AsMap()
	require.NoError(t, err)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"pluginPath", "callerRoles", "hidden", "nothing", "commandHelp"}, names)

	roles, ok := v.Get("callerRoles")
	require.True(t, ok)
	list, err := roles.AsStrings()
	require.NoError(t, err)
	assert.Equal(t, []string{"ADEPT", "BARD"}, list)

	hidden, _ := v.Get("hidden")
	assert.Equal(t, attr.Bool(true), hidden)

	nothing, _ := v.Get("nothing")
	assert.Equal(t, attr.String(""), nothing)
}

func TestExpandFileValue(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "desc.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("A quiet room."), 0o600))
	listPath := filepath.Join(dir, "list.yaml")
	require.NoError(t, os.WriteFile(listPath, []byte("- name: pluginPath\n  value: /bin/x\n  type: STRING\n"), 0o600))

	got, err := attr.ExpandFileValue(attr.Attr{Name: "desc", Value: "@" + textPath, Type: attr.TypeString})
	require.NoError(t, err)
	assert.Equal(t, "A quiet room.", got.Value)

	got, err = attr.ExpandFileValue(attr.Attr{Name: "$x", Value: "@" + listPath, Type: attr.TypeAttrList})
	require.NoError(t, err)
	children, err := got.ListValue()
	require.NoError(t, err)
	assert.Equal(t, []attr.Attr{{Name: "pluginPath", Value: "/bin/x", Type: attr.TypeString}}, children)

	unchanged := attr.Attr{Name: "at", Value: "@", Type: attr.TypeString}
	got, err = attr.ExpandFileValue(unchanged)
	require.NoError(t, err)
	assert.Equal(t, unchanged, got)

	_, err = attr.ExpandFileValue(attr.Attr{Name: "missing", Value: "@" + filepath.Join(dir, "nope"), Type: attr.TypeString})
	errutil.AssertErrorCode(t, err, attr.CodeInvalidAttr)
}
