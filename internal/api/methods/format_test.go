// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package methods

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRecord(t *testing.T) {
	out, err := renderRecord(map[string]any{
		"keys":   []any{"Name", "Occupation", ""},
		"values": []any{"Alice", "Bard", "A wandering minstrel."},
	})
	require.NoError(t, err)
	assert.Equal(t, ""+
		"Name:       Alice\n"+
		"Occupation: Bard\n"+
		"A wandering minstrel.\n", out)
}

func TestRenderRecord_ValuesOnly(t *testing.T) {
	out, err := renderRecord(map[string]any{"keys": []any{"", ""}, "values": []any{"one", "two"}})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", out)
}

func TestRenderRecord_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   any
		msg  string
	}{
		{"not an object", []any{"a"}, "record must be an object"},
		{"no keys", map[string]any{"values": []any{}}, "record must contain a keys list"},
		{"no values", map[string]any{"keys": []any{}}, "record must contain a values list"},
		{"non-string key", map[string]any{"keys": []any{1}, "values": []any{"a"}}, "record keys must be a list of strings"},
		{"length mismatch", map[string]any{"keys": []any{"a", "b"}, "values": []any{"1"}}, "record has 2 keys but 1 values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := renderRecord(tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestRenderTable(t *testing.T) {
	out, err := renderTable(map[string]any{
		"columns": []any{
			[]any{"Name", "%-8.8s"},
			[]any{"Role", "%-10s"},
		},
		"rows": []any{
			[]any{"Alice", "BARD"},
			[]any{"Bartholomew", "ADEPT"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, ""+
		"Name     Role\n"+
		"----     ----\n"+
		"Alice    BARD\n"+
		"Bartholo ADEPT", out)
}

func TestRenderTable_Empty(t *testing.T) {
	out, err := renderTable(map[string]any{
		"columns": []any{[]any{"Name", "%-6s"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Name\n----\n<no data>", out)
}

func TestRenderTable_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   any
		msg  string
	}{
		{"not an object", "x", "table must be an object"},
		{"no columns", map[string]any{}, "table must contain a columns list"},
		{"bad column", map[string]any{"columns": []any{[]any{"Name"}}}, "column 0 must be a [header, format] pair"},
		{"bad format", map[string]any{"columns": []any{[]any{"Name", "%d"}}}, `column 0 format "%d" is not a string format`},
		{"rows not a list", map[string]any{"columns": []any{[]any{"A", "%s"}}, "rows": "x"}, "table rows must be a list"},
		{"row width", map[string]any{"columns": []any{[]any{"A", "%s"}}, "rows": []any{[]any{"1", "2"}}},
			"the table has 1 columns, but row 0 has 2 values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := renderTable(tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}
