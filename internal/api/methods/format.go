// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package methods

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// noData is shown in place of rows for an empty table.
const noData = "<no data>"

// columnFormat accepts printf string verbs such as %s, %-20s or %-40.40s.
var columnFormat = regexp.MustCompile(`^%-?[0-9]*(\.[0-9]+)?s$`)

// renderRecord lays out {"keys": [...], "values": [...]} as aligned
// "key: value" lines. An empty key produces a line holding only the value.
func renderRecord(v any) (string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", oops.Errorf("record must be an object")
	}
	keys, err := stringList(m, "keys")
	if err != nil {
		return "", err
	}
	values, err := stringList(m, "values")
	if err != nil {
		return "", err
	}
	if len(keys) != len(values) {
		return "", oops.Errorf("record has %d keys but %d values", len(keys), len(values))
	}

	width := 0
	for _, k := range keys {
		if k != "" {
			width = max(width, utf8.RuneCountInString(k)+1)
		}
	}

	var b strings.Builder
	for i, k := range keys {
		if k == "" {
			fmt.Fprintf(&b, "%s\n", values[i])
			continue
		}
		fmt.Fprintf(&b, "%-*.*s %s\n", width, width, k+":", values[i])
	}
	return b.String(), nil
}

type column struct {
	header string
	format string
}

// renderTable lays out {"columns": [[header, format], ...], "rows": [[...], ...]}
// as a header line, an underline, and one line per row.
func renderTable(v any) (string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", oops.Errorf("table must be an object")
	}
	columns, err := tableColumns(m)
	if err != nil {
		return "", err
	}
	rows, err := tableRows(m, len(columns))
	if err != nil {
		return "", err
	}

	header := make([]string, len(columns))
	underline := make([]string, len(columns))
	for i, c := range columns {
		header[i] = fmt.Sprintf(c.format, c.header)
		underline[i] = fmt.Sprintf(c.format, strings.Repeat("-", utf8.RuneCountInString(c.header)))
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(strings.Join(header, " "), " "))
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(strings.Join(underline, " "), " "))
	b.WriteString("\n")
	if len(rows) == 0 {
		b.WriteString(noData)
		return b.String(), nil
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(columns))
		for j, c := range columns {
			cells[j] = fmt.Sprintf(c.format, row[j])
		}
		lines[i] = strings.TrimRight(strings.Join(cells, " "), " ")
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String(), nil
}

func tableColumns(m map[string]any) ([]column, error) {
	raw, ok := m["columns"].([]any)
	if !ok {
		return nil, oops.Errorf("table must contain a columns list")
	}
	columns := make([]column, 0, len(raw))
	for i, c := range raw {
		def, err := toStrings(c)
		if err != nil || len(def) != 2 {
			return nil, oops.Errorf("column %d must be a [header, format] pair", i)
		}
		if !columnFormat.MatchString(def[1]) {
			return nil, oops.Errorf("column %d format %q is not a string format", i, def[1])
		}
		columns = append(columns, column{header: def[0], format: def[1]})
	}
	return columns, nil
}

func tableRows(m map[string]any, width int) ([][]string, error) {
	raw, ok := m["rows"]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, oops.Errorf("table rows must be a list")
	}
	rows := make([][]string, 0, len(list))
	for i, r := range list {
		row, err := toStrings(r)
		if err != nil {
			return nil, oops.Errorf("row %d must be a list of strings", i)
		}
		if len(row) != width {
			return nil, oops.Errorf("the table has %d columns, but row %d has %d values", width, i, len(row))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func stringList(m map[string]any, key string) ([]string, error) {
	v, ok := m[key]
	if !ok {
		return nil, oops.Errorf("record must contain a %s list", key)
	}
	list, err := toStrings(v)
	if err != nil {
		return nil, oops.Errorf("record %s must be a list of strings", key)
	}
	return list, nil
}

func toStrings(v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, len(list))
		for i, elem := range list {
			s, ok := elem.(string)
			if !ok {
				return nil, oops.Errorf("element %d is not a string", i)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, oops.Errorf("not a list")
	}
}
