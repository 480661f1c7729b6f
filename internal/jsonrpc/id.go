// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package jsonrpc

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/samber/oops"
)

// ID is a request identifier: a string, a number, or null.
// The zero value is the null ID.
type ID struct {
	value any // nil, string, or json.Number
}

// NullID returns the null identifier used when a request could not be trusted.
func NullID() ID { return ID{} }

// StringID returns a string identifier.
func StringID(s string) ID { return ID{value: s} }

// NumberID returns a numeric identifier.
func NumberID(n int64) ID {
	return ID{value: json.Number(strconv.FormatInt(n, 10))}
}

// IsNull reports whether the identifier is absent or null.
func (id ID) IsNull() bool { return id.value == nil }

// String renders the identifier for logs.
func (id ID) String() string {
	switch v := id.value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return "null"
	}
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	switch v := id.value.(type) {
	case string:
		return json.Marshal(v) //nolint:wrapcheck // string encoding cannot fail
	case json.Number:
		return []byte(v), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Only strings, numbers and null are accepted.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		id.value = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return oops.Code("INVALID_ID").Wrapf(err, "decode id")
	}
	switch t := v.(type) {
	case string, json.Number:
		id.value = t
		return nil
	default:
		return oops.Code("INVALID_ID").With("id", string(trimmed)).Errorf("id must be a string, number or null")
	}
}
