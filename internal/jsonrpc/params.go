// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package jsonrpc

import (
	"bytes"
	"encoding/json"

	"github.com/samber/oops"
)

// Params holds request parameters. Decoded values are one of string, []string,
// bool, or a generic JSON value (json.Number, map[string]any, []any) for
// structured parameters.
type Params map[string]any

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the string value at key. ok is false when the key is absent
// or holds a different type.
func (p Params) String(key string) (value string, ok bool) {
	value, ok = p[key].(string)
	return value, ok
}

// Strings returns the string list at key.
func (p Params) Strings(key string) (value []string, ok bool) {
	value, ok = p[key].([]string)
	return value, ok
}

// Bool returns the boolean at key.
func (p Params) Bool(key string) (value, ok bool) {
	value, ok = p[key].(bool)
	return value, ok
}

// decodeParams decodes a params object and normalizes homogeneous string
// arrays to []string.
func decodeParams(data json.RawMessage) (Params, error) {
	params := Params{}
	if len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return params, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, oops.Code("INVALID_PARAMS").Wrapf(err, "params must be an object")
	}
	for k, v := range raw {
		params[k] = normalize(v)
	}
	return params, nil
}

func normalize(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]string, 0, len(list))
	for _, elem := range list {
		s, isString := elem.(string)
		if !isString {
			return v
		}
		out = append(out, s)
	}
	return out
}
