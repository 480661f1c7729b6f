// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package methods

import (
	"github.com/holomush/plugincall/internal/api"
	"github.com/holomush/plugincall/internal/jsonrpc"
)

// paramError is an invalid-parameters failure with a message for the plugin.
type paramError struct {
	message string
}

func (e *paramError) Error() string { return e.message }

func missing(name string) error {
	return &paramError{message: "Parameter " + name + " missing"}
}

func wrongType(name, want string) error {
	return &paramError{message: "Parameter " + name + " is not a " + want}
}

// present reports whether name was sent with a non-null value.
func present(p jsonrpc.Params, name string) bool {
	v, ok := p[name]
	return ok && v != nil
}

func optionalString(p jsonrpc.Params, name string) (string, bool, error) {
	if !present(p, name) {
		return "", false, nil
	}
	s, ok := p.String(name)
	if !ok {
		return "", false, wrongType(name, "string")
	}
	return s, true, nil
}

func requiredString(p jsonrpc.Params, name string) (string, error) {
	s, ok, err := optionalString(p, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", missing(name)
	}
	return s, nil
}

func requiredStrings(p jsonrpc.Params, name string) ([]string, error) {
	if !present(p, name) {
		return nil, missing(name)
	}
	list, ok := p.Strings(name)
	if !ok {
		return nil, wrongType(name, "string list")
	}
	return list, nil
}

func optionalBool(p jsonrpc.Params, name string, def bool) (bool, error) {
	if !present(p, name) {
		return def, nil
	}
	b, ok := p.Bool(name)
	if !ok {
		return false, wrongType(name, "Boolean")
	}
	return b, nil
}

// runAs reads the reserved run-as flag, rejecting a non-boolean value.
func runAs(p jsonrpc.Params) (api.RunAs, error) {
	asExtension, err := optionalBool(p, jsonrpc.ParamAsExtension, false)
	if err != nil {
		return api.AsCaller, err
	}
	if asExtension {
		return api.AsExtension, nil
	}
	return api.AsCaller, nil
}

// invalidParams answers req with an invalid-parameters error carrying err's message.
func invalidParams(req *jsonrpc.Request, err error) *jsonrpc.Response {
	return jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInvalidParams, err.Error())
}
