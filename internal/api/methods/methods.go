// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package methods provides the built-in gateway methods. Each one adapts a
// plugin request to a host command or service.
package methods

import (
	"context"
	"log/slog"
	"strings"

	"github.com/holomush/plugincall/internal/api"
	"github.com/holomush/plugincall/internal/attr"
	"github.com/holomush/plugincall/internal/command"
	"github.com/holomush/plugincall/internal/jsonrpc"
)

// Method names.
const (
	Exec                = "exec"
	GetAttr             = "getAttr"
	SetAttr             = "setAttr"
	RemoveAttr          = "removeAttr"
	GetAttrNames        = "getAttrNames"
	GetRoles            = "getRoles"
	GetCallerName       = "getCallerName"
	GetCallerTimezone   = "getCallerTimezone"
	SendMessage         = "sendMessage"
	SendMessageToCaller = "sendMessageToCaller"
)

// Host commands the methods run.
const (
	cmdGetAttr      = "GET_ATTR"
	cmdSetAttr      = "SET_ATTR"
	cmdRemoveAttr   = "REMOVE_ATTR"
	cmdGetAttrNames = "GET_ATTR_NAMES"
	cmdRole         = "ROLE"
)

// Builtins returns every built-in method keyed by name.
func Builtins() map[string]api.Method {
	return map[string]api.Method{
		Exec:                api.MethodFunc(execCommand),
		GetAttr:             api.MethodFunc(getAttr),
		SetAttr:             api.MethodFunc(setAttr),
		RemoveAttr:          api.MethodFunc(removeAttr),
		GetAttrNames:        api.MethodFunc(getAttrNames),
		GetRoles:            api.MethodFunc(getRoles),
		GetCallerName:       api.MethodFunc(getCallerName),
		GetCallerTimezone:   api.MethodFunc(getCallerTimezone),
		SendMessage:         api.MethodFunc(sendMessage),
		SendMessageToCaller: api.MethodFunc(sendMessageToCaller),
	}
}

// commandFailure answers req with the failure of a host command. Typed
// not-found failures map to NOT_FOUND, everything else to INTERNAL_ERROR.
func commandFailure(ctx context.Context, req *jsonrpc.Request, err error) *jsonrpc.Response {
	code := jsonrpc.CodeInternalError
	if command.IsNotFound(err) {
		code = jsonrpc.CodeNotFound
	}
	slog.DebugContext(ctx, "gateway method command failed",
		"method", req.Method,
		"code", jsonrpc.CodeName(code),
		"error", err)
	return jsonrpc.NewErrorResponse(req.ID, code, command.FailureMessage(err))
}

func result(ctx context.Context, req *jsonrpc.Request, v any) *jsonrpc.Response {
	resp, err := jsonrpc.NewResult(req.ID, v)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode gateway result", "method", req.Method, "error", err)
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInternalError, "Failed to encode result")
	}
	return resp
}

func execCommand(ctx context.Context, req *jsonrpc.Request, mc *api.Context) *jsonrpc.Response {
	line, err := requiredStrings(req.Params, "commandLine")
	if err != nil {
		return invalidParams(req, err)
	}
	as, err := runAs(req.Params)
	if err != nil {
		return invalidParams(req, err)
	}

	out, err := mc.Exec(ctx, as, line...)
	if err != nil {
		return commandFailure(ctx, req, err)
	}
	return jsonrpc.NewStringResult(req.ID, out)
}

func getAttr(ctx context.Context, req *jsonrpc.Request, mc *api.Context) *jsonrpc.Response {
	thingID, err := requiredString(req.Params, "thingId")
	if err != nil {
		return invalidParams(req, err)
	}
	name, err := requiredString(req.Params, "name")
	if err != nil {
		return invalidParams(req, err)
	}
	as, err := runAs(req.Params)
	if err != nil {
		return invalidParams(req, err)
	}

	out, err := mc.Exec(ctx, as, cmdGetAttr, thingID, name)
	if err != nil {
		return commandFailure(ctx, req, err)
	}
	a, err := attr.ParseSpec(out)
	if err != nil {
		slog.ErrorContext(ctx, "host returned an unparseable attribute", "thing", thingID, "name", name, "error", err)
		return jsonrpc.Errorf(req.ID, jsonrpc.CodeInternalError, "Invalid attribute returned for %s", name)
	}
	return result(ctx, req, a)
}

func setAttr(ctx context.Context, req *jsonrpc.Request, mc *api.Context) *jsonrpc.Response {
	var thingID, name, value, typeName string
	for _, p := range []struct {
		name string
		dst  *string
	}{
		{"thingId", &thingID},
		{"name", &name},
		{"value", &value},
		{"type", &typeName},
	} {
		v, err := requiredString(req.Params, p.name)
		if err != nil {
			return invalidParams(req, err)
		}
		*p.dst = v
	}
	as, err := runAs(req.Params)
	if err != nil {
		return invalidParams(req, err)
	}

	typ, err := attr.ParseType(typeName)
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInvalidParams, "Invalid type "+typeName)
	}
	a, err := attr.New(name, value, typ)
	if err != nil {
		return jsonrpc.Errorf(req.ID, jsonrpc.CodeInvalidParams, "Invalid value for type %s", typ)
	}

	if _, err := mc.Exec(ctx, as, cmdSetAttr, thingID, a.Spec()); err != nil {
		return commandFailure(ctx, req, err)
	}
	return jsonrpc.NewStringResult(req.ID, "")
}

func removeAttr(ctx context.Context, req *jsonrpc.Request, mc *api.Context) *jsonrpc.Response {
	thingID, err := requiredString(req.Params, "thingId")
	if err != nil {
		return invalidParams(req, err)
	}
	name, err := requiredString(req.Params, "name")
	if err != nil {
		return invalidParams(req, err)
	}
	as, err := runAs(req.Params)
	if err != nil {
		return invalidParams(req, err)
	}

	if _, err := mc.Exec(ctx, as, cmdRemoveAttr, thingID, name); err != nil {
		return commandFailure(ctx, req, err)
	}
	return jsonrpc.NewStringResult(req.ID, "")
}

func getAttrNames(ctx context.Context, req *jsonrpc.Request, mc *api.Context) *jsonrpc.Response {
	thingID, err := requiredString(req.Params, "thingId")
	if err != nil {
		return invalidParams(req, err)
	}
	as, err := runAs(req.Params)
	if err != nil {
		return invalidParams(req, err)
	}

	out, err := mc.Exec(ctx, as, cmdGetAttrNames, thingID)
	if err != nil {
		return commandFailure(ctx, req, err)
	}
	return result(ctx, req, splitList(out))
}

func getRoles(ctx context.Context, req *jsonrpc.Request, mc *api.Context) *jsonrpc.Response {
	thingID, hasThing, err := optionalString(req.Params, "thingId")
	if err != nil {
		return invalidParams(req, err)
	}
	playerName, hasPlayer, err := optionalString(req.Params, "playerName")
	if err != nil {
		return invalidParams(req, err)
	}
	as, err := runAs(req.Params)
	if err != nil {
		return invalidParams(req, err)
	}
	if !hasThing && !hasPlayer {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInvalidParams, "Either thingId or playerName is required")
	}

	if hasPlayer {
		player, ok := mc.Services.Players.PlayerByName(ctx, playerName)
		if !ok {
			return jsonrpc.Errorf(req.ID, jsonrpc.CodeNotFound, "Player %s not found", playerName)
		}
		thingID = player.ID
	}

	out, err := mc.Exec(ctx, as, cmdRole, "GET", thingID)
	if err != nil {
		return commandFailure(ctx, req, err)
	}
	// ROLE GET reports "Roles for <name>: A,B"; the list follows the last space.
	return result(ctx, req, splitList(out[strings.LastIndex(out, " ")+1:]))
}

func getCallerName(_ context.Context, req *jsonrpc.Request, mc *api.Context) *jsonrpc.Response {
	return jsonrpc.NewStringResult(req.ID, mc.Caller.Name)
}

// fallbackTimezone is reported for callers without a current actor. It is
// the IANA name, not the "Z" offset designator.
const fallbackTimezone = "UTC"

func getCallerTimezone(ctx context.Context, req *jsonrpc.Request, mc *api.Context) *jsonrpc.Response {
	actor, ok := mc.Services.Players.CurrentActor(ctx, mc.Caller)
	if !ok {
		return jsonrpc.NewStringResult(req.ID, fallbackTimezone)
	}
	return jsonrpc.NewStringResult(req.ID, actor.TimezoneName())
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
