// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package methods

import (
	"context"
	"log/slog"

	"github.com/holomush/plugincall/internal/api"
	"github.com/holomush/plugincall/internal/identity"
	"github.com/holomush/plugincall/internal/jsonrpc"
)

func sendMessage(ctx context.Context, req *jsonrpc.Request, mc *api.Context) *jsonrpc.Response {
	playerName, err := requiredString(req.Params, "playerName")
	if err != nil {
		return invalidParams(req, err)
	}
	text, resp := composeMessage(req)
	if resp != nil {
		return resp
	}

	target, ok := mc.Services.Players.PlayerByName(ctx, playerName)
	if !ok {
		return jsonrpc.Errorf(req.ID, jsonrpc.CodeNotFound, "Player %s not found", playerName)
	}
	return deliver(ctx, req, mc, target, text)
}

func sendMessageToCaller(ctx context.Context, req *jsonrpc.Request, mc *api.Context) *jsonrpc.Response {
	text, resp := composeMessage(req)
	if resp != nil {
		return resp
	}
	return deliver(ctx, req, mc, mc.Caller, text)
}

// composeMessage renders the outgoing text and prefixes the header. A table
// wins over a record, and a record over plain message text. A non-nil
// response reports invalid params.
func composeMessage(req *jsonrpc.Request) (string, *jsonrpc.Response) {
	message, hasMessage, err := optionalString(req.Params, "message")
	if err != nil {
		return "", invalidParams(req, err)
	}
	header, hasHeader, err := optionalString(req.Params, "header")
	if err != nil {
		return "", invalidParams(req, err)
	}
	hasRecord := present(req.Params, "record")
	hasTable := present(req.Params, "table")
	if !hasMessage && !hasRecord && !hasTable {
		return "", jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInvalidParams, "Either message, record, or table is required")
	}

	switch {
	case hasTable:
		message, err = renderTable(req.Params["table"])
		if err != nil {
			return "", jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInvalidParams, "Invalid table: "+err.Error())
		}
	case hasRecord:
		message, err = renderRecord(req.Params["record"])
		if err != nil {
			return "", jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInvalidParams, "Invalid record: "+err.Error())
		}
	}
	if hasHeader {
		message = header + "\n" + message
	}
	return message, nil
}

func deliver(ctx context.Context, req *jsonrpc.Request, mc *api.Context, to identity.Principal, text string) *jsonrpc.Response {
	as, err := runAs(req.Params)
	if err != nil {
		return invalidParams(req, err)
	}
	if err := mc.Services.Messages.Send(ctx, mc.Principal(as), to, text); err != nil {
		slog.WarnContext(ctx, "failed to deliver plugin message",
			"to", to.String(),
			"error", err)
		return jsonrpc.Errorf(req.ID, jsonrpc.CodeInternalError, "Failed to send message to %s", to.Name)
	}
	return jsonrpc.NewStringResult(req.ID, "")
}
