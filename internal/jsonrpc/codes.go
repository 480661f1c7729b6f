// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package jsonrpc implements the JSON-RPC 2.0 message shapes spoken between the
// host and plugin processes, in both directions.
package jsonrpc

// Version is the only protocol version accepted on the wire.
const Version = "2.0"

// MaxMessageSize is the largest inbound request the gateway accepts, in bytes.
const MaxMessageSize = 4096

// Error codes. The values are part of the wire contract and must never change.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32004
)

// Reserved parameter keys. Method-specific parameters never use these names.
const (
	ParamPluginCallID        = "_plugin_call_id"
	ParamAsExtension         = "_as_extension"
	ParamExtensionID         = "_extension_id"
	ParamPluginCallArguments = "_plugin_call_arguments"
)

// CodeName returns a short symbolic name for a protocol error code.
func CodeName(code int) string {
	switch code {
	case CodeParseError:
		return "parse_error"
	case CodeInvalidRequest:
		return "invalid_request"
	case CodeMethodNotFound:
		return "method_not_found"
	case CodeInvalidParams:
		return "invalid_params"
	case CodeInternalError:
		return "internal_error"
	case CodeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
