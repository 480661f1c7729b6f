// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"github.com/samber/oops"
)

// Error codes for command failures.
const (
	CodeEmptyCommand     = "EMPTY_COMMAND"
	CodeUnknownCommand   = "UNKNOWN_COMMAND"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeInvalidArgs      = "INVALID_ARGS"
	CodeNotFound         = "NOT_FOUND"
	CodeFailed           = "COMMAND_FAILED"
)

// ErrEmptyCommand creates an error for a command line with no command name.
func ErrEmptyCommand() error {
	return oops.Code(CodeEmptyCommand).Errorf("no command provided")
}

// ErrUnknownCommand creates an error for an unknown command.
func ErrUnknownCommand(cmd string) error {
	return oops.Code(CodeUnknownCommand).
		With("command", cmd).
		Errorf("Unknown command: %s", cmd)
}

// ErrPermissionDenied creates an error for permission denial.
func ErrPermissionDenied(cmd, principal string) error {
	return oops.Code(CodePermissionDenied).
		With("command", cmd).
		With("principal", principal).
		Errorf("You are not permitted to run %s", cmd)
}

// ErrInvalidArgs creates an error for invalid arguments.
func ErrInvalidArgs(cmd, usage string) error {
	return oops.Code(CodeInvalidArgs).
		With("command", cmd).
		With("usage", usage).
		Errorf("Usage: %s", usage)
}

// ErrNotFound creates an error for a missing object, player or attribute.
// message is shown to the caller as is.
func ErrNotFound(message string) error {
	return oops.Code(CodeNotFound).
		With("message", message).
		Errorf("%s", message)
}

// Failed reports an arbitrary failure with a caller-facing message. The
// cause is recorded in the error text and context but not wrapped, so the
// result always carries CodeFailed.
func Failed(message string, cause error) error {
	builder := oops.Code(CodeFailed).With("message", message)
	if cause != nil {
		return builder.With("cause", cause.Error()).Errorf("%s: %v", message, cause)
	}
	return builder.Errorf("%s", message)
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// HasCode reports whether err is an oops error carrying code.
func HasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}

// FailureMessage extracts the caller-facing message from a command failure.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return err.Error()
	}
	if msg, ok := oopsErr.Context()["message"].(string); ok && msg != "" {
		return msg
	}
	switch oopsErr.Code() {
	case CodeEmptyCommand, CodeUnknownCommand, CodePermissionDenied, CodeInvalidArgs, CodeNotFound:
		return oopsErr.Error()
	default:
		return "Command failed: " + oopsErr.Error()
	}
}
