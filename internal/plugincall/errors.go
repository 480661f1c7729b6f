// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugincall

import (
	"github.com/samber/oops"
)

// Error codes for plugin call failures.
const (
	CodeDefinition       = "DEFINITION_ERROR"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeUnreachable      = "PLUGIN_UNREACHABLE"
	CodePluginError      = "PLUGIN_ERROR"
	CodeInvalidResult    = "PLUGIN_RESULT_INVALID"
	CodeTimeout          = "PLUGIN_TIMEOUT"
	CodeInterrupted      = "PLUGIN_INTERRUPTED"
)

// ErrDefinition creates an error for a call definition that cannot be built.
func ErrDefinition(name, reason string) error {
	return oops.Code(CodeDefinition).
		With("call", name).
		Errorf("invalid plugin call %s: %s", name, reason)
}

func wrapDefinition(name string, cause error) error {
	return withCause(oops.Code(CodeDefinition).With("call", name), cause, "invalid plugin call "+name)
}

// withCause builds an error from b that reports cause in its message and
// context. cause is not wrapped, so its own code never shadows b's.
func withCause(b oops.OopsErrorBuilder, cause error, msg string) error {
	return b.With("cause", cause.Error()).Errorf("%s: %v", msg, cause)
}

// ErrPermissionDenied creates an error for a caller lacking every permitted role.
func ErrPermissionDenied(call, caller string) error {
	return oops.Code(CodePermissionDenied).
		With("call", call).
		With("caller", caller).
		With("message", "Permission denied").
		Errorf("permission denied for plugin call %s", call)
}

// FailureCode returns the oops code of a plugin call failure, or "" when err
// is not one.
func FailureCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := any(oopsErr.Code()).(string)
	return code
}
