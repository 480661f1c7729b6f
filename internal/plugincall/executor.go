// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugincall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/plugincall/internal/identity"
	"github.com/holomush/plugincall/internal/jsonrpc"
	"github.com/holomush/plugincall/internal/logging"
	"github.com/holomush/plugincall/internal/tracker"
)

var tracer = otel.Tracer("plugincall/plugincall")

// DefaultMaxResponseSize bounds the response read from a plugin.
const DefaultMaxResponseSize = 1 << 20

// Executor runs plugin calls. Each Execute is a blocking unit of work and
// any number may run concurrently.
type Executor struct {
	roles       identity.RoleProvider
	factory     ProcessFactory
	timeout     time.Duration
	env         []string
	maxResponse int64
}

// ExecutorOption configures an Executor during construction.
type ExecutorOption func(*Executor)

// WithProcessFactory replaces the factory that starts plugin programs.
func WithProcessFactory(f ProcessFactory) ExecutorOption {
	return func(e *Executor) {
		e.factory = f
	}
}

// WithTimeout bounds each plugin round trip. When the deadline passes the
// plugin is killed and the call fails with CodeTimeout. Zero disables the
// deadline.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithGatewaySocket passes the gateway socket path to plugins in EnvSocket.
func WithGatewaySocket(path string) ExecutorOption {
	return func(e *Executor) {
		e.env = append(e.env, EnvSocket+"="+path)
	}
}

// WithMaxResponseSize bounds the plugin response in bytes.
func WithMaxResponseSize(n int64) ExecutorOption {
	return func(e *Executor) {
		e.maxResponse = n
	}
}

// NewExecutor creates an executor that checks caller roles with roles.
func NewExecutor(roles identity.RoleProvider, opts ...ExecutorOption) *Executor {
	e := &Executor{
		roles:       roles,
		factory:     ExecFactory{},
		maxResponse: DefaultMaxResponseSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs def once for caller on behalf of actor, passing args to the
// plugin. ok is false when the plugin returned no result (null or an empty
// string). The correlation id is tracked for the whole round trip and is
// always untracked before Execute returns.
func (e *Executor) Execute(ctx context.Context, def *Definition, actor identity.Actor, caller identity.Principal, args []string) (result string, ok bool, err error) {
	ctx, span := tracer.Start(ctx, "plugincall.execute",
		trace.WithAttributes(
			attribute.String("plugincall.name", def.Name()),
			attribute.String("plugincall.method", def.Method()),
			attribute.String("plugincall.extension", def.Extension().ID),
			attribute.String("plugincall.caller", caller.String()),
		),
	)
	start := time.Now()
	defer func() {
		outcome := OutcomeSuccess
		if err != nil {
			outcome = outcomeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		RecordExecution(def.Name(), outcome)
		RecordDuration(def.Name(), time.Since(start))
		span.End()
	}()

	if err = e.authorize(ctx, def, caller); err != nil {
		return "", false, err
	}

	if args == nil {
		args = []string{}
	}
	callID := uuid.NewString()
	ctx = logging.WithCallID(ctx, callID)
	span.SetAttributes(attribute.String("plugincall.id", callID))
	req, err := jsonrpc.NewRequest(def.Method(), jsonrpc.Params{
		jsonrpc.ParamPluginCallID:        callID,
		jsonrpc.ParamExtensionID:         def.Extension().ID,
		jsonrpc.ParamPluginCallArguments: args,
	}, jsonrpc.StringID(callID))
	if err != nil {
		return "", false, withCause(oops.Code(CodeUnreachable).With("call", def.Name()), err, "build plugin request")
	}

	def.Tracker().Track(callID, tracker.Entry{Actor: actor, Caller: caller, Extension: def.Extension()})
	resp, err := func() (*jsonrpc.Response, error) {
		defer def.Tracker().Untrack(callID)
		return e.roundTrip(ctx, def, caller, req)
	}()
	if err != nil {
		return "", false, err
	}

	return e.interpret(ctx, def, caller, resp)
}

func (e *Executor) authorize(ctx context.Context, def *Definition, caller identity.Principal) error {
	if caller.IsPrivileged() {
		return nil
	}
	roles, err := e.roles.RolesOf(ctx, caller)
	if err != nil {
		return withCause(oops.Code(CodePermissionDenied).
			With("call", def.Name()).
			With("caller", caller.String()).
			With("message", "Permission denied"),
			err, "look up caller roles")
	}
	if !def.Permits(caller, roles) {
		return ErrPermissionDenied(def.Name(), caller.String())
	}
	return nil
}

func (e *Executor) roundTrip(ctx context.Context, def *Definition, caller identity.Principal, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		if encoded, err := json.Marshal(req); err == nil {
			slog.DebugContext(ctx, "plugin call request", "call", def.Name(), "request", string(encoded))
		}
	}

	proc, err := e.factory.Start(ctx, def.Path(), e.env)
	if err != nil {
		return nil, e.failure(ctx, def, caller, err)
	}

	resp, ioErr := e.exchange(proc, req)
	if ioErr != nil {
		_ = proc.Kill() //nolint:errcheck // best effort; Wait below reaps the child either way
	}
	exitCode, waitErr := proc.Wait()

	if ioErr != nil {
		return nil, e.failure(ctx, def, caller, ioErr)
	}
	if waitErr != nil {
		slog.WarnContext(ctx, "plugin wait failed",
			"call", def.Name(),
			"extension", def.Extension().ID,
			"caller", caller.String(),
			"error", waitErr)
	}
	if exitCode != 0 {
		slog.WarnContext(ctx, "plugin returned non-zero exit code",
			"call", def.Name(),
			"extension", def.Extension().ID,
			"caller", caller.String(),
			"exit_code", exitCode,
			"stderr", proc.Stderr())
	}
	return resp, nil
}

// exchange writes req, closes the plugin's input, and decodes one response.
func (e *Executor) exchange(proc Process, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	stdin := proc.Stdin()
	if err := json.NewEncoder(stdin).Encode(req); err != nil {
		_ = stdin.Close() //nolint:errcheck // the write error is the one worth reporting
		return nil, oops.Wrapf(err, "write plugin request")
	}
	if err := stdin.Close(); err != nil {
		return nil, oops.Wrapf(err, "close plugin input")
	}

	stdout := proc.Stdout()
	var resp jsonrpc.Response
	if err := json.NewDecoder(io.LimitReader(stdout, e.maxResponse)).Decode(&resp); err != nil {
		return nil, oops.With("max_bytes", e.maxResponse).Wrapf(err, "read plugin response")
	}
	// Drain anything after the response so the plugin never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, stdout) //nolint:errcheck // trailing output is ignored
	return &resp, nil
}

// failure classifies an error that happened while running the plugin.
func (e *Executor) failure(ctx context.Context, def *Definition, caller identity.Principal, cause error) error {
	ext := def.Extension().ID
	var err error
	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		msg := fmt.Sprintf("Plugin call %s in extension %s timed out after %s", def.Name(), ext, e.timeout)
		err = withCause(oops.Code(CodeTimeout).With("call", def.Name()).With("extension", ext).
			With("timeout", e.timeout.String()).With("message", msg), cause, msg)
	case errors.Is(ctxErr, context.Canceled):
		msg := fmt.Sprintf("Interrupted waiting for plugin call %s in extension %s", def.Name(), ext)
		err = withCause(oops.Code(CodeInterrupted).With("call", def.Name()).With("extension", ext).
			With("message", msg), cause, msg)
	default:
		msg := fmt.Sprintf("Failed to execute plugin call %s in extension %s", def.Name(), ext)
		err = withCause(oops.Code(CodeUnreachable).With("call", def.Name()).With("extension", ext).
			With("path", def.Path()).With("message", msg), cause, msg)
	}
	slog.ErrorContext(ctx, "plugin call failed",
		"call", def.Name(),
		"extension", ext,
		"caller", caller.String(),
		"code", FailureCode(err),
		"error", err)
	return err
}

func (e *Executor) interpret(ctx context.Context, def *Definition, caller identity.Principal, resp *jsonrpc.Response) (string, bool, error) {
	ext := def.Extension().ID
	if resp.IsError() {
		slog.ErrorContext(ctx, "plugin call returned an error",
			"call", def.Name(),
			"extension", ext,
			"caller", caller.String(),
			"remote_code", resp.Error.Code,
			"remote_message", resp.Error.Message)
		msg := "Plugin error: " + resp.Error.Message
		return "", false, oops.Code(CodePluginError).
			With("call", def.Name()).
			With("extension", ext).
			With("remote_code", resp.Error.Code).
			With("message", msg).
			Errorf("%s", msg)
	}
	if resp.HasNullResult() {
		return "", false, nil
	}

	var text string
	if err := json.Unmarshal(resp.Result, &text); err != nil {
		kind := jsonKind(resp.Result)
		slog.ErrorContext(ctx, "plugin call returned a non-string result",
			"call", def.Name(),
			"extension", ext,
			"caller", caller.String(),
			"result_type", kind)
		msg := fmt.Sprintf("Plugin call %s in extension %s returned result of type %s", def.Name(), ext, kind)
		return "", false, oops.Code(CodeInvalidResult).
			With("call", def.Name()).
			With("extension", ext).
			With("result_type", kind).
			With("message", msg).
			Errorf("%s", msg)
	}
	if text == "" {
		return "", false, nil
	}
	return text, true, nil
}

func jsonKind(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "invalid"
	}
	switch v.(type) {
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
