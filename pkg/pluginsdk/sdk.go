// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package pluginsdk is the plugin side of a plugin call. A plugin program
// reads one JSON-RPC request from stdin, runs the handler registered for its
// method and writes the response to stdout. While handling, it may call back
// into the host over the gateway socket named by PLUGINCALL_API_SOCKET.
//
// Example usage:
//
//	func main() {
//		pluginsdk.Serve(pluginsdk.Handlers{
//			"roll": func(ctx context.Context, call *pluginsdk.Call) (string, error) {
//				name, err := call.Client.GetCallerName(ctx)
//				if err != nil {
//					return "", err
//				}
//				return name + " rolls a 4", nil
//			},
//		})
//	}
package pluginsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"

	"github.com/holomush/plugincall/internal/jsonrpc"
)

// EnvSocket names the environment variable carrying the gateway socket path.
const EnvSocket = "PLUGINCALL_API_SOCKET"

// maxRequestSize bounds the request read from stdin.
const maxRequestSize = 1 << 20

// Call is one inbound plugin call.
type Call struct {
	// ID is the plugin call ID the host tracks for this call.
	ID string
	// Method is the subcommand the host asked for.
	Method string
	// ExtensionID identifies the extension that defined the call.
	ExtensionID string
	// Args are the arguments the caller passed.
	Args []string
	// Client calls back into the host on behalf of this call. It is nil when
	// no gateway socket was provided.
	Client *Client
}

// HandlerFunc handles a plugin call. An empty result tells the host the
// call produced nothing.
type HandlerFunc func(ctx context.Context, call *Call) (string, error)

// Handlers maps method names to their handlers.
type Handlers map[string]HandlerFunc

// Error is returned by a handler to control the error message the host
// reports to the caller.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// Errorf creates an Error with a formatted message.
func Errorf(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Run handles the single request read from in and writes the response to
// out. socket is the gateway socket path; empty leaves Call.Client nil.
// The returned error reports I/O failures only: handler failures are sent
// to the host as error responses.
func Run(ctx context.Context, in io.Reader, out io.Writer, socket string, handlers Handlers) error {
	data, err := io.ReadAll(io.LimitReader(in, maxRequestSize))
	if err != nil {
		return oops.Code("PLUGIN_READ_FAILED").Wrapf(err, "read request")
	}
	resp := respond(ctx, data, socket, handlers)

	encoded, err := json.Marshal(resp)
	if err != nil {
		return oops.Code("PLUGIN_WRITE_FAILED").Wrapf(err, "encode response")
	}
	if _, err := out.Write(append(encoded, '\n')); err != nil {
		return oops.Code("PLUGIN_WRITE_FAILED").Wrapf(err, "write response")
	}
	return nil
}

func respond(ctx context.Context, data []byte, socket string, handlers Handlers) *jsonrpc.Response {
	req, err := jsonrpc.DecodeRequest(data)
	if err != nil {
		return jsonrpc.Errorf(jsonrpc.NullID(), jsonrpc.CodeParseError, "Parse error: %v", err)
	}

	handler, ok := handlers[req.Method]
	if !ok {
		return jsonrpc.Errorf(req.ID, jsonrpc.CodeMethodNotFound, "Unrecognized subcommand %s", req.Method)
	}

	callID, _ := req.Params.String(jsonrpc.ParamPluginCallID)
	extensionID, _ := req.Params.String(jsonrpc.ParamExtensionID)
	args, ok := req.Params.Strings(jsonrpc.ParamPluginCallArguments)
	if !ok && req.Params.Has(jsonrpc.ParamPluginCallArguments) {
		return jsonrpc.Errorf(req.ID, jsonrpc.CodeInvalidParams, "Parameter %s is not a list of strings", jsonrpc.ParamPluginCallArguments)
	}
	call := &Call{ID: callID, Method: req.Method, ExtensionID: extensionID, Args: args}
	if socket != "" && callID != "" {
		call.Client = NewClient(socket, callID)
	}

	result, err := invoke(ctx, handler, call)
	if err != nil {
		var pluginErr *Error
		if errors.As(err, &pluginErr) {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInternalError, pluginErr.Message)
		}
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInternalError, err.Error())
	}
	return jsonrpc.NewStringResult(req.ID, result)
}

func invoke(ctx context.Context, handler HandlerFunc, call *Call) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Errorf("plugin panicked: %v", r)
		}
	}()
	return handler(ctx, call)
}

// Serve runs the plugin over stdin and stdout and exits. The handler context
// is cancelled on SIGINT or SIGTERM.
func Serve(handlers Handlers) {
	if len(handlers) == 0 {
		panic("pluginsdk: no handlers")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Run(ctx, os.Stdin, os.Stdout, os.Getenv(EnvSocket), handlers)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}
