// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/plugincall/internal/jsonrpc"
	"github.com/holomush/plugincall/internal/logging"
	"github.com/holomush/plugincall/internal/tracker"
)

var tracer = otel.Tracer("plugincall/api")

// Fixed response messages.
const (
	MsgParseError      = "Parse error"
	MsgMissingID       = "Missing JSON RPC ID"
	MsgMissingCallID   = "Missing plugin call ID"
	MsgUnknownCallID   = "Unknown plugin call ID %s"
	MsgUnknownMethod   = "Unknown method %s"
	MsgRequestTooLarge = "Request exceeds maximum size of %d bytes"
)

// DefaultReadTimeout bounds how long a connection may take to send its request.
const DefaultReadTimeout = 30 * time.Second

var (
	errNoInput  = errors.New("connection closed before sending a request")
	errTooLarge = errors.New("request too large")
)

// Handler answers exactly one request per connection.
type Handler struct {
	registry    *Registry
	tracker     *tracker.Tracker
	services    *Services
	readTimeout time.Duration
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithReadTimeout sets the per-connection read deadline. Zero disables it.
func WithReadTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.readTimeout = d
	}
}

// NewHandler creates a handler that resolves plugin call ids in tr and
// dispatches to registry.
func NewHandler(registry *Registry, tr *tracker.Tracker, services *Services, opts ...HandlerOption) *Handler {
	h := &Handler{
		registry:    registry,
		tracker:     tr,
		services:    services,
		readTimeout: DefaultReadTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve reads one request from conn, writes one response, and closes conn.
// A connection that closes without sending anything gets no response.
func (h *Handler) Serve(ctx context.Context, conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Debug("error closing gateway connection", "error", err)
		}
	}()

	if h.readTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
			slog.Debug("failed to set gateway read deadline", "error", err)
		}
	}

	data, err := readRequest(conn)
	switch {
	case errors.Is(err, errNoInput):
		return
	case isTimeout(err):
		slog.WarnContext(ctx, "gateway connection timed out before sending a request",
			"timeout", h.readTimeout)
		return
	case errors.Is(err, net.ErrClosed):
		return
	}

	resp := h.respondTo(ctx, data, err)

	encoded, err := json.Marshal(resp)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode gateway response", "error", err)
		return
	}
	if _, err := conn.Write(append(encoded, '\n')); err != nil {
		slog.WarnContext(ctx, "failed to write gateway response", "error", err)
	}
}

// Handle answers one encoded request. It never returns nil.
func (h *Handler) Handle(ctx context.Context, data []byte) *jsonrpc.Response {
	var err error
	if len(data) > jsonrpc.MaxMessageSize {
		err = errTooLarge
	}
	return h.respondTo(ctx, data, err)
}

func (h *Handler) respondTo(ctx context.Context, data []byte, readErr error) *jsonrpc.Response {
	ctx, span := tracer.Start(ctx, "gateway.request", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	start := time.Now()

	resp, method := h.process(ctx, data, readErr)
	if resp.IsError() {
		span.SetAttributes(attribute.Int("rpc.jsonrpc.error_code", resp.Error.Code))
		span.SetStatus(codes.Error, resp.Error.Message)
	}
	recordRequest(method, resp, time.Since(start))
	return resp
}

// process runs the request pipeline. Each failed step answers immediately.
func (h *Handler) process(ctx context.Context, data []byte, readErr error) (*jsonrpc.Response, string) {
	switch {
	case errors.Is(readErr, errTooLarge):
		return jsonrpc.Errorf(jsonrpc.NullID(), jsonrpc.CodeParseError, MsgRequestTooLarge, jsonrpc.MaxMessageSize), methodUnknown
	case readErr != nil:
		return jsonrpc.Errorf(jsonrpc.NullID(), jsonrpc.CodeParseError, "%s: %v", MsgParseError, readErr), methodUnknown
	}

	req, err := jsonrpc.DecodeRequest(data)
	if err != nil {
		return jsonrpc.Errorf(jsonrpc.NullID(), jsonrpc.CodeParseError, "%s: %v", MsgParseError, err), methodUnknown
	}
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("rpc.method", req.Method))

	if req.ID.IsNull() {
		return jsonrpc.NewErrorResponse(jsonrpc.NullID(), jsonrpc.CodeInvalidRequest, MsgMissingID), methodUnknown
	}

	callID, ok := callIDParam(req.Params)
	if !ok {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInvalidParams, MsgMissingCallID), methodUnknown
	}
	entry, ok := h.tracker.Lookup(callID)
	if !ok {
		slog.WarnContext(ctx, "gateway request for unknown plugin call",
			"plugin_call_id", callID,
			"method", req.Method)
		return jsonrpc.Errorf(req.ID, jsonrpc.CodeInvalidParams, MsgUnknownCallID, callID), methodUnknown
	}
	ctx = logging.WithCallID(ctx, callID)
	span.SetAttributes(
		attribute.String("plugincall.id", callID),
		attribute.String("plugincall.caller", entry.Caller.String()),
		attribute.String("plugincall.extension", entry.Extension.ID),
	)

	mc := &Context{
		CallID:    callID,
		Actor:     entry.Actor,
		Caller:    entry.Caller,
		Extension: entry.Extension,
		Services:  h.services,
	}

	m, ok := h.registry.Lookup(req.Method)
	if !ok {
		return jsonrpc.Errorf(req.ID, jsonrpc.CodeMethodNotFound, MsgUnknownMethod, req.Method), methodUnknown
	}
	return invoke(ctx, m, req, mc), req.Method
}

// callIDParam reads the plugin call ID. Non-string scalars are rendered as
// text so they fail the tracker lookup instead of reading as missing.
func callIDParam(params jsonrpc.Params) (string, bool) {
	switch v := params[jsonrpc.ParamPluginCallID].(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	default:
		return fmt.Sprint(v), true
	}
}

func invoke(ctx context.Context, m Method, req *jsonrpc.Request, mc *Context) (resp *jsonrpc.Response) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "gateway method panicked",
				"method", req.Method,
				"panic", fmt.Sprint(r))
			resp = jsonrpc.Errorf(req.ID, jsonrpc.CodeInternalError, "Method %s failed", req.Method)
		}
	}()

	resp = m.Invoke(ctx, req, mc)
	if resp == nil {
		resp = jsonrpc.Errorf(req.ID, jsonrpc.CodeInternalError, "Method %s returned no response", req.Method)
	}
	return resp
}

// readRequest reads one JSON value of at most MaxMessageSize bytes without
// waiting for the peer to close its side.
func readRequest(r io.Reader) (json.RawMessage, error) {
	const limit = jsonrpc.MaxMessageSize + 1
	lr := &io.LimitedReader{R: r, N: limit}
	dec := json.NewDecoder(lr)

	var raw json.RawMessage
	err := dec.Decode(&raw)
	switch {
	case err == nil && dec.InputOffset() > jsonrpc.MaxMessageSize:
		return nil, errTooLarge
	case err == nil:
		return raw, nil
	case errors.Is(err, io.EOF) && lr.N == limit:
		return nil, errNoInput
	case isTimeout(err), errors.Is(err, net.ErrClosed):
		return nil, err
	case lr.N == 0:
		return nil, errTooLarge
	default:
		return nil, err
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
