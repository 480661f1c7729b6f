// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package pluginsdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/plugincall/internal/jsonrpc"
)

// Error codes for gateway client failures.
const (
	CodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	CodeGatewayError       = "GATEWAY_ERROR"
)

// Client calls gateway methods for one plugin call. It is safe for
// concurrent use; each call uses its own connection.
type Client struct {
	socket     string
	callID     string
	dialer     net.Dialer
	base       time.Duration
	maxRetries uint64
	nextID     atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDialRetry sets the exponential backoff base and retry count used when
// the gateway socket cannot be dialed.
func WithDialRetry(base time.Duration, maxRetries uint64) ClientOption {
	return func(c *Client) {
		c.base = base
		c.maxRetries = maxRetries
	}
}

// NewClient creates a client that attaches callID to every request.
func NewClient(socket, callID string, opts ...ClientOption) *Client {
	c := &Client{
		socket:     socket,
		callID:     callID,
		base:       20 * time.Millisecond,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CallID returns the plugin call ID the client sends.
func (c *Client) CallID() string { return c.callID }

// Call invokes method with params and returns the raw result. A gateway
// error response is returned as an error from which errors.As extracts a
// *jsonrpc.Error. asExtension runs the method as the extension rather than
// the caller.
func (c *Client) Call(ctx context.Context, method string, params map[string]any, asExtension bool) (json.RawMessage, error) {
	p := jsonrpc.Params{}
	for k, v := range params {
		p[k] = v
	}
	p[jsonrpc.ParamPluginCallID] = c.callID
	if asExtension {
		p[jsonrpc.ParamAsExtension] = true
	}
	req, err := jsonrpc.NewRequest(method, p, jsonrpc.NumberID(c.nextID.Add(1)))
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(req)
	if err != nil {
		return nil, oops.Code(CodeGatewayError).With("method", method).Wrapf(err, "encode request")
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline) //nolint:errcheck // best effort
	}

	if _, err := conn.Write(append(encoded, '\n')); err != nil {
		return nil, oops.Code(CodeGatewayUnavailable).With("method", method).Wrapf(err, "write request")
	}
	data, err := io.ReadAll(io.LimitReader(conn, maxRequestSize))
	if err != nil {
		return nil, oops.Code(CodeGatewayUnavailable).With("method", method).Wrapf(err, "read response")
	}
	resp, err := jsonrpc.DecodeResponse(data)
	if err != nil {
		return nil, oops.Code(CodeGatewayError).With("method", method).Wrap(err)
	}
	if resp.IsError() {
		return nil, oops.Code(CodeGatewayError).
			With("method", method).
			With("rpc_code", resp.Error.Code).
			Wrap(resp.Error)
	}
	return resp.Result, nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	var conn net.Conn
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.base))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var dialErr error
		conn, dialErr = c.dialer.DialContext(ctx, "unix", c.socket)
		if dialErr != nil {
			return retry.RetryableError(dialErr)
		}
		return nil
	})
	if err != nil {
		return nil, oops.Code(CodeGatewayUnavailable).With("socket", c.socket).Wrapf(err, "dial gateway")
	}
	return conn, nil
}

func (c *Client) callString(ctx context.Context, method string, params map[string]any, asExtension bool) (string, error) {
	raw, err := c.Call(ctx, method, params, asExtension)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", oops.Code(CodeGatewayError).With("method", method).Wrapf(err, "decode result")
	}
	return s, nil
}

func (c *Client) callStrings(ctx context.Context, method string, params map[string]any) ([]string, error) {
	raw, err := c.Call(ctx, method, params, false)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, oops.Code(CodeGatewayError).With("method", method).Wrapf(err, "decode result")
	}
	return out, nil
}

// Attr is an attribute returned by GetAttr.
type Attr struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
	Type  string `json:"type"`
}

// Exec runs a command line through the host and returns its output.
func (c *Client) Exec(ctx context.Context, asExtension bool, commandLine ...string) (string, error) {
	return c.callString(ctx, "exec", map[string]any{"commandLine": commandLine}, asExtension)
}

// GetAttr reads an attribute of a thing.
func (c *Client) GetAttr(ctx context.Context, thingID, name string) (Attr, error) {
	raw, err := c.Call(ctx, "getAttr", map[string]any{"thingId": thingID, "name": name}, false)
	if err != nil {
		return Attr{}, err
	}
	var a Attr
	if err := json.Unmarshal(raw, &a); err != nil {
		return Attr{}, oops.Code(CodeGatewayError).With("method", "getAttr").Wrapf(err, "decode result")
	}
	return a, nil
}

// SetAttr creates or replaces an attribute of a thing.
func (c *Client) SetAttr(ctx context.Context, asExtension bool, thingID, name, value, typ string) error {
	_, err := c.Call(ctx, "setAttr", map[string]any{
		"thingId": thingID,
		"name":    name,
		"value":   value,
		"type":    typ,
	}, asExtension)
	return err
}

// RemoveAttr deletes an attribute of a thing.
func (c *Client) RemoveAttr(ctx context.Context, asExtension bool, thingID, name string) error {
	_, err := c.Call(ctx, "removeAttr", map[string]any{"thingId": thingID, "name": name}, asExtension)
	return err
}

// GetAttrNames lists the attribute names of a thing.
func (c *Client) GetAttrNames(ctx context.Context, thingID string) ([]string, error) {
	return c.callStrings(ctx, "getAttrNames", map[string]any{"thingId": thingID})
}

// GetRoles lists the roles of the named player.
func (c *Client) GetRoles(ctx context.Context, playerName string) ([]string, error) {
	return c.callStrings(ctx, "getRoles", map[string]any{"playerName": playerName})
}

// GetCallerName returns the name of the player who made the call.
func (c *Client) GetCallerName(ctx context.Context) (string, error) {
	return c.callString(ctx, "getCallerName", nil, false)
}

// GetCallerTimezone returns the caller's IANA timezone name.
func (c *Client) GetCallerTimezone(ctx context.Context) (string, error) {
	return c.callString(ctx, "getCallerTimezone", nil, false)
}

// Message is the body of SendMessage and SendMessageToCaller. Set one of
// Text, Record or Table; Header is an optional first line.
type Message struct {
	Header string
	Text   string
	Record *Record
	Table  *Table
}

// Record renders as aligned "key: value" lines.
type Record struct {
	Keys   []string `json:"keys"`
	Values []string `json:"values"`
}

// Column is a table column: a header and a %s-style format such as "%-10s".
type Column struct {
	Header string
	Format string
}

// Table renders as a formatted table.
type Table struct {
	Columns []Column
	Rows    [][]string
}

func (t *Table) encode() map[string]any {
	columns := make([][]string, len(t.Columns))
	for i, col := range t.Columns {
		columns[i] = []string{col.Header, col.Format}
	}
	rows := t.Rows
	if rows == nil {
		rows = [][]string{}
	}
	return map[string]any{"columns": columns, "rows": rows}
}

func (m Message) params() (map[string]any, error) {
	p := map[string]any{}
	if m.Header != "" {
		p["header"] = m.Header
	}
	switch {
	case m.Table != nil:
		p["table"] = m.Table.encode()
	case m.Record != nil:
		p["record"] = m.Record
	case m.Text != "" || m.Header != "":
		p["message"] = m.Text
	default:
		return nil, errors.New("message has no text, record or table")
	}
	return p, nil
}

// SendMessage sends a message to the named player.
func (c *Client) SendMessage(ctx context.Context, asExtension bool, playerName string, m Message) error {
	p, err := m.params()
	if err != nil {
		return oops.Code(CodeGatewayError).Wrap(err)
	}
	p["playerName"] = playerName
	_, err = c.Call(ctx, "sendMessage", p, asExtension)
	return err
}

// SendMessageToCaller sends a message to the player who made the call.
func (c *Client) SendMessageToCaller(ctx context.Context, m Message) error {
	p, err := m.params()
	if err != nil {
		return oops.Code(CodeGatewayError).Wrap(err)
	}
	_, err = c.Call(ctx, "sendMessageToCaller", p, false)
	return err
}

// IsNotFound reports whether err is a gateway NOT_FOUND error response.
func IsNotFound(err error) bool {
	var rpcErr *jsonrpc.Error
	return errors.As(err, &rpcErr) && rpcErr.Code == jsonrpc.CodeNotFound
}

// ErrorMessage returns the gateway's message for an error response, or the
// error text otherwise.
func ErrorMessage(err error) string {
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Message
	}
	return strings.TrimSpace(err.Error())
}
