// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/samber/oops"
)

// Error codes for codec failures.
const (
	CodeDecodeFailed   = "DECODE_FAILED"
	CodeInvalidMessage = "INVALID_MESSAGE"
)

// Error is the error member of a Response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("json-rpc error %d", e.Code)
	}
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// Request is a JSON-RPC request. Params is never nil after construction or decoding.
type Request struct {
	Method string
	Params Params
	ID     ID
}

// NewRequest builds a request, rejecting an empty method name.
func NewRequest(method string, params Params, id ID) (*Request, error) {
	if method == "" {
		return nil, oops.Code(CodeInvalidMessage).Errorf("request method must not be empty")
	}
	if params == nil {
		params = Params{}
	}
	return &Request{Method: method, Params: params, ID: id}, nil
}

type wireRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      *ID             `json:"id,omitempty"`
}

// MarshalJSON implements json.Marshaler. A null ID is omitted.
func (r Request) MarshalJSON() ([]byte, error) {
	params := r.Params
	if params == nil {
		params = Params{}
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, oops.Code(CodeInvalidMessage).With("method", r.Method).Wrapf(err, "encode params")
	}
	w := wireRequest{JSONRPC: Version, Method: r.Method, Params: encoded}
	if !r.ID.IsNull() {
		id := r.ID
		w.ID = &id
	}
	return json.Marshal(w) //nolint:wrapcheck // plain struct encoding
}

// UnmarshalJSON implements json.Unmarshaler and enforces the version and
// method invariants.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return oops.Code(CodeDecodeFailed).Wrapf(err, "decode request")
	}
	if w.JSONRPC != Version {
		return oops.Code(CodeInvalidMessage).With("jsonrpc", w.JSONRPC).Errorf("unsupported protocol version %q", w.JSONRPC)
	}
	if w.Method == "" {
		return oops.Code(CodeInvalidMessage).Errorf("request method must not be empty")
	}
	params, err := decodeParams(w.Params)
	if err != nil {
		return err
	}
	r.Method = w.Method
	r.Params = params
	r.ID = ID{}
	if w.ID != nil {
		r.ID = *w.ID
	}
	return nil
}

// Response is a JSON-RPC response carrying exactly one of Result or Error.
// A nil Result with a nil Error encodes as an explicit null result.
type Response struct {
	Result json.RawMessage
	Error  *Error
	ID     ID
}

// NewResult builds a successful response with any JSON-encodable result.
func NewResult(id ID, result any) (*Response, error) {
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, oops.Code(CodeInvalidMessage).With("id", id.String()).Wrapf(err, "encode result")
	}
	return &Response{Result: encoded, ID: id}, nil
}

// NewStringResult builds a successful response with a string result.
func NewStringResult(id ID, result string) *Response {
	encoded, _ := json.Marshal(result) //nolint:errcheck // string encoding cannot fail
	return &Response{Result: encoded, ID: id}
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id ID, code int, message string) *Response {
	return &Response{Error: &Error{Code: code, Message: message}, ID: id}
}

// Errorf builds an error response with a formatted message.
func Errorf(id ID, code int, format string, args ...any) *Response {
	return NewErrorResponse(id, code, fmt.Sprintf(format, args...))
}

// IsError reports whether the response carries an error.
func (r *Response) IsError() bool { return r.Error != nil }

// HasNullResult reports whether a successful response has a null result.
func (r *Response) HasNullResult() bool {
	return r.Error == nil && (len(r.Result) == 0 || bytes.Equal(bytes.TrimSpace(r.Result), []byte("null")))
}

type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      ID              `json:"id"`
}

// MarshalJSON implements json.Marshaler.
func (r Response) MarshalJSON() ([]byte, error) {
	w := wireResponse{JSONRPC: Version, ID: r.ID}
	if r.Error != nil {
		w.Error = r.Error
	} else {
		w.Result = r.Result
		if len(w.Result) == 0 {
			w.Result = json.RawMessage("null")
		}
	}
	return json.Marshal(w) //nolint:wrapcheck // plain struct encoding
}

// UnmarshalJSON implements json.Unmarshaler. Exactly one of result and error
// must be present. A null error member counts as absent; a null result counts
// as present unless an error is also present.
func (r *Response) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return oops.Code(CodeDecodeFailed).Wrapf(err, "decode response")
	}
	var version string
	if err := json.Unmarshal(fields["jsonrpc"], &version); err != nil || version != Version {
		return oops.Code(CodeInvalidMessage).With("jsonrpc", string(fields["jsonrpc"])).Errorf("unsupported protocol version")
	}
	result, hasResult := fields["result"]
	rawErr, hasError := fields["error"]
	hasError = hasError && !isNull(rawErr)
	if hasError && hasResult && isNull(result) {
		hasResult = false
	}
	if hasResult == hasError {
		return oops.Code(CodeInvalidMessage).Errorf("response must carry exactly one of result or error")
	}
	var id ID
	if rawID, ok := fields["id"]; ok {
		if err := id.UnmarshalJSON(rawID); err != nil {
			return err
		}
	}
	r.ID = id
	r.Result = nil
	r.Error = nil
	if hasError {
		var e Error
		if err := json.Unmarshal(rawErr, &e); err != nil {
			return oops.Code(CodeDecodeFailed).Wrapf(err, "decode error member")
		}
		r.Error = &e
		return nil
	}
	r.Result = append(json.RawMessage(nil), bytes.TrimSpace(result)...)
	return nil
}

// DecodeRequest decodes a single request.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, wrapDecode(err, "request")
	}
	return &req, nil
}

// DecodeResponse decodes a single response.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, wrapDecode(err, "response")
	}
	return &resp, nil
}

func wrapDecode(err error, what string) error {
	if _, ok := oops.AsOops(err); ok {
		return err
	}
	return oops.Code(CodeDecodeFailed).Wrapf(err, "decode %s", what)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
