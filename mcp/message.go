// Package mcp provides the wire-level types and error taxonomy for the
// Model Context Protocol: the JSON-RPC 2.0 envelope, capability structs,
// tool/resource/template/prompt/sampling data model, and the codec that
// turns one newline-delimited JSON frame into the right Go type.
package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONRPCVersion is the only JSON-RPC version this engine speaks.
const JSONRPCVersion = "2.0"

// Request is an outbound or inbound JSON-RPC request. ID is a scalar
// (string or number) unique to the sender until a Response arrives.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response carries exactly one of Result or Error for the Request with
// the matching ID.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Notification is a fire-and-forget message: no ID, no reply expected.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`

	// Cause is the underlying Go error, if any. Not serialized.
	Cause error `json:"-"`
}

// NewError builds an Error with the given code, message, and optional data.
func NewError(code int32, message string, data any) *Error {
	return &Error{Code: code, Message: message, Data: data}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("mcp: %d %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("mcp: %d %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// Kind distinguishes the three envelope shapes a decoded frame can take.
type Kind int

const (
	// KindRequest is a message carrying both id and method.
	KindRequest Kind = iota
	// KindResponse is a message carrying id but no method.
	KindResponse
	// KindNotification is a message carrying method but no id.
	KindNotification
)

// Message is a decoded envelope tagged with its Kind. Exactly one of
// Request, Response, Notification is non-nil, matching Kind.
type Message struct {
	Kind         Kind
	Request      *Request
	Response     *Response
	Notification *Notification
}

// envelope is the superset shape used purely for sniffing which of the
// three variants a raw frame represents.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// ParseError is returned by DecodeMessage for a malformed frame. ID is
// the best-effort recovered request/response id — non-nil whenever the
// frame parsed far enough to expose a usable id alongside its other
// defect — so a caller can still reply with a -32700 response tied to
// the originating request (spec.md §7: "a structured JSON-RPC error
// response tied to the originating request ID" whenever an ID is
// recoverable). ID is nil when the frame was too malformed to recover
// one, in which case callers can only log and drop it.
type ParseError struct {
	ID  any
	Err error
}

func (e *ParseError) Error() string { return e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// DecodeMessage parses one JSON-RPC frame (a single line of newline-
// delimited JSON, or any compact JSON object) into a tagged Message.
//
// Shape is decided by presence: Response first when id is present and
// method is absent, Request when both id and method are present,
// Notification when method is present and id is absent. A frame with
// neither id nor method, or with both result and error set, is rejected
// with a *ParseError wrapping ErrParseError; ParseError.ID carries the
// best-effort recovered id when one was parseable.
func DecodeMessage(data []byte) (*Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ParseError{Err: fmt.Errorf("%w: %v", ErrParseError, err)}
	}
	hasID := len(env.ID) > 0 && !bytes.Equal(env.ID, []byte("null"))
	hasMethod := env.Method != ""

	var id any
	if hasID {
		if err := json.Unmarshal(env.ID, &id); err != nil {
			return nil, &ParseError{Err: fmt.Errorf("%w: %v", ErrParseError, err)}
		}
	}

	switch {
	case hasID && !hasMethod:
		if env.Result != nil && env.Error != nil {
			return nil, &ParseError{ID: id, Err: fmt.Errorf("%w: response carries both result and error", ErrParseError)}
		}
		return &Message{Kind: KindResponse, Response: &Response{
			JSONRPC: env.JSONRPC,
			ID:      id,
			Result:  env.Result,
			Error:   env.Error,
		}}, nil
	case hasID && hasMethod:
		return &Message{Kind: KindRequest, Request: &Request{
			JSONRPC: env.JSONRPC,
			ID:      id,
			Method:  env.Method,
			Params:  env.Params,
		}}, nil
	case hasMethod:
		return &Message{Kind: KindNotification, Notification: &Notification{
			JSONRPC: env.JSONRPC,
			Method:  env.Method,
			Params:  env.Params,
		}}, nil
	default:
		return nil, &ParseError{Err: fmt.Errorf("%w: frame carries neither id nor method", ErrParseError)}
	}
}

// EncodeMessage serializes a Request, Response, or Notification to its
// compact JSON form. Unset optional fields are omitted; callers must not
// set both Result and Error on a Response.
func EncodeMessage(v any) ([]byte, error) {
	switch m := v.(type) {
	case *Request:
		if m.JSONRPC == "" {
			m.JSONRPC = JSONRPCVersion
		}
		return json.Marshal(m)
	case *Response:
		if m.JSONRPC == "" {
			m.JSONRPC = JSONRPCVersion
		}
		if m.Result != nil && m.Error != nil {
			return nil, fmt.Errorf("mcp: response has both result and error")
		}
		return json.Marshal(m)
	case *Notification:
		if m.JSONRPC == "" {
			m.JSONRPC = JSONRPCVersion
		}
		return json.Marshal(m)
	default:
		return nil, fmt.Errorf("mcp: cannot encode %T", v)
	}
}

// Validate reports whether r is a well-formed JSON-RPC 2.0 request.
func (r *Request) Validate() error {
	if r.JSONRPC != JSONRPCVersion {
		return ErrInvalidRequest
	}
	if r.Method == "" {
		return ErrInvalidRequest
	}
	return nil
}

// IsError reports whether the response carries an error.
func (r *Response) IsError() bool { return r.Error != nil }

// StringifyID renders a JSON-RPC id (string, float64, or nil after
// round-tripping through encoding/json) as a stable lookup key so that a
// numeric response id always matches its numeric-originated request
// regardless of how the transport re-encoded the number.
func StringifyID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
