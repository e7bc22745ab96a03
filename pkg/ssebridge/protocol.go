// Package ssebridge is the HTTP front-end: it exposes a workspace as a
// bidirectional MCP endpoint over SSE. Unlike the stdio front-end, it
// does not use the MCP SDK's built-in server transport — the wire
// contract here is a custom GET-stream/POST-request split with explicit
// lifecycle, response, and notification event framing, which the SDK's
// handler does not expose. It hand-rolls JSON-RPC 2.0 dispatch instead,
// the way a gateway fronting the protocol over a transport the SDK
// doesn't natively speak has to.
package ssebridge

import "encoding/json"

// Request is an inbound JSON-RPC 2.0 message. Notifications omit ID.
type Request struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether req carries no id and therefore
// expects no response.
func (req *Request) IsNotification() bool {
	return len(req.ID) == 0
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Response is an outbound JSON-RPC 2.0 message. Exactly one of Result
// and Error is set.
type Response struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Standard JSON-RPC 2.0 error codes plus the gateway's own server-defined
// range (-32000..-32099).
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeStreamClosed   = -32000
)

func errorResponse(id json.RawMessage, code int, message string, data any) *Response {
	return &Response{Jsonrpc: "2.0", ID: id, Error: &RPCError{Code: code, Message: message, Data: data}}
}

func resultResponse(id json.RawMessage, result any) *Response {
	return &Response{Jsonrpc: "2.0", ID: id, Result: result}
}

// Event is a single SSE frame: an event type (response, notification, or
// lifecycle) carrying one JSON-RPC message as its data payload.
type Event struct {
	Type string
	Data any
}
