// Package apiserver implements the wire protocol and connection types
// of §4.6: a PostConnection serving one request/response pair per HTTP
// request and a WsConnection serving a long-lived, many-request
// connection with server-initiated pushes. Grounded on
// internal/delivery/http/handler.go + middleware.go (recovery
// middleware, JSON request/response envelopes over plain net/http) and
// eventsync/websocket_client.go (the Ws read/dispatch loop shape).
package apiserver

import "encoding/json"

// Request is the wire envelope decoded from every inbound call (§4.6):
// (targetId, methodName, args), plus an optional request id that Ws
// callers must have echoed back.
type Request struct {
	TargetId   string            `json:"targetId"`
	MethodName string            `json:"method"`
	Args       []json.RawMessage `json:"args,omitempty"`
	ReqId      *string           `json:"reqId,omitempty"`
}

// Response is the wire envelope written back for a Request.
type Response struct {
	ReqId  *string         `json:"reqId,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *WireError      `json:"error,omitempty"`
}

// WireError is the sanitized, client-facing shape of an internal error:
// only Kind and Message cross the wire, never a stack trace.
type WireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Push is a server-initiated notification, only ever written on a Ws
// connection (§4.6: "Server-initiated pushes... are only supported on
// Ws connections").
type Push struct {
	TargetId string          `json:"targetId"`
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data,omitempty"`
}
