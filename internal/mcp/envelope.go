package mcp

import (
	"encoding/json"
	"net/http"
)

// Response is a fully built reply: an HTTP status and a JSON-encodable body.
type Response struct {
	Status int
	Body   any
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData carries the error kind so clients can branch without parsing
// the message.
type ErrorData struct {
	Kind     Kind   `json:"kind"`
	Resource string `json:"resource,omitempty"`
}

// rpcEnvelope is the JSON-RPC 2.0 response. Exactly one of Result and Error
// is set; ID is omitted only when the request had none.
type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

type simpleResult struct {
	Result any `json:"result"`
}

type simpleError struct {
	Error string `json:"error"`
}

// Success wraps result in the envelope matching req's format. A nil req is
// treated as a Simple request.
func Success(req *Request, result any) Response {
	if result == nil {
		result = map[string]any{}
	}
	if req != nil && req.Format == FormatJSONRPC {
		return Response{Status: http.StatusOK, Body: rpcEnvelope{JSONRPC: "2.0", Result: result, ID: req.ID}}
	}
	return Response{Status: http.StatusOK, Body: simpleResult{Result: result}}
}

// Failure wraps err in the envelope matching req's format, with the status
// its kind maps to. Errors that are not *Error are reported as internal.
func Failure(req *Request, err error) Response {
	e := AsError("request", err)
	if req != nil && req.Format == FormatJSONRPC {
		return Response{
			Status: e.Status(),
			Body: rpcEnvelope{
				JSONRPC: "2.0",
				Error: &RPCError{
					Code:    e.Code(),
					Message: e.Message,
					Data:    &ErrorData{Kind: e.Kind, Resource: e.Resource},
				},
				ID: req.ID,
			},
		}
	}
	return Response{Status: e.Status(), Body: simpleError{Error: e.Message}}
}

// Notification is the acknowledgment for one-way messages: HTTP 200 with an
// empty object and no envelope.
func Notification() Response {
	return Response{Status: http.StatusOK, Body: struct{}{}}
}
