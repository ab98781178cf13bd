package mcp

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an adapter failure. It decides both the HTTP status and
// the JSON-RPC error code of the response.
type Kind string

const (
	KindMalformedRequest Kind = "malformed_request"
	KindUnknownMethod    Kind = "unknown_method"
	KindUnknownTool      Kind = "unknown_tool"
	KindInvalidArguments Kind = "invalid_arguments"
	KindMissingContext   Kind = "missing_context"
	KindNotFound         Kind = "not_found"
	KindUpstreamTimeout  Kind = "upstream_timeout"
	KindUpstreamError    Kind = "upstream_error"
)

// Standard JSON-RPC error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Error is the single error type crossing the dispatcher boundary.
type Error struct {
	Kind     Kind
	Message  string
	Resource string // offending method, tool or resource id, when there is one
	Err      error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Status is the HTTP status the error is reported with. Caller mistakes are
// 400; everything caught at the invoker boundary is 500.
func (e *Error) Status() int {
	switch e.Kind {
	case KindMalformedRequest, KindUnknownMethod, KindUnknownTool, KindInvalidArguments:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Code is the JSON-RPC error code for the error.
func (e *Error) Code() int {
	switch e.Kind {
	case KindMalformedRequest:
		return CodeInvalidRequest
	case KindUnknownMethod:
		return CodeMethodNotFound
	case KindUnknownTool, KindInvalidArguments:
		return CodeInvalidParams
	default:
		return CodeInternalError
	}
}

// MalformedRequest reports a body that cannot be normalized.
func MalformedRequest(format string, args ...any) *Error {
	return &Error{Kind: KindMalformedRequest, Message: fmt.Sprintf(format, args...)}
}

// UnknownMethod reports a method that is neither protocol-meta nor an operation.
func UnknownMethod(method string) *Error {
	return &Error{Kind: KindUnknownMethod, Message: fmt.Sprintf("unknown method: %s", method), Resource: method}
}

// UnknownTool reports a tools/call name absent from the catalog.
func UnknownTool(name string) *Error {
	return &Error{Kind: KindUnknownTool, Message: fmt.Sprintf("unknown tool: %s", name), Resource: name}
}

// InvalidArguments reports a missing or mistyped tool argument.
func InvalidArguments(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArguments, Message: fmt.Sprintf(format, args...)}
}

// MissingContext reports that neither an explicit id nor the session's
// active selection was available.
func MissingContext(what string) *Error {
	return &Error{
		Kind:     KindMissingContext,
		Message:  fmt.Sprintf("no %s id given and no active %s set", what, what),
		Resource: what,
	}
}

// NotFound reports a resource id that no resolution step could find.
func NotFound(id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("resource not found: %s", id), Resource: id}
}

// UpstreamTimeout reports an operation that lost its timeout race.
func UpstreamTimeout(op string, budget time.Duration) *Error {
	return &Error{
		Kind:     KindUpstreamTimeout,
		Message:  fmt.Sprintf("%s timed out after %s", op, budget),
		Resource: op,
	}
}

// UpstreamError wraps a failed upstream call.
func UpstreamError(op string, err error) *Error {
	return &Error{
		Kind:     KindUpstreamError,
		Message:  fmt.Sprintf("%s failed: %v", op, err),
		Resource: op,
		Err:      err,
	}
}

// AsError returns err as an *Error, classifying anything else as an
// upstream failure of op.
func AsError(op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return UpstreamError(op, err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
