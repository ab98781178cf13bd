package mcp

import (
	"bytes"
	"encoding/json"
)

// Format is the envelope shape a request arrived in; responses mirror it.
type Format int

const (
	// FormatSimple is a bare {"method","params"} body. Responses carry no
	// jsonrpc or id fields.
	FormatSimple Format = iota
	// FormatJSONRPC is any body with a top-level "jsonrpc" key.
	FormatJSONRPC
)

func (f Format) String() string {
	if f == FormatJSONRPC {
		return "jsonrpc"
	}
	return "simple"
}

// Request is an inbound call after normalization.
type Request struct {
	Method string
	Params map[string]any
	// ID is the raw id exactly as received: nil when absent, "null" when
	// null. Only set for FormatJSONRPC.
	ID     json.RawMessage
	Format Format
}

// HasID reports whether the request carried an id key at all.
func (r *Request) HasID() bool {
	return r != nil && r.ID != nil
}

// ParseRequest normalizes a raw HTTP body. Both shapes read method and
// params from the same top-level keys; params defaults to an empty map.
//
// On a MalformedRequest error the returned Request is still non-nil when the
// body was a JSON object, carrying Format and ID so the failure can be
// shaped like the request.
func ParseRequest(body []byte) (*Request, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, MalformedRequest("request body must be a JSON object")
	}

	req := &Request{Format: FormatSimple, Params: map[string]any{}}
	if _, ok := raw["jsonrpc"]; ok {
		req.Format = FormatJSONRPC
		if id, ok := raw["id"]; ok {
			req.ID = id
		}
	}

	m, ok := raw["method"]
	if !ok {
		return req, MalformedRequest("missing method")
	}
	if err := json.Unmarshal(m, &req.Method); err != nil || req.Method == "" {
		return req, MalformedRequest("method must be a non-empty string")
	}

	if p, ok := raw["params"]; ok && !bytes.Equal(bytes.TrimSpace(p), []byte("null")) {
		var params map[string]any
		if err := json.Unmarshal(p, &params); err != nil {
			return req, MalformedRequest("params must be an object")
		}
		req.Params = params
	}
	return req, nil
}
