package mcp

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, resp Response) string {
	t.Helper()
	b, err := json.Marshal(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func mustParse(t *testing.T, body string) *Request {
	t.Helper()
	req, err := ParseRequest([]byte(body))
	require.NoError(t, err)
	return req
}

func TestSuccess_EchoesIDVerbatim(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"number", `{"jsonrpc":"2.0","method":"m","id":1}`, `{"jsonrpc":"2.0","result":{"ok":true},"id":1}`},
		{"string", `{"jsonrpc":"2.0","method":"m","id":"req-1"}`, `{"jsonrpc":"2.0","result":{"ok":true},"id":"req-1"}`},
		{"null", `{"jsonrpc":"2.0","method":"m","id":null}`, `{"jsonrpc":"2.0","result":{"ok":true},"id":null}`},
		{"float", `{"jsonrpc":"2.0","method":"m","id":1.50}`, `{"jsonrpc":"2.0","result":{"ok":true},"id":1.50}`},
		{"absent", `{"jsonrpc":"2.0","method":"m"}`, `{"jsonrpc":"2.0","result":{"ok":true}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Success(mustParse(t, tt.body), map[string]bool{"ok": true})
			assert.Equal(t, http.StatusOK, resp.Status)
			assert.Equal(t, tt.want, encode(t, resp))
		})
	}
}

func TestSuccess_SimpleOmitsEnvelope(t *testing.T) {
	resp := Success(mustParse(t, `{"method":"m","id":4}`), []string{"a"})
	assert.Equal(t, `{"result":["a"]}`, encode(t, resp))
}

func TestSuccess_NilResultStillHasResultKey(t *testing.T) {
	resp := Success(mustParse(t, `{"jsonrpc":"2.0","method":"m","id":2}`), nil)
	assert.Equal(t, `{"jsonrpc":"2.0","result":{},"id":2}`, encode(t, resp))
}

func TestFailure_StatusAndCodes(t *testing.T) {
	rpc := mustParse(t, `{"jsonrpc":"2.0","method":"m","id":9}`)
	tests := []struct {
		err    error
		status int
		code   int
	}{
		{MalformedRequest("missing method"), http.StatusBadRequest, CodeInvalidRequest},
		{UnknownMethod("nope"), http.StatusBadRequest, CodeMethodNotFound},
		{UnknownTool("nope"), http.StatusBadRequest, CodeInvalidParams},
		{InvalidArguments("listId is required"), http.StatusBadRequest, CodeInvalidParams},
		{MissingContext("board"), http.StatusInternalServerError, CodeInternalError},
		{NotFound("x"), http.StatusInternalServerError, CodeInternalError},
		{UpstreamTimeout("get_lists", 2*time.Second), http.StatusInternalServerError, CodeInternalError},
		{UpstreamError("get_lists", errors.New("boom")), http.StatusInternalServerError, CodeInternalError},
		{errors.New("plain"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			resp := Failure(rpc, tt.err)
			assert.Equal(t, tt.status, resp.Status)

			var body struct {
				JSONRPC string          `json:"jsonrpc"`
				Result  json.RawMessage `json:"result"`
				Error   RPCError        `json:"error"`
				ID      json.RawMessage `json:"id"`
			}
			require.NoError(t, json.Unmarshal([]byte(encode(t, resp)), &body))
			assert.Equal(t, "2.0", body.JSONRPC)
			assert.Nil(t, body.Result, "error responses carry no result")
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, "9", string(body.ID))
		})
	}
}

func TestFailure_SimpleIsPlainError(t *testing.T) {
	resp := Failure(mustParse(t, `{"method":"nope"}`), UnknownMethod("nope"))
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, `{"error":"unknown method: nope"}`, encode(t, resp))
}

func TestFailure_NilRequest(t *testing.T) {
	resp := Failure(nil, MalformedRequest("request body must be a JSON object"))
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, `{"error":"request body must be a JSON object"}`, encode(t, resp))
}

func TestNotification_IsBareObject(t *testing.T) {
	resp := Notification()
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, `{}`, encode(t, resp))
}
