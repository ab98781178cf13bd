// Package mcp implements the protocol side of the Trello MCP adapter:
// request normalization, method dispatch and response envelopes.
//
// # Request shapes
//
// Two body shapes are accepted on the same endpoint. A body carrying a
// "jsonrpc" key is treated as JSON-RPC 2.0 and its id is echoed back
// untouched:
//
//	{"jsonrpc":"2.0","method":"tools/call","params":{"name":"search","arguments":{"query":"urgent"}},"id":1}
//
// Any other object is a simple request and gets a bare {"result"} or
// {"error"} reply:
//
//	{"method":"get_lists","params":{"boardId":"b1"}}
//
// # Methods
//
// The Dispatcher answers initialize, tools/list and notifications/* itself.
// tools/call looks the tool up in the configured catalog. Any other method
// naming an operation the Invoker knows is a legacy direct call, with params
// used as the tool arguments. Everything else is UnknownMethod.
//
// # Errors
//
// Every failure is an *Error whose Kind picks the HTTP status (400 for
// caller mistakes, 500 otherwise) and the JSON-RPC code.
package mcp
