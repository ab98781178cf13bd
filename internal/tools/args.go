package tools

import (
	"encoding/json"
	"math"

	"trello-mcp/internal/mcp"
)

// Argument keys. The camelCase form is canonical; the snake_case spelling
// is what earlier clients sent and is still accepted.
var (
	keyBoardID     = []string{"boardId", "board_id"}
	keyListID      = []string{"listId", "list_id"}
	keyCardID      = []string{"cardId", "card_id"}
	keyWorkspaceID = []string{"workspaceId", "workspace_id"}
)

// Arguments are the decoded tool arguments.
type Arguments map[string]any

// String returns the first of keys that is present. Absent and null both
// read as "". A present non-string value is an InvalidArguments error.
func (a Arguments) String(keys ...string) (string, error) {
	for _, k := range keys {
		v, ok := a[k]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return "", mcp.InvalidArguments("%s must be a string", keys[0])
		}
		return s, nil
	}
	return "", nil
}

// Require is String for arguments that must be present and non-empty.
func (a Arguments) Require(keys ...string) (string, error) {
	s, err := a.String(keys...)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", mcp.InvalidArguments("%s is required", keys[0])
	}
	return s, nil
}

// Optional distinguishes an absent string argument (nil) from an empty one.
func (a Arguments) Optional(keys ...string) (*string, error) {
	for _, k := range keys {
		v, ok := a[k]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, mcp.InvalidArguments("%s must be a string", keys[0])
		}
		return &s, nil
	}
	return nil, nil
}

// Int reads a non-negative integer argument; absent reads as 0.
func (a Arguments) Int(key string) (int, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, nil
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, mcp.InvalidArguments("%s must be an integer", key)
		}
		f = parsed
	default:
		return 0, mcp.InvalidArguments("%s must be an integer", key)
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, mcp.InvalidArguments("%s must be a non-negative integer", key)
	}
	return int(f), nil
}
