package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Descriptor describes one tool for tools/list.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"inputSchema"`
}

// Schema is the JSON-Schema subset the catalog uses: an object with typed
// properties. It documents the arguments for callers; it is not enforced.
type Schema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required"`
	AdditionalProperties bool                `json:"additionalProperties"`
}

// Property is a single schema property.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Minimum     *int   `json:"minimum,omitempty"`
}

// Validate checks that the descriptor is internally consistent.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return errors.New("tool name is required")
	}
	if d.InputSchema.Type != "object" {
		return fmt.Errorf("tool %s: input schema type must be object, got %q", d.Name, d.InputSchema.Type)
	}
	for _, req := range d.InputSchema.Required {
		if _, ok := d.InputSchema.Properties[req]; !ok {
			return fmt.Errorf("tool %s: required field %q is not a property", d.Name, req)
		}
	}
	return nil
}

// ContentBlock is an MCP content block within a tool result.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the MCP tools/call result shape used by the generic
// resource tools: their payload travels as serialized JSON text.
type CallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// TextResult serializes payload and nests it as a single text block.
func TextResult(payload any) (*CallResult, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding tool payload: %w", err)
	}
	return &CallResult{Content: []ContentBlock{{Type: "text", Text: string(b)}}}, nil
}
