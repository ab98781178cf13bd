package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is the MCP protocol version advertised by initialize.
const ProtocolVersion = "2024-11-05"

// Invoker executes named operations. Has reports every name Invoke accepts,
// which may be more than the catalog lists (legacy operation names).
type Invoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (any, error)
	Has(name string) bool
}

// ServerInfo identifies the server in initialize results.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the static initialize descriptor.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

// ServerCapabilities declares what the server supports.
type ServerCapabilities struct {
	Tools *ToolCapability `json:"tools,omitempty"`
}

// ToolCapability signals tool support by its presence.
type ToolCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ListToolsResult is the result for tools/list.
type ListToolsResult struct {
	Tools []Descriptor `json:"tools"`
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Catalog []Descriptor
	Invoker Invoker
	Info    ServerInfo
	Logger  *slog.Logger
}

type methodHandler func(ctx context.Context, req *Request) Response

// Dispatcher routes normalized requests to protocol-meta handlers, the
// tools/call path, or legacy direct operations. It holds no mutable state.
type Dispatcher struct {
	catalog []Descriptor
	listed  map[string]bool
	invoker Invoker
	info    ServerInfo
	logger  *slog.Logger
	methods map[string]methodHandler
}

// NewDispatcher validates the catalog against the invoker and builds the
// method registry.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Invoker == nil {
		return nil, errors.New("invoker is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		catalog: make([]Descriptor, len(cfg.Catalog)),
		listed:  make(map[string]bool, len(cfg.Catalog)),
		invoker: cfg.Invoker,
		info:    cfg.Info,
		logger:  logger,
	}
	copy(d.catalog, cfg.Catalog)
	for _, desc := range d.catalog {
		if err := desc.Validate(); err != nil {
			return nil, err
		}
		if d.listed[desc.Name] {
			return nil, fmt.Errorf("duplicate tool %s in catalog", desc.Name)
		}
		if !cfg.Invoker.Has(desc.Name) {
			return nil, fmt.Errorf("catalog tool %s has no implementation", desc.Name)
		}
		d.listed[desc.Name] = true
	}

	d.methods = map[string]methodHandler{
		"initialize":                d.handleInitialize,
		"tools/list":                d.handleToolsList,
		"tools/call":                d.handleToolsCall,
		"notifications/initialized": d.handleNotification,
	}
	return d, nil
}

// Catalog returns the configured tool descriptors in catalog order.
func (d *Dispatcher) Catalog() []Descriptor {
	out := make([]Descriptor, len(d.catalog))
	copy(out, d.catalog)
	return out
}

// Initialize returns the static capability/version descriptor.
func (d *Dispatcher) Initialize() InitializeResult {
	return InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    ServerCapabilities{Tools: &ToolCapability{}},
		ServerInfo:      d.info,
	}
}

// Handle normalizes body and dispatches it.
func (d *Dispatcher) Handle(ctx context.Context, body []byte) Response {
	req, err := ParseRequest(body)
	if err != nil {
		return Failure(req, err)
	}
	return d.Dispatch(ctx, req)
}

// Dispatch routes a normalized request.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) Response {
	if h, ok := d.methods[req.Method]; ok {
		return h(ctx, req)
	}
	if strings.HasPrefix(req.Method, "notifications/") {
		return d.handleNotification(ctx, req)
	}
	if d.invoker.Has(req.Method) {
		return d.invoke(ctx, req, req.Method, req.Params)
	}

	d.logger.Warn("unknown method", "method", req.Method, "format", req.Format)
	return Failure(req, UnknownMethod(req.Method))
}

func (d *Dispatcher) handleInitialize(_ context.Context, req *Request) Response {
	return Success(req, d.Initialize())
}

func (d *Dispatcher) handleToolsList(_ context.Context, req *Request) Response {
	return Success(req, ListToolsResult{Tools: d.Catalog()})
}

func (d *Dispatcher) handleNotification(_ context.Context, req *Request) Response {
	d.logger.Debug("accepted MCP notification", "method", req.Method)
	return Notification()
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, req *Request) Response {
	name, _ := req.Params["name"].(string)
	if name == "" {
		return Failure(req, InvalidArguments("tools/call requires params.name"))
	}
	if !d.listed[name] {
		d.logger.Warn("unknown tool", "tool_name", name)
		return Failure(req, UnknownTool(name))
	}

	args := map[string]any{}
	switch a := req.Params["arguments"].(type) {
	case nil:
	case map[string]any:
		args = a
	default:
		return Failure(req, InvalidArguments("params.arguments must be an object"))
	}
	return d.invoke(ctx, req, name, args)
}

func (d *Dispatcher) invoke(ctx context.Context, req *Request, name string, args map[string]any) Response {
	callID := uuid.New().String()
	start := time.Now()
	d.logger.Debug("tool call",
		"tool_name", name,
		"call_id", callID,
		"legacy", req.Method != "tools/call",
	)

	result, err := d.invoker.Invoke(ctx, name, args)
	if err != nil {
		e := AsError(name, err)
		d.logger.Warn("tool call failed",
			"tool_name", name,
			"call_id", callID,
			"kind", e.Kind,
			"error", e.Message,
		)
		return Failure(req, e)
	}

	d.logger.Debug("tool call complete",
		"tool_name", name,
		"call_id", callID,
		"duration", time.Since(start),
	)
	return Success(req, result)
}
