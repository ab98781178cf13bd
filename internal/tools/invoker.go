package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trello-mcp/internal/mcp"
	"trello-mcp/internal/trello"
)

// Default budgets for the per-tool timeout race.
const (
	DefaultListTimeout = 2 * time.Second
	DefaultCallTimeout = 10 * time.Second
)

// Upstream is the task-board API the tools call. *trello.Client satisfies it.
type Upstream interface {
	ListBoards(ctx context.Context) ([]trello.Board, error)
	ListWorkspaceBoards(ctx context.Context, workspaceID string) ([]trello.Board, error)
	GetBoard(ctx context.Context, boardID string) (*trello.Board, error)
	GetLists(ctx context.Context, boardID string) ([]trello.List, error)
	GetList(ctx context.Context, listID string) (*trello.List, error)
	GetCards(ctx context.Context, listID string) ([]trello.Card, error)
	GetCard(ctx context.Context, cardID string) (*trello.Card, error)
	CreateCard(ctx context.Context, p trello.CardParams) (*trello.Card, error)
	UpdateCard(ctx context.Context, cardID string, u trello.CardUpdate) (*trello.Card, error)
	CreateBoard(ctx context.Context, p trello.BoardParams) (*trello.Board, error)
	CreateList(ctx context.Context, boardID, name string) (*trello.List, error)
	ListWorkspaces(ctx context.Context) ([]trello.Workspace, error)
	GetWorkspace(ctx context.Context, workspaceID string) (*trello.Workspace, error)
}

// HandlerFunc executes one tool.
type HandlerFunc func(ctx context.Context, call *Call) (any, error)

// Tool binds a descriptor to its handler.
type Tool struct {
	Descriptor mcp.Descriptor
	Handler    HandlerFunc
	// List marks latency-sensitive listing tools: they run on the short
	// budget and degrade instead of failing when it runs out.
	List    bool
	degrade func(*mcp.Error) (any, error)
}

// Config configures an Invoker.
type Config struct {
	Upstream    Upstream
	Session     *Session
	ListTimeout time.Duration
	CallTimeout time.Duration
	// LegacyListFallback lets fetch resolve an unknown id as "the first list
	// of the board with that id" after every other lookup failed.
	LegacyListFallback bool
	Logger             *slog.Logger
}

// Invoker runs tools against the upstream under a timeout race.
type Invoker struct {
	upstream           Upstream
	session            *Session
	tools              map[string]*Tool
	listTimeout        time.Duration
	callTimeout        time.Duration
	legacyListFallback bool
	logger             *slog.Logger
}

type outcome struct {
	value any
	err   error
}

// NewInvoker builds the tool registry from the full catalog.
func NewInvoker(cfg Config) (*Invoker, error) {
	if cfg.Upstream == nil {
		return nil, errors.New("upstream is required")
	}
	inv := &Invoker{
		upstream:           cfg.Upstream,
		session:            cfg.Session,
		listTimeout:        cfg.ListTimeout,
		callTimeout:        cfg.CallTimeout,
		legacyListFallback: cfg.LegacyListFallback,
		logger:             cfg.Logger,
	}
	if inv.session == nil {
		inv.session = NewSession()
	}
	if inv.listTimeout <= 0 {
		inv.listTimeout = DefaultListTimeout
	}
	if inv.callTimeout <= 0 {
		inv.callTimeout = DefaultCallTimeout
	}
	if inv.logger == nil {
		inv.logger = slog.Default()
	}

	handlers := inv.handlers()
	inv.tools = make(map[string]*Tool, len(handlers))
	for _, desc := range descriptors() {
		t, ok := handlers[desc.Name]
		if !ok {
			return nil, fmt.Errorf("tool %s has no handler", desc.Name)
		}
		t.Descriptor = desc
		inv.tools[desc.Name] = t
	}
	return inv, nil
}

// Session returns the session the invoker reads and writes.
func (inv *Invoker) Session() *Session {
	return inv.session
}

// Has reports whether name is a tool or a legacy alias.
func (inv *Invoker) Has(name string) bool {
	_, ok := inv.lookup(name)
	return ok
}

func (inv *Invoker) lookup(name string) (*Tool, bool) {
	if target, ok := legacyAliases[name]; ok {
		name = target
	}
	t, ok := inv.tools[name]
	return t, ok
}

// Invoke runs the named tool. It never panics and never blocks past the
// tool's budget or ctx, whichever ends first.
func (inv *Invoker) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	tool, ok := inv.lookup(name)
	if !ok {
		return nil, mcp.UnknownTool(name)
	}
	if args == nil {
		args = map[string]any{}
	}
	return inv.run(ctx, tool, Arguments(args))
}

func (inv *Invoker) budget(t *Tool) time.Duration {
	if t.List {
		return inv.listTimeout
	}
	return inv.callTimeout
}

// run races the handler against the tool budget. The losing handler's
// context is cancelled, its result dropped and its staged session writes
// never committed.
func (inv *Invoker) run(ctx context.Context, tool *Tool, args Arguments) (any, error) {
	name := tool.Descriptor.Name
	budget := inv.budget(tool)

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	call := newCall(name, args, inv.session.Snapshot())
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				inv.logger.Error("tool handler panicked", "tool_name", name, "panic", r)
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := tool.Handler(callCtx, call)
		done <- outcome{value: v, err: err}
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, classify(name, out.err)
		}
		call.commit(inv.session)
		return out.value, nil

	case <-timer.C:
		e := mcp.UpstreamTimeout(name, budget)
		inv.logger.Warn("tool call timed out",
			"tool_name", name,
			"timeout", budget,
			"degraded", tool.degrade != nil,
		)
		if tool.degrade != nil {
			return tool.degrade(e)
		}
		return nil, e

	case <-ctx.Done():
		return nil, classify(name, ctx.Err())
	}
}

func classify(name string, err error) error {
	var e *mcp.Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &mcp.Error{
			Kind:     mcp.KindUpstreamTimeout,
			Message:  fmt.Sprintf("%s aborted: %v", name, err),
			Resource: name,
			Err:      err,
		}
	}
	return mcp.UpstreamError(name, err)
}

// degradeList returns the empty-listing shape used when a list tool runs
// out of time: callers expecting key to hold an array still get one.
func degradeList(key string) func(*mcp.Error) (any, error) {
	return func(e *mcp.Error) (any, error) {
		return map[string]any{key: []any{}, "error": e.Message, "degraded": true}, nil
	}
}

// degradeText is degradeList for tools whose payload is text-encoded.
func degradeText(key string) func(*mcp.Error) (any, error) {
	return func(e *mcp.Error) (any, error) {
		return mcp.TextResult(map[string]any{key: []any{}, "error": e.Message, "degraded": true})
	}
}
