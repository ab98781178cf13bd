package tools

import (
	"sync"

	"trello-mcp/internal/mcp"
)

// Session holds the process-wide board and workspace selection. Handlers
// run on their own goroutines, so every access takes the lock.
type Session struct {
	mu                sync.RWMutex
	activeBoardID     string
	activeWorkspaceID string
}

// SessionState is a point-in-time copy of a Session.
type SessionState struct {
	ActiveBoardID     string `json:"activeBoardId,omitempty"`
	ActiveWorkspaceID string `json:"activeWorkspaceId,omitempty"`
}

// NewSession returns a session with nothing selected.
func NewSession() *Session {
	return &Session{}
}

// Snapshot returns the current selection.
func (s *Session) Snapshot() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionState{ActiveBoardID: s.activeBoardID, ActiveWorkspaceID: s.activeWorkspaceID}
}

// SetActiveBoard replaces the active board.
func (s *Session) SetActiveBoard(id string) {
	s.mu.Lock()
	s.activeBoardID = id
	s.mu.Unlock()
}

// SetActiveWorkspace replaces the active workspace.
func (s *Session) SetActiveWorkspace(id string) {
	s.mu.Lock()
	s.activeWorkspaceID = id
	s.mu.Unlock()
}

// Call is one tool execution. Handlers read the session through the
// snapshot taken when the call started and stage writes; the invoker
// commits staged writes only when the handler wins its timeout race.
type Call struct {
	Name    string
	Args    Arguments
	session SessionState
	staged  []func(*Session)
}

func newCall(name string, args Arguments, state SessionState) *Call {
	return &Call{Name: name, Args: args, session: state}
}

// Session returns the selection as of the start of the call.
func (c *Call) Session() SessionState {
	return c.session
}

// BoardID returns the explicit boardId argument, else the active board.
func (c *Call) BoardID() (string, error) {
	id, err := c.Args.String(keyBoardID...)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	if c.session.ActiveBoardID != "" {
		return c.session.ActiveBoardID, nil
	}
	return "", mcp.MissingContext("board")
}

// WorkspaceID returns the explicit workspaceId argument, else the active
// workspace, else "".
func (c *Call) WorkspaceID() (string, error) {
	id, err := c.Args.String(keyWorkspaceID...)
	if err != nil || id != "" {
		return id, err
	}
	return c.session.ActiveWorkspaceID, nil
}

// StageActiveBoard records a board selection to apply on success.
func (c *Call) StageActiveBoard(id string) {
	c.staged = append(c.staged, func(s *Session) { s.SetActiveBoard(id) })
}

// StageActiveWorkspace records a workspace selection to apply on success.
func (c *Call) StageActiveWorkspace(id string) {
	c.staged = append(c.staged, func(s *Session) { s.SetActiveWorkspace(id) })
}

func (c *Call) commit(s *Session) {
	for _, apply := range c.staged {
		apply(s)
	}
}
