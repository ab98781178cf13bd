package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"trello-mcp/internal/mcp"
)

// responseGuard lets exactly one response through to the client. Later
// writes are dropped and logged.
type responseGuard struct {
	mu     sync.Mutex
	w      http.ResponseWriter
	sent   bool
	logger *slog.Logger
}

func newResponseGuard(w http.ResponseWriter, logger *slog.Logger) *responseGuard {
	return &responseGuard{w: w, logger: logger}
}

// write sends resp unless a response already went out; it reports whether
// this call wrote.
func (g *responseGuard) write(resp mcp.Response) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sent {
		g.logger.Debug("dropping late response", "status", resp.Status)
		return false
	}
	g.sent = true
	writeJSON(g.w, resp.Status, resp.Body)
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
