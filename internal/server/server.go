// Package server provides the HTTP handlers and routing for the MCP server.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"trello-mcp/internal/mcp"
	"trello-mcp/internal/tools"
)

const (
	// MaxBodyBytes caps a POST /mcp body.
	MaxBodyBytes = 1 << 20

	DefaultRequestTimeout    = 30 * time.Second
	DefaultKeepaliveInterval = 30 * time.Second

	serverName = "trello-mcp"
)

// Config contains server configuration: auth, upstream, catalog and timeouts.
type Config struct {
	// AuthToken enables bearer auth on the MCP routes when non-empty.
	AuthToken string
	Upstream  tools.Upstream
	// Catalog is tools.CatalogFull or tools.CatalogPublic.
	Catalog            string
	ListTimeout        time.Duration
	CallTimeout        time.Duration
	RequestTimeout     time.Duration
	KeepaliveInterval  time.Duration
	BoardCacheTTL      time.Duration
	LegacyListFallback bool
	Version            string
	Logger             *slog.Logger
}

// Server contains the configured router, dispatcher and session for the MCP server.
type Server struct {
	cfg               Config
	router            *chi.Mux
	dispatcher        *mcp.Dispatcher
	invoker           *tools.Invoker
	logger            *slog.Logger
	requestTimeout    time.Duration
	keepaliveInterval time.Duration
}

// New constructs a Server with middleware and routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.Upstream == nil {
		return nil, errors.New("server: upstream is required")
	}
	s := &Server{
		cfg:               cfg,
		router:            chi.NewRouter(),
		logger:            cfg.Logger,
		requestTimeout:    cfg.RequestTimeout,
		keepaliveInterval: cfg.KeepaliveInterval,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.requestTimeout <= 0 {
		s.requestTimeout = DefaultRequestTimeout
	}
	if s.keepaliveInterval <= 0 {
		s.keepaliveInterval = DefaultKeepaliveInterval
	}

	upstream := cfg.Upstream
	if cfg.BoardCacheTTL > 0 {
		upstream = newCachingUpstream(upstream, cfg.BoardCacheTTL)
	}

	inv, err := tools.NewInvoker(tools.Config{
		Upstream:           upstream,
		ListTimeout:        cfg.ListTimeout,
		CallTimeout:        cfg.CallTimeout,
		LegacyListFallback: cfg.LegacyListFallback,
		Logger:             s.logger.With("component", "tools"),
	})
	if err != nil {
		return nil, fmt.Errorf("building invoker: %w", err)
	}
	catalog, err := tools.Catalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	d, err := mcp.NewDispatcher(mcp.DispatcherConfig{
		Catalog: catalog,
		Invoker: inv,
		Info:    mcp.ServerInfo{Name: serverName, Version: cfg.Version},
		Logger:  s.logger.With("component", "mcp"),
	})
	if err != nil {
		return nil, fmt.Errorf("building dispatcher: %w", err)
	}
	s.invoker = inv
	s.dispatcher = d

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.accessLog)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/tools", s.handleListTools)
		r.Get("/mcp", s.handleInitialize)
		r.Post("/mcp", s.handleMCP)
		r.Get("/sse", s.handleSSE)
	})

	return s, nil
}

// Router exposes the root HTTP handler for the server.
func (s *Server) Router() http.Handler { return s.router }

// Session exposes the active board/workspace selection.
func (s *Server) Session() *tools.Session { return s.invoker.Session() }

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Trello MCP server",
		"version": s.cfg.Version,
		"endpoints": map[string]string{
			"health": "GET /health",
			"tools":  "GET /tools",
			"mcp":    "POST /mcp",
			"sse":    "GET /sse",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	catalog := s.dispatcher.Catalog()
	names := make([]string, 0, len(catalog))
	for _, d := range catalog {
		names = append(names, d.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": names})
}

func (s *Server) handleInitialize(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jsonrpc": "2.0", "result": s.dispatcher.Initialize()})
}

// handleMCP runs one MCP request under the outer request timeout. If the
// timeout fires first, an internal-error envelope is written and the late
// dispatch result is discarded.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	guard := newResponseGuard(w, s.logger)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			guard.write(mcp.Failure(nil, mcp.MalformedRequest("request body exceeds %d bytes", MaxBodyBytes)))
			return
		}
		guard.write(mcp.Failure(nil, mcp.MalformedRequest("reading request body: %v", err)))
		return
	}

	req, err := mcp.ParseRequest(body)
	if err != nil {
		guard.write(mcp.Failure(req, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	done := make(chan mcp.Response, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("dispatch panicked", "method", req.Method, "panic", p)
				done <- mcp.Failure(req, mcp.UpstreamError(req.Method, fmt.Errorf("panic: %v", p)))
			}
		}()
		done <- s.dispatcher.Dispatch(ctx, req)
	}()

	select {
	case resp := <-done:
		guard.write(resp)
	case <-ctx.Done():
		s.logger.Warn("request timed out",
			"request_id", middleware.GetReqID(r.Context()),
			"method", req.Method,
			"timeout", s.requestTimeout,
		)
		guard.write(mcp.Failure(req, mcp.UpstreamTimeout("request", s.requestTimeout)))
	}
}
