package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	sseConnected = `{"type":"connection","status":"connected"}`
	ssePing      = `{"type":"ping"}`
)

// handleSSE holds the connection open and emits a ping every keepalive
// interval so proxies do not reap it. It carries no MCP traffic.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	streamID := uuid.NewString()
	logger := s.logger.With("stream_id", streamID)
	logger.Info("keepalive stream opened", "remote_addr", r.RemoteAddr)
	started := time.Now()
	defer func() {
		logger.Info("keepalive stream closed", "duration", time.Since(started))
	}()

	if err := writeEvent(w, flusher, sseConnected); err != nil {
		return
	}

	ticker := time.NewTicker(s.keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := writeEvent(w, flusher, ssePing); err != nil {
				logger.Debug("keepalive write failed", "error", err)
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, f http.Flusher, data string) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	f.Flush()
	return nil
}
