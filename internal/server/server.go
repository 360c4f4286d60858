// Package server exposes the simulation over WebSocket. Sessions send pilot
// input and parameter commands; the server broadcasts scene, telemetry,
// phase, and report messages.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/moonward/lander/internal/dispatcher"
	"github.com/moonward/lander/internal/logging"
)

// Server owns the HTTP listener and the session hub.
type Server struct {
	addr       string
	hub        *Hub
	dispatcher *dispatcher.Dispatcher
	logManager *logging.Manager

	httpServer *http.Server
	upgrader   ws.Upgrader
}

// New creates a server. Handlers must already be registered on d.
func New(addr string, d *dispatcher.Dispatcher, hub *Hub, logManager *logging.Manager) *Server {
	return &Server{
		addr:       addr,
		hub:        hub,
		dispatcher: d,
		logManager: logManager,
		upgrader: ws.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Control panels are served from anywhere on the LAN.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Hub returns the broadcast hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start runs the listener until the context ends.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	s.logManager.Logger().Info("WebSocket server listening", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logManager.Logger().Error("WebSocket upgrade failed", "error", err)
		return
	}

	client := newClient(s, conn)
	s.hub.register(client)
	s.logManager.Logger().Info("Session connected", "remote", conn.RemoteAddr().String())

	go client.writePump()
	go client.readPump()
}
