package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lox/blackjack/internal/fileutil"
	"github.com/lox/blackjack/internal/table"
	"github.com/rs/zerolog"
)

// Server accepts WebSocket players and hands their lines to the table registry.
type Server struct {
	registry   *table.Registry
	logger     zerolog.Logger
	upgrader   websocket.Upgrader
	httpServer *http.Server

	mu          sync.Mutex
	connections map[*Connection]struct{}
	closing     bool
	wg          sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithCheckOrigin restricts which browser origins may open a socket. All
// origins are accepted by default.
func WithCheckOrigin(check func(r *http.Request) bool) Option {
	return func(s *Server) { s.upgrader.CheckOrigin = check }
}

// NewServer creates a server for registry.
func NewServer(logger zerolog.Logger, registry *table.Registry, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		logger:   logger.With().Str("component", "server").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes served by s.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info().Str("addr", l.Addr().String()).Msg("Starting blackjack server")
	err := s.httpServer.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting players, drops every connection and waits for the
// tables to wind down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	conns := make([]*Connection, 0, len(s.connections))
	for c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	httpErr := s.httpServer.Shutdown(ctx)
	for _, c := range conns {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := s.registry.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tables: %w", err)
	}
	s.logger.Info().Int("connections_closed", len(conns)).Msg("Server stopped")
	return httpErr
}

// ConnectionCount returns the number of open player sockets.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

// SaveStats writes the registry's stats snapshot to path as JSON.
func (s *Server) SaveStats(path string) error {
	stats := s.registry.Stats()
	if err := fileutil.WriteJSONAtomic(path, stats, 0o644); err != nil {
		return err
	}
	s.logger.Info().Str("path", path).Int("tables", stats.Tables).Msg("Saved stats")
	return nil
}

func (s *Server) register(c *Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.connections[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) unregister(c *Connection) {
	s.mu.Lock()
	delete(s.connections, c)
	total := len(s.connections)
	s.mu.Unlock()
	s.wg.Done()
	s.logger.Info().Str("actor", c.actor.ID).Int("total", total).Msg("Client disconnected")
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	c := NewConnection(ws, s.registry, s.logger)
	if !s.register(c) {
		c.Close()
		return
	}
	s.logger.Info().Str("actor", c.actor.ID).Str("remote", r.RemoteAddr).Msg("Client connected")

	go c.writePump()
	go func() {
		c.readPump()
		s.unregister(c)
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.registry.Stats()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode stats")
	}
}
