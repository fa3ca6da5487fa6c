// Package feed serves read-only simulation snapshots over HTTP and
// websocket for an external renderer.
package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/ardalan-sia/planar-traffic/pkg/graph"
	"github.com/ardalan-sia/planar-traffic/pkg/simulation"
)

// Source is what the feed reads from. simulation.Runner satisfies it.
type Source interface {
	Snapshot() simulation.Snapshot
	Stats() simulation.Stats
}

const clientBuffer = 8

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server exposes a Source.
type Server struct {
	src    Source
	push   time.Duration
	logger *log.Logger

	router   *mux.Router
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// New builds the routes. push is the websocket broadcast period.
func New(src Source, push time.Duration, logger *log.Logger) *Server {
	s := &Server{
		src:     src,
		push:    push,
		logger:  logger,
		router:  mux.NewRouter(),
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.router.HandleFunc("/api/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	s.router.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/api/nodes/{id:[0-9]+}", s.handleNode).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWS)
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Run broadcasts a snapshot to every websocket client each push period
// until ctx is done.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.push)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case <-ticker.C:
			if s.ClientCount() > 0 {
				s.Broadcast(s.src.Snapshot())
			}
		}
	}
}

// Broadcast sends v to every client. Clients that are not keeping up
// miss the message.
func (s *Server) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to marshal broadcast", "err", err)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.logger.Debug("websocket client is slow, skipping message", "remote", c.conn.RemoteAddr())
		}
	}
}

// ClientCount returns the number of connected websocket clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.src.Snapshot())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.src.Stats()
	writeJSON(w, http.StatusOK, struct {
		simulation.Stats
		AvgHops float64 `json:"avg_hops"`
	}{st, st.AvgHops()})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid node id"})
		return
	}
	snap := s.src.Snapshot()
	if id < 0 || id >= len(snap.Nodes) || snap.Nodes[id].ID != graph.NodeID(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "node not found"})
		return
	}
	writeJSON(w, http.StatusOK, snap.Nodes[id])
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	// The first frame is the current state so a renderer can draw at once.
	if data, err := json.Marshal(s.src.Snapshot()); err == nil {
		c.send <- data
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Debug("websocket client connected", "remote", conn.RemoteAddr(), "total", s.ClientCount())

	go s.writeLoop(c)

	// Drain and discard inbound frames until the peer goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.drop(c)
}

func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.drop(c)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
		s.logger.Debug("websocket client disconnected", "remote", c.conn.RemoteAddr(), "total", len(s.clients))
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
