// internal/httpserver/hub.go
//
// Live match event stream.
// Responsibilities:
//   - Keep websocket subscribers grouped by match id.
//   - Fan out engine events as {type, payload, timestamp} envelopes.
//   - Drop subscribers whose send buffer is full.
//   - Read/write pumps with ping/pong keepalive.

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// subscriber is one websocket connection watching a match.
type subscriber struct {
	conn      *websocket.Conn
	room      string
	send      chan []byte
	closeOnce sync.Once
}

func (c *subscriber) close() { c.closeOnce.Do(func() { close(c.send) }) }

// hub maps match ids to their subscribers.
type hub struct {
	mu    sync.Mutex
	rooms map[string]map[*subscriber]bool
}

func newHub() *hub {
	return &hub{rooms: map[string]map[*subscriber]bool{}}
}

func (h *hub) join(c *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[c.room] == nil {
		h.rooms[c.room] = map[*subscriber]bool{}
	}
	h.rooms[c.room][c] = true
}

func (h *hub) leave(c *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}

// remove requires h.mu.
func (h *hub) remove(c *subscriber) {
	if clients := h.rooms[c.room]; clients != nil {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, c.room)
		}
	}
	c.close()
}

// subscribers returns how many connections watch room.
func (h *hub) subscribers(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

func envelope(typ string, payload any) ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":      typ,
		"payload":   payload,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// publish sends one envelope to every subscriber of room.
func (h *hub) publish(room, typ string, payload any) {
	data, err := envelope(typ, payload)
	if err != nil {
		log.Error().Err(err).Str("room", room).Str("type", typ).Msg("ws marshal")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[room] {
		select {
		case c.send <- data:
		default:
			h.remove(c)
		}
	}
}

// closeRoom disconnects everyone watching room.
func (h *hub) closeRoom(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[room] {
		h.remove(c)
	}
}

// ------------------------------ handler ------------------------------------

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == s.cfg.ClientOrigin
		},
	}
}

// handleEvents upgrades to a websocket and streams the match's events.
// The current view goes to the new subscriber alone, ahead of any event.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, owner, err := s.store.Get(r.Context(), id)
	if err != nil || owner == "" || owner != s.requestOwner(r) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("match", id).Msg("ws upgrade")
		return
	}
	c := &subscriber{conn: conn, room: id, send: make(chan []byte, sendBuffer)}
	if data, err := envelope("match", s.view(m)); err == nil {
		c.send <- data
	}
	s.hub.join(c)

	go writePump(c)
	readPump(s.hub, c)
}

// readPump discards client messages and keeps the read deadline fresh.
func readPump(h *hub, c *subscriber) {
	defer func() {
		h.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(c *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Msg("ws ping")
				return
			}
		}
	}
}
