package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks live websocket sessions keyed by principal id (driver,
// requester, or admin) and pushes lifecycle events to the principals an
// event names in its payload.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	log      *slog.Logger
}

type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// NewHub creates an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{sessions: make(map[string]*session), log: log}
}

// Add registers a connection for a principal, replacing any previous one.
func (h *Hub) Add(principalID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.sessions[principalID]; ok {
		_ = old.conn.Close()
	}
	h.sessions[principalID] = &session{conn: conn}
}

// Remove drops a principal's session.
func (h *Hub) Remove(principalID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, principalID)
}

// recipientKeys are the payload fields that name interested principals.
var recipientKeys = []string{"driver_id", "requester_id", "admin_id"}

// Notify pushes the event to every connected principal the payload
// names. Disconnected or failing sessions are dropped.
func (h *Hub) Notify(ctx context.Context, event Event, payload map[string]any) {
	msg := map[string]any{"event": string(event), "payload": payload}

	for _, key := range recipientKeys {
		id, ok := payload[key].(string)
		if !ok || id == "" {
			continue
		}

		h.mu.RLock()
		sess, connected := h.sessions[id]
		h.mu.RUnlock()
		if !connected {
			continue
		}

		if err := sess.send(msg); err != nil {
			h.log.Warn("dropping dead websocket session", "principal_id", id, "error", err)
			h.Remove(id)
		}
	}
}
