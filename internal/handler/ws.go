package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"charter/internal/notify"
)

// WSHandler upgrades lifecycle-event subscriptions to websockets.
type WSHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *notify.Hub, log *slog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Subscribe handles GET /v1/ws/:principal_id
//
// The connection receives every lifecycle event addressed to the
// principal. The read loop exists only to observe the close.
func (h *WSHandler) Subscribe(c *gin.Context) {
	principalID := c.Param("principal_id")
	if principalID == "" {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: "principal id required"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "principal_id", principalID, "error", err)
		return
	}

	h.hub.Add(principalID, conn)

	go func() {
		defer func() {
			h.hub.Remove(principalID)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
