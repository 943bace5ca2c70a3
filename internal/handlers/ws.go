package handlers

import (
	"log"
	"net/http"
	"time"

	"imposter-game-backend/internal/services"
	"imposter-game-backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	hub            *ws.Hub
	sessionService *services.SessionService
}

func NewWSHandler(hub *ws.Hub, sessionService *services.SessionService) *WSHandler {
	return &WSHandler{hub: hub, sessionService: sessionService}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket godoc
// @Summary      WebSocket connection for session updates
// @Description  Connect via WebSocket to receive session events. The current state is sent first.
// @Tags         websocket
// @Param        id path string true "Session ID"
// @Router       /ws/session/{id} [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	sessionID := c.Param("id")
	state, err := h.sessionService.GetState(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(ws.WriteWait))
	if err := conn.WriteJSON(ws.WSMessage{Type: "state", Data: state}); err != nil {
		conn.Close()
		return
	}
	h.hub.AddConnection(sessionID, conn)
	defer h.hub.RemoveConnection(sessionID, conn)

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}
