package ws

import (
	"flota_console/internal/logger"
	"flota_console/internal/middleware"
	"flota_console/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type WebSocketHandler struct {
	Hub *Hub
}

func NewWebSocketHandler(hub *Hub) *WebSocketHandler {
	return &WebSocketHandler{Hub: hub}
}

// ServeWS upgrades a signed-in request and streams its workspace events.
// It must run behind SessionMiddleware.
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	live, ok := middleware.GetSession(c)
	if !ok {
		apperrors.HandleError(c, apperrors.ErrNotLoggedIn)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.CtxWithError(c.Request.Context(), "WebSocket upgrade failed", err)
		return
	}

	client := newClient(uuid.NewString(), live.ID, conn, h.Hub, live.Workspace)
	if !h.Hub.add(client) {
		client.close()
		conn.Close()
		return
	}
	logger.CtxInfo(c.Request.Context(), "Live view connected", "client_id", client.ID)

	go client.forwardPump()
	go client.writePump()
	go client.readPump()
}
