package handlers

import (
	"net/http"

	"relay-service/internal/websocket"
	"relay-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type WSHandler struct {
	hub *websocket.Hub
}

func NewWSHandler(hub *websocket.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// HandleWebSocket upgrades an authenticated handshake and hands the
// connection to the hub. WSAuthMiddleware has already verified the
// credential and stored the identity claims in the context.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")
	username := c.GetString("username")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, response.Reject(response.CodeNoToken, ""))
		return
	}

	websocket.ServeWS(h.hub, c.Writer, c.Request, userID, username)
}
