package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/thereayou/direct-chat/internal/middleware"
	ws "github.com/thereayou/direct-chat/internal/websocket"
	"github.com/thereayou/direct-chat/pkg/logger"
)

// WebSocketHandler upgrades /ws requests into realtime sessions.
type WebSocketHandler struct {
	hub         *ws.Hub
	session     *SessionHandler
	validator   middleware.TokenValidator
	trustUserID bool
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler accepts origins from the allow list; an empty list
// accepts any origin.
func NewWebSocketHandler(hub *ws.Hub, session *SessionHandler, validator middleware.TokenValidator, origins []string, trustUserID bool) *WebSocketHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return &WebSocketHandler{
		hub:         hub,
		session:     session,
		validator:   validator,
		trustUserID: trustUserID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin] || allowed["*"]
			},
		},
	}
}

// HandleWebSocket resolves the identity before upgrading: an invalid token is
// refused with 401, a missing one yields an anonymous session.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := uuid.Nil
	token := middleware.ExtractToken(c)

	switch {
	case token != "":
		id, err := h.validator.Validate(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID = id

	case h.trustUserID && c.Query("userId") != "":
		id, err := uuid.Parse(c.Query("userId"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			return
		}
		userID = id
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, userID, token)
	h.session.Connect(client)

	go client.WritePump()
	go client.ReadPump(h.session)
}
