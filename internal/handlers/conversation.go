package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/direct-chat/internal/database"
	"github.com/thereayou/direct-chat/internal/handlers/dto"
	"github.com/thereayou/direct-chat/internal/middleware"
	"github.com/thereayou/direct-chat/internal/services"
	apperrors "github.com/thereayou/direct-chat/pkg/errors"
	"github.com/thereayou/direct-chat/pkg/logger"
)

type ConversationHandler struct {
	users         services.UserStore
	conversations services.ConversationStore
}

func NewConversationHandler(users services.UserStore, conversations services.ConversationStore) *ConversationHandler {
	return &ConversationHandler{users: users, conversations: conversations}
}

// ListConversations returns the caller's conversations, most recently
// active first.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	conversations, err := h.conversations.ListUserConversations(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, conversations)
}

// CreateConversation finds or creates the conversation between the caller and
// the user registered under the given email.
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var req dto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	peer, err := h.users.FindUserByEmail(c.Request.Context(), services.NormalizeEmail(req.Email))
	if errors.Is(err, database.ErrNotFound) {
		c.Error(apperrors.NotFound("user not found"))
		return
	}
	if err != nil {
		c.Error(err)
		return
	}

	conv, created, err := h.conversations.FindOrCreateConversation(c.Request.Context(), userID, peer.ID)
	if errors.Is(err, database.ErrSelfConversation) {
		c.Error(apperrors.BadRequest(err.Error()))
		return
	}
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		logger.Info().
			Str("conversation_id", conv.ID.String()).
			Str("user_id", userID.String()).
			Str("peer_id", peer.ID.String()).
			Msg("conversation created")
	}
	c.JSON(status, conv)
}

func (h *ConversationHandler) GetConversation(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NotFound("conversation not found"))
		return
	}

	conv, err := h.conversations.GetConversationFor(c.Request.Context(), conversationID, userID)
	if errors.Is(err, database.ErrNotFound) {
		c.Error(apperrors.NotFound("conversation not found"))
		return
	}
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, conv)
}
