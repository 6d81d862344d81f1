package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/direct-chat/internal/handlers/dto"
	"github.com/thereayou/direct-chat/internal/metrics"
	"github.com/thereayou/direct-chat/internal/middleware"
	"github.com/thereayou/direct-chat/internal/services"
	apperrors "github.com/thereayou/direct-chat/pkg/errors"
)

// HTTPMessageHandler serves message history and the request/response send
// path. Messages sent here are persisted but not broadcast.
type HTTPMessageHandler struct {
	messages *services.MessageService
}

func NewHTTPMessageHandler(messages *services.MessageService) *HTTPMessageHandler {
	return &HTTPMessageHandler{messages: messages}
}

// GetMessages returns the full history of a conversation, oldest first.
func (h *HTTPMessageHandler) GetMessages(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NotFound("conversation not found"))
		return
	}

	messages, err := h.messages.History(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.Error(messageError(err))
		return
	}

	result := make([]dto.MessageResponse, len(messages))
	for i := range messages {
		result[i] = dto.NewMessageResponse(&messages[i])
	}

	c.JSON(http.StatusOK, result)
}

func (h *HTTPMessageHandler) SendMessage(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NotFound("conversation not found"))
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	message, _, err := h.messages.Send(c.Request.Context(), conversationID, userID, req.Content)
	if err != nil {
		c.Error(messageError(err))
		return
	}
	metrics.RecordMessage("http")

	c.JSON(http.StatusCreated, dto.NewMessageResponse(message))
}

// messageError maps message service failures onto HTTP errors. A
// conversation the caller does not take part in is reported as missing.
func messageError(err error) error {
	switch {
	case errors.Is(err, services.ErrConversationNotFound), errors.Is(err, services.ErrNotParticipant):
		return apperrors.NotFound("conversation not found")
	case errors.Is(err, services.ErrEmptyContent),
		errors.Is(err, services.ErrContentTooLong),
		errors.Is(err, services.ErrInvalidContent):
		return apperrors.Unprocessable(err.Error())
	}
	return err
}
