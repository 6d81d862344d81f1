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
)

type UserHandler struct {
	users services.UserStore
}

func NewUserHandler(users services.UserStore) *UserHandler {
	return &UserHandler{users: users}
}

// GetMe returns the authenticated user.
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if errors.Is(err, database.ErrNotFound) {
		c.Error(apperrors.NotFound("user not found"))
		return
	}
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetStatus returns the durable presence of a user.
func (h *UserHandler) GetStatus(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NotFound("user not found"))
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if errors.Is(err, database.ErrNotFound) {
		c.Error(apperrors.NotFound("user not found"))
		return
	}
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.UserStatusResponse{
		ID:       user.ID,
		IsOnline: user.IsOnline,
		LastSeen: user.LastSeen,
	})
}
