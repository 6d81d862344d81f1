package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/direct-chat/internal/handlers/dto"
	"github.com/thereayou/direct-chat/internal/middleware"
	"github.com/thereayou/direct-chat/internal/services"
	apperrors "github.com/thereayou/direct-chat/pkg/errors"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), services.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Image:    req.Image,
	})
	if errors.Is(err, services.ErrEmailTaken) {
		c.Error(apperrors.Conflict(err.Error()))
		return
	}
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login issues a session token and touches lastSeen.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.Error(apperrors.Unauthorized("invalid credentials"))
		return
	}
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
		User:      resp.User,
	})
}

// Logout blacklists the presented token until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(middleware.TokenKey)

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
