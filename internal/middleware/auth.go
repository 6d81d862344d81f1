package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/direct-chat/pkg/auth"
	apperrors "github.com/thereayou/direct-chat/pkg/errors"
)

const (
	UserIDKey = "userID"
	TokenKey  = "token"
)

// TokenValidator resolves a session token to a user id.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (uuid.UUID, error)
}

// AuthMiddleware requires a valid bearer token.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(apperrors.ErrUnauthorized.Code, gin.H{"error": "missing or invalid token"})
			return
		}

		userID, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(apperrors.ErrUnauthorized.Code, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(TokenKey, token)
		c.Next()
	}
}

// ExtractToken reads the session token from the token query parameter or the
// Authorization header. Browsers cannot set headers on websocket handshakes,
// hence the query parameter.
func ExtractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	return bearerToken(c)
}

func bearerToken(c *gin.Context) string {
	token, err := auth.ExtractTokenFromHeader(c.Request)
	if err != nil {
		return ""
	}
	return token
}

// CurrentUserID returns the identity set by AuthMiddleware.
func CurrentUserID(c *gin.Context) uuid.UUID {
	return c.MustGet(UserIDKey).(uuid.UUID)
}
