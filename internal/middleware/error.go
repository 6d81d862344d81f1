package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	apperrors "github.com/thereayou/direct-chat/pkg/errors"
	"github.com/thereayou/direct-chat/pkg/logger"
)

// ErrorHandler recovers panics and renders errors attached with c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			c.JSON(appErr.Code, gin.H{"error": appErr.Message})
			return
		}

		logger.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled request error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
