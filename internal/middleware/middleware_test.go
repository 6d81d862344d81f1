package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	apperrors "github.com/thereayou/direct-chat/pkg/errors"
)

type staticValidator struct {
	token  string
	userID uuid.UUID
}

func (v staticValidator) Validate(_ context.Context, token string) (uuid.UUID, error) {
	if token != v.token {
		return uuid.Nil, errors.New("invalid")
	}
	return v.userID, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	r := gin.New()
	r.GET("/me", AuthMiddleware(staticValidator{token: "good", userID: userID}), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c).String())
	})

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic good", http.StatusUnauthorized},
		{"invalid", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, userID.String(), w.Body.String())
			}
		})
	}
}

func TestExtractTokenPrefersQuery(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ws?token=from-query", nil)
	c.Request.Header.Set("Authorization", "Bearer from-header")

	assert.Equal(t, "from-query", ExtractToken(c))

	c.Request = httptest.NewRequest(http.MethodGet, "/ws", nil)
	c.Request.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", ExtractToken(c))
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/app", func(c *gin.Context) { c.Error(apperrors.Unprocessable("bad content")) })
	r.GET("/plain", func(c *gin.Context) { c.Error(errors.New("db exploded")) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	cases := map[string]int{
		"/app":   http.StatusUnprocessableEntity,
		"/plain": http.StatusInternalServerError,
		"/panic": http.StatusInternalServerError,
	}
	for path, code := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, code, w.Code, path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.NotContains(t, w.Body.String(), "db exploded")
}

func TestRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(60, 2)
	r := gin.New()
	r.POST("/auth/login", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	limiter.Cleanup(-time.Second)
	assert.Empty(t, limiter.ips)
}
