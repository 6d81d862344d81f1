package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thereayou/direct-chat/internal/config"
	"github.com/thereayou/direct-chat/internal/handlers"
	"github.com/thereayou/direct-chat/internal/middleware"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Users         *handlers.UserHandler
	Conversations *handlers.ConversationHandler
	Messages      *handlers.HTTPMessageHandler
	WebSocket     *handlers.WebSocketHandler
}

func NewRouter(cfg *config.Config, validator middleware.TokenValidator, limiter *middleware.IPRateLimiter, h Handlers, health gin.HandlerFunc) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.Origins()))

	r.GET("/health", health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", h.WebSocket.HandleWebSocket)

	APIEndpoints(r, validator, limiter, h)
	return r
}

func APIEndpoints(r *gin.Engine, validator middleware.TokenValidator, limiter *middleware.IPRateLimiter, h Handlers) {
	authRequired := middleware.AuthMiddleware(validator)

	auth := r.Group("/auth")
	{
		auth.POST("/register", limiter.Middleware(), h.Auth.Register)
		auth.POST("/login", limiter.Middleware(), h.Auth.Login)
		auth.POST("/logout", authRequired, h.Auth.Logout)
	}

	api := r.Group("/api", authRequired)
	{
		api.GET("/users/me", h.Users.GetMe)
		api.GET("/users/:id/status", h.Users.GetStatus)

		api.GET("/conversations", h.Conversations.ListConversations)
		api.POST("/conversations", h.Conversations.CreateConversation)
		api.GET("/conversations/:id", h.Conversations.GetConversation)
		api.GET("/conversations/:id/messages", h.Messages.GetMessages)
		api.POST("/conversations/:id/messages", h.Messages.SendMessage)
	}
}
