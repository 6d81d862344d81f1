package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/direct-chat/internal/backplane"
	"github.com/thereayou/direct-chat/internal/clock"
	"github.com/thereayou/direct-chat/internal/config"
	"github.com/thereayou/direct-chat/internal/database"
	"github.com/thereayou/direct-chat/internal/handlers"
	"github.com/thereayou/direct-chat/internal/middleware"
	"github.com/thereayou/direct-chat/internal/presence"
	"github.com/thereayou/direct-chat/internal/services"
	"github.com/thereayou/direct-chat/internal/websocket"
	"github.com/thereayou/direct-chat/pkg/auth"
	"github.com/thereayou/direct-chat/pkg/logger"
)

type Server struct {
	Config     *config.Config
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager
	Hub        *websocket.Hub
	Presence   *presence.Tracker

	limiter *middleware.IPRateLimiter
	http    *http.Server
}

func NewServer(cfg *config.Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	dbConn := &database.Database{}
	if err := dbConn.Connect(cfg.DBURL); err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	clk := clock.Real()

	tracker := presence.NewTracker(dbConn, clk)
	clearStalePresence(context.Background(), tracker, cfg.Backplane)

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	validator := auth.NewValidator(jwtMgr, auth.NewRedisBlacklist(rdb))

	hub := websocket.NewHub()
	if err := useBackplane(hub, cfg, rdb); err != nil {
		return nil, err
	}

	messageService := services.NewMessageService(dbConn, dbConn, clk, cfg.MaxMessageLength)
	authService := services.NewAuthService(dbConn, jwtMgr, validator, clk)

	session := handlers.NewSessionHandler(hub, messageService, tracker, validator, cfg.EventTimeout)

	s := &Server{
		Config:     cfg,
		DB:         dbConn,
		Redis:      rdb,
		JWTManager: jwtMgr,
		Hub:        hub,
		Presence:   tracker,
		limiter:    middleware.NewIPRateLimiter(cfg.AuthRatePerMinute, 5),
	}

	s.Router = NewRouter(cfg, validator, s.limiter, Handlers{
		Auth:          handlers.NewAuthHandler(authService),
		Users:         handlers.NewUserHandler(dbConn),
		Conversations: handlers.NewConversationHandler(dbConn, dbConn),
		Messages:      handlers.NewHTTPMessageHandler(messageService),
		WebSocket:     handlers.NewWebSocketHandler(hub, session, validator, cfg.Origins(), cfg.TrustUserID),
	}, s.health)

	return s, nil
}

func useBackplane(hub *websocket.Hub, cfg *config.Config, rdb *redis.Client) error {
	switch cfg.Backplane {
	case "", "none":
		return nil
	case "redis":
		hub.UseBackplane(backplane.NewRedis(rdb, cfg.RedisChannel))
	case "nats":
		bp, err := backplane.ConnectNATS(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		hub.UseBackplane(bp)
	default:
		return fmt.Errorf("unknown BACKPLANE %q", cfg.Backplane)
	}

	logger.Info().Str("backplane", cfg.Backplane).Str("node_id", hub.NodeID()).Msg("backplane enabled")
	return nil
}

// clearStalePresence marks every user offline after a restart. With a
// backplane other nodes still hold live connections, so the flags are left
// alone and fix themselves on the next connect or disconnect.
func clearStalePresence(ctx context.Context, tracker *presence.Tracker, backplane string) bool {
	if backplane != "" && backplane != "none" {
		logger.Info().Str("backplane", backplane).Msg("presence reset skipped, other nodes may hold connections")
		return false
	}

	n, err := tracker.Reset(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to reset presence")
		return false
	}
	if n > 0 {
		logger.Info().Int64("users", n).Msg("stale presence cleared")
	}
	return true
}

func (s *Server) health(c *gin.Context) {
	checks := gin.H{"database": "ok", "redis": "ok"}
	status := http.StatusOK

	if err := s.DB.Ping(c.Request.Context()); err != nil {
		checks["database"] = "error"
		status = http.StatusServiceUnavailable
	}
	if err := s.Redis.Ping(c.Request.Context()).Err(); err != nil {
		checks["redis"] = "error"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":      http.StatusText(status),
		"checks":      checks,
		"connections": s.Hub.Registry().Count(),
	})
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.Hub.Run()
	go s.cleanupLimiter(ctx)

	s.http = &http.Server{
		Addr:        ":" + s.Config.Port,
		Handler:     s.Router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", s.Config.Port).Msg("server starting")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.http.Shutdown(shutdownCtx)
	s.Hub.Stop()
	return err
}

func (s *Server) cleanupLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.Cleanup(10 * time.Minute)
		}
	}
}

func (s *Server) Close() {
	if err := s.Redis.Close(); err != nil {
		logger.Warn().Err(err).Msg("redis close failed")
	}
	if err := s.DB.Close(); err != nil {
		logger.Warn().Err(err).Msg("database close failed")
	}
}
