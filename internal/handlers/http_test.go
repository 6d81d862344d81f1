package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/direct-chat/internal/clock"
	"github.com/thereayou/direct-chat/internal/handlers/dto"
	"github.com/thereayou/direct-chat/internal/middleware"
	"github.com/thereayou/direct-chat/internal/models"
	"github.com/thereayou/direct-chat/internal/services"
	"github.com/thereayou/direct-chat/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

type memoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (b *memoryBlacklist) Revoke(_ context.Context, token string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[token] = ttl
	return nil
}

func (b *memoryBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.revoked[token]
	return ok, nil
}

type apiFixture struct {
	*sessionFixture
	router *gin.Engine
	jwt    *auth.JWTManager
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newSessionFixture(t)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	validator := auth.NewValidator(jwtManager, &memoryBlacklist{revoked: make(map[string]time.Duration)})

	clk := clock.NewFake(fixtureStart)
	messages := services.NewMessageService(f.db, f.db, clk, 1000)
	authService := services.NewAuthService(f.db, jwtManager, validator, clk).WithCost(bcrypt.MinCost)

	authH := NewAuthHandler(authService)
	users := NewUserHandler(f.db)
	conversations := NewConversationHandler(f.db, f.db)
	httpMessages := NewHTTPMessageHandler(messages)

	r := gin.New()
	r.Use(middleware.ErrorHandler())

	r.POST("/auth/register", authH.Register)
	r.POST("/auth/login", authH.Login)
	r.POST("/auth/logout", middleware.AuthMiddleware(validator), authH.Logout)

	api := r.Group("/api", middleware.AuthMiddleware(validator))
	api.GET("/users/me", users.GetMe)
	api.GET("/users/:id/status", users.GetStatus)
	api.GET("/conversations", conversations.ListConversations)
	api.POST("/conversations", conversations.CreateConversation)
	api.GET("/conversations/:id", conversations.GetConversation)
	api.GET("/conversations/:id/messages", httpMessages.GetMessages)
	api.POST("/conversations/:id/messages", httpMessages.SendMessage)

	return &apiFixture{sessionFixture: f, router: r, jwt: jwtManager}
}

func (f *apiFixture) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, _, err := f.jwt.Generate(user.ID.String())
	require.NoError(t, err)
	return token
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestAPIRequiresToken(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/conversations", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterLoginLogout(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/auth/register", "", dto.RegisterRequest{
		Name:     "Dave",
		Email:    "Dave@Example.com",
		Password: "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "passwordHash")

	w = f.do(t, http.MethodPost, "/auth/register", "", dto.RegisterRequest{
		Name:     "Dave again",
		Email:    "dave@example.com",
		Password: "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(t, http.MethodPost, "/auth/login", "", dto.LoginRequest{Email: "dave@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/auth/login", "", dto.LoginRequest{Email: "dave@example.com", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	assert.Equal(t, "dave@example.com", login.User.Email)
	assert.NotNil(t, login.User.LastSeen)

	w = f.do(t, http.MethodGet, "/api/users/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dave")

	w = f.do(t, http.MethodPost, "/auth/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/users/me", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateConversation(t *testing.T) {
	f := newAPIFixture(t)
	aliceToken := f.tokenFor(t, f.alice)
	carolToken := f.tokenFor(t, f.carol)

	w := f.do(t, http.MethodPost, "/api/conversations", aliceToken, dto.CreateConversationRequest{Email: "carol@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = f.do(t, http.MethodPost, "/api/conversations", carolToken, dto.CreateConversationRequest{Email: "ALICE@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	var found models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
	assert.Equal(t, created.ID, found.ID)

	w = f.do(t, http.MethodPost, "/api/conversations", aliceToken, dto.CreateConversationRequest{Email: "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/conversations", aliceToken, dto.CreateConversationRequest{Email: "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/conversations", aliceToken, map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(t, http.MethodGet, "/api/conversations", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestGetConversationHidesForeignConversations(t *testing.T) {
	f := newAPIFixture(t)
	path := "/api/conversations/" + f.conv.ID.String()

	w := f.do(t, http.MethodGet, path, f.tokenFor(t, f.bob), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice")

	w = f.do(t, http.MethodGet, path, f.tokenFor(t, f.carol), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, path+"/messages", f.tokenFor(t, f.carol), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/conversations/not-a-uuid", f.tokenFor(t, f.bob), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendMessageOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	path := "/api/conversations/" + f.conv.ID.String() + "/messages"
	aliceToken := f.tokenFor(t, f.alice)

	listener := f.connect(f.bob)
	f.join(t, listener)
	received(t, listener)

	w := f.do(t, http.MethodPost, path, aliceToken, dto.SendMessageRequest{Content: "first"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var msg dto.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, f.bob.ID, msg.ReceiverID)
	assert.True(t, msg.CreatedAt.Equal(fixtureStart))

	w = f.do(t, http.MethodPost, path, f.tokenFor(t, f.bob), dto.SendMessageRequest{Content: "second"})
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Empty(t, received(t, listener), "the request/response path does not broadcast")

	w = f.do(t, http.MethodPost, path, aliceToken, dto.SendMessageRequest{Content: "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(t, http.MethodPost, path, aliceToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(t, http.MethodPost, path, f.tokenFor(t, f.carol), dto.SendMessageRequest{Content: "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, path, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []dto.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[1].Content)
	require.NotNil(t, history[1].Sender)
	assert.Equal(t, "Bob", history[1].Sender.Name)
}

func TestUserStatus(t *testing.T) {
	f := newAPIFixture(t)
	token := f.tokenFor(t, f.alice)

	require.NoError(t, f.db.SetUserPresence(context.Background(), f.bob.ID, true, nil))

	w := f.do(t, http.MethodGet, "/api/users/"+f.bob.ID.String()+"/status", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status dto.UserStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, f.bob.ID, status.ID)
	assert.True(t, status.IsOnline)

	w = f.do(t, http.MethodGet, "/api/users/"+uuid.NewString()+"/status", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
