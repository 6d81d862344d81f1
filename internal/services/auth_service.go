package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thereayou/direct-chat/internal/clock"
	"github.com/thereayou/direct-chat/internal/database"
	"github.com/thereayou/direct-chat/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Image    string
}

type AuthResponse struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// TokenIssuer signs and revokes session tokens.
type TokenIssuer interface {
	Generate(userID string) (string, time.Time, error)
}

type TokenRevoker interface {
	Revoke(ctx context.Context, token string) error
}

// AuthService registers users and manages their session tokens.
type AuthService struct {
	users   UserStore
	issuer  TokenIssuer
	revoker TokenRevoker
	clock   clock.Clock
	cost    int
}

func NewAuthService(users UserStore, issuer TokenIssuer, revoker TokenRevoker, clk clock.Clock) *AuthService {
	if clk == nil {
		clk = clock.Real()
	}
	return &AuthService{
		users:   users,
		issuer:  issuer,
		revoker: revoker,
		clock:   clk,
		cost:    bcrypt.DefaultCost,
	}
}

// WithCost overrides the bcrypt cost, tests use bcrypt.MinCost.
func (s *AuthService) WithCost(cost int) *AuthService {
	s.cost = cost
	return s
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	email := NormalizeEmail(req.Email)

	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		Image:        req.Image,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.users.SaveUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// Login checks the password, touches lastSeen and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	user, err := s.users.FindUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.clock.Now()
	if err := s.users.UpdateLastSeen(ctx, user.ID, now); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("update last seen: %w", err)
	}
	user.LastSeen = &now

	token, expiresAt, err := s.issuer.Generate(user.ID.String())
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &AuthResponse{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout revokes token until it expires.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.revoker.Revoke(ctx, token); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
