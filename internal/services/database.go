package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/direct-chat/internal/models"
)

// UserStore is the user side of the persistence gateway.
type UserStore interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ConversationStore is the conversation side of the persistence gateway.
type ConversationStore interface {
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	GetConversationFor(ctx context.Context, id, userID uuid.UUID) (*models.Conversation, error)
	FindOrCreateConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, bool, error)
	TouchConversation(ctx context.Context, id uuid.UUID, at time.Time) error
	ListUserConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
}

// MessageStore is the message side of the persistence gateway.
type MessageStore interface {
	CreateMessage(ctx context.Context, message *models.Message) error
	ListConversationMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
}

// Store is everything the services need from the database. It is satisfied
// by *database.Database.
type Store interface {
	UserStore
	ConversationStore
	MessageStore
}
