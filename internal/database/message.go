package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/direct-chat/internal/models"
)

func (d *Database) CreateMessage(ctx context.Context, message *models.Message) error {
	return d.db.WithContext(ctx).Create(message).Error
}

func (d *Database) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var message models.Message
	if err := d.db.WithContext(ctx).Preload("Sender").First(&message, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &message, nil
}

// ListConversationMessages returns the full history of a conversation, oldest
// first, with senders loaded.
func (d *Database) ListConversationMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message

	err := d.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("id ASC").
		Preload("Sender").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	return messages, nil
}
