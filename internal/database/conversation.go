package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/direct-chat/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSelfConversation is returned when both sides of a pair are the same user.
var ErrSelfConversation = errors.New("cannot create conversation with yourself")

func (d *Database) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := d.db.WithContext(ctx).
		Preload("UserA").
		Preload("UserB").
		First(&conv, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &conv, nil
}

// GetConversationFor returns the conversation only if userID participates in
// it; otherwise ErrNotFound.
func (d *Database) GetConversationFor(ctx context.Context, id, userID uuid.UUID) (*models.Conversation, error) {
	conv, err := d.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotFound
	}
	return conv, nil
}

func (d *Database) FindConversationByPair(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	a, b = models.NormalizePair(a, b)

	var conv models.Conversation
	err := d.db.WithContext(ctx).
		Preload("UserA").
		Preload("UserB").
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		First(&conv).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &conv, nil
}

// FindOrCreateConversation returns the single conversation for the unordered
// pair (a, b), creating it if needed. Creation is an insert that ignores a
// conflict on the pair index followed by a read, so concurrent initiation from
// both sides yields the same record.
func (d *Database) FindOrCreateConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, bool, error) {
	if a == b {
		return nil, false, ErrSelfConversation
	}

	conv, err := d.FindConversationByPair(ctx, a, b)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	userA, userB := models.NormalizePair(a, b)
	fresh := &models.Conversation{UserAID: userA, UserBID: userB}
	res := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
			DoNothing: true,
		}).
		Create(fresh)
	if res.Error != nil {
		return nil, false, res.Error
	}

	conv, err = d.FindConversationByPair(ctx, a, b)
	if err != nil {
		return nil, false, err
	}
	return conv, res.RowsAffected > 0, nil
}

func (d *Database) TouchConversation(ctx context.Context, id uuid.UUID, at time.Time) error {
	return d.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", at).Error
}

// ListUserConversations returns the conversations of userID ordered by last
// activity, newest first, each with its most recent message attached.
func (d *Database) ListUserConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := d.db.WithContext(ctx).
		Preload("UserA").
		Preload("UserB").
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}

	for i := range conversations {
		last, err := d.lastMessage(ctx, conversations[i].ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		conversations[i].LastMessage = last
	}

	return conversations, nil
}

func (d *Database) lastMessage(ctx context.Context, conversationID uuid.UUID) (*models.Message, error) {
	var msg models.Message
	err := d.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Order("id DESC").
		Take(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
