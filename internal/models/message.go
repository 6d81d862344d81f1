package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index:idx_message_conversation_created,priority:1" json:"conversationId"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null" json:"senderId"`
	ReceiverID     uuid.UUID `gorm:"type:uuid;not null" json:"receiverId"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"index:idx_message_conversation_created,priority:2" json:"createdAt"`

	Sender User `gorm:"foreignKey:SenderID" json:"-"`
}

// BeforeCreate assigns a time-ordered id, so messages sharing a timestamp
// still list in insertion order.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}
