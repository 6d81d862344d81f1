package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is a direct conversation between exactly two users. The pair
// is stored normalized (UserAID < UserBID) so the unique index covers the
// unordered pair.
type Conversation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserAID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair" json:"userAId"`
	UserBID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair" json:"userBId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `gorm:"index" json:"updatedAt"`

	UserA       User     `gorm:"foreignKey:UserAID" json:"userA"`
	UserB       User     `gorm:"foreignKey:UserBID" json:"userB"`
	LastMessage *Message `gorm:"-" json:"lastMessage,omitempty"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// NormalizePair orders two user ids by their canonical string form.
func NormalizePair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if b.String() < a.String() {
		return b, a
	}
	return a, b
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// OtherParticipant returns the peer of userID. The second result is false if
// userID is not a participant.
func (c *Conversation) OtherParticipant(userID uuid.UUID) (uuid.UUID, bool) {
	switch userID {
	case c.UserAID:
		return c.UserBID, true
	case c.UserBID:
		return c.UserAID, true
	}
	return uuid.Nil, false
}
