package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/direct-chat/internal/models"
)

// MessageResponse is a message together with its sender's public profile.
type MessageResponse struct {
	ID             uuid.UUID             `json:"id"`
	ConversationID uuid.UUID             `json:"conversationId"`
	SenderID       uuid.UUID             `json:"senderId"`
	ReceiverID     uuid.UUID             `json:"receiverId"`
	Content        string                `json:"content"`
	CreatedAt      time.Time             `json:"createdAt"`
	Sender         *models.PublicProfile `json:"sender,omitempty"`
}

func NewMessageResponse(m *models.Message) MessageResponse {
	resp := MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	if m.Sender.ID != uuid.Nil {
		profile := m.Sender.Profile()
		resp.Sender = &profile
	}
	return resp
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type CreateConversationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type UserStatusResponse struct {
	ID       uuid.UUID  `json:"id"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen"`
}

// ConversationRef is the payload of join-conversation and
// leave-conversation. It accepts a bare id string or {"conversationId": id}.
type ConversationRef struct {
	ConversationID uuid.UUID `json:"conversationId"`
}

func (r *ConversationRef) UnmarshalJSON(data []byte) error {
	var id uuid.UUID
	if err := json.Unmarshal(data, &id); err == nil {
		r.ConversationID = id
		return nil
	}

	type plain ConversationRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ConversationRef(p)
	return nil
}

type SendMessagePayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
	Content        string    `json:"content"`
}

type TypingPayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
	IsTyping       bool      `json:"isTyping"`
}

// Outbound realtime payloads.

type UserTypingEvent struct {
	UserID         uuid.UUID `json:"userId"`
	IsTyping       bool      `json:"isTyping"`
	ConversationID uuid.UUID `json:"conversationId"`
}

type StatusChangeEvent struct {
	UserID   uuid.UUID `json:"userId"`
	IsOnline bool      `json:"isOnline"`
}

type ConversationTouchedEvent struct {
	ConversationID uuid.UUID `json:"conversationId"`
}
