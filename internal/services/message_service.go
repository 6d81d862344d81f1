package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/thereayou/direct-chat/internal/clock"
	"github.com/thereayou/direct-chat/internal/database"
	"github.com/thereayou/direct-chat/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("user is not a participant of the conversation")
)

// MessageService is the single write path for chat messages, shared by the
// realtime and the request/response surfaces.
type MessageService struct {
	conversations ConversationStore
	messages      MessageStore
	clock         clock.Clock
	maxLength     int
}

func NewMessageService(conversations ConversationStore, messages MessageStore, clk clock.Clock, maxLength int) *MessageService {
	if clk == nil {
		clk = clock.Real()
	}
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		clock:         clk,
		maxLength:     maxLength,
	}
}

func (s *MessageService) MaxLength() int {
	return s.maxLength
}

// Authorize returns the conversation if userID participates in it.
func (s *MessageService) Authorize(ctx context.Context, conversationID, userID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.conversations.GetConversation(ctx, conversationID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// Send validates and persists one message from senderID and bumps the
// conversation's last activity. The receiver is the other participant.
func (s *MessageService) Send(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*models.Message, *models.Conversation, error) {
	if err := ValidateContent(content, s.maxLength); err != nil {
		return nil, nil, err
	}

	conv, err := s.Authorize(ctx, conversationID, senderID)
	if err != nil {
		return nil, nil, err
	}

	receiverID, _ := conv.OtherParticipant(senderID)
	message := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		CreatedAt:      s.clock.Now(),
	}

	if err := s.messages.CreateMessage(ctx, message); err != nil {
		return nil, nil, fmt.Errorf("save message: %w", err)
	}

	if err := s.conversations.TouchConversation(ctx, conv.ID, message.CreatedAt); err != nil {
		return nil, nil, fmt.Errorf("touch conversation: %w", err)
	}
	conv.UpdatedAt = message.CreatedAt

	if conv.UserAID == senderID {
		message.Sender = conv.UserA
	} else {
		message.Sender = conv.UserB
	}

	return message, conv, nil
}

// History returns the messages of a conversation the user participates in.
func (s *MessageService) History(ctx context.Context, conversationID, userID uuid.UUID) ([]models.Message, error) {
	if _, err := s.Authorize(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.messages.ListConversationMessages(ctx, conversationID)
}
