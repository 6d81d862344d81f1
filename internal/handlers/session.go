package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/direct-chat/internal/handlers/dto"
	"github.com/thereayou/direct-chat/internal/metrics"
	"github.com/thereayou/direct-chat/internal/middleware"
	"github.com/thereayou/direct-chat/internal/presence"
	"github.com/thereayou/direct-chat/internal/services"
	"github.com/thereayou/direct-chat/internal/websocket"
	"github.com/thereayou/direct-chat/pkg/auth"
	"github.com/thereayou/direct-chat/pkg/logger"
)

const defaultEventTimeout = 10 * time.Second

// ErrSessionRevoked is returned when a session token stops validating while
// the connection is open. The connection is terminated.
var ErrSessionRevoked = errors.New("session token is no longer valid")

// ErrSessionUnverified is returned when the session token could not be
// checked. The event is dropped and the connection stays open.
var ErrSessionUnverified = errors.New("session token could not be verified")

// SessionHandler drives the realtime protocol of one process: it admits
// connections, tracks presence and handles inbound events.
type SessionHandler struct {
	hub       *websocket.Hub
	messages  *services.MessageService
	presence  *presence.Tracker
	validator middleware.TokenValidator
	timeout   time.Duration
}

func NewSessionHandler(hub *websocket.Hub, messages *services.MessageService, tracker *presence.Tracker, validator middleware.TokenValidator, timeout time.Duration) *SessionHandler {
	if timeout <= 0 {
		timeout = defaultEventTimeout
	}
	return &SessionHandler{
		hub:       hub,
		messages:  messages,
		presence:  tracker,
		validator: validator,
		timeout:   timeout,
	}
}

// Event handling outlives the connection: a disconnect does not cancel a
// write that is already in flight.
func (h *SessionHandler) eventContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.timeout)
}

// Connect admits a freshly upgraded connection. Connections without an
// identity are registered so shutdown closes them, but join no group.
func (h *SessionHandler) Connect(client *websocket.Client) {
	h.hub.Register(client)

	if client.UserID == uuid.Nil {
		client.SetState(websocket.StateAnonymous)
		logger.Debug().Str("client_id", client.ID.String()).Msg("anonymous connection")
		return
	}

	h.hub.Join(client, websocket.UserGroup(client.UserID))
	client.SetState(websocket.StateAuthenticated)

	ctx, cancel := h.eventContext()
	defer cancel()

	tr, changed, err := h.presence.Connect(ctx, client.UserID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", client.UserID.String()).Msg("failed to persist online presence")
		return
	}
	if changed {
		h.broadcastStatus(tr)
	}
}

// Disconnected releases everything the connection held.
func (h *SessionHandler) Disconnected(client *websocket.Client) {
	h.hub.Unregister(client)

	if client.UserID == uuid.Nil {
		return
	}

	ctx, cancel := h.eventContext()
	defer cancel()

	tr, changed, err := h.presence.Disconnect(ctx, client.UserID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", client.UserID.String()).Msg("failed to persist offline presence")
		return
	}
	if changed {
		h.broadcastStatus(tr)
	}
}

func (h *SessionHandler) broadcastStatus(tr presence.Transition) {
	payload := dto.StatusChangeEvent{UserID: tr.UserID, IsOnline: tr.Online}
	if err := h.hub.EmitGlobal(websocket.EventUserStatusChange, payload); err != nil {
		logger.Error().Err(err).Msg("failed to broadcast status change")
	}
}

func (h *SessionHandler) HandleEvent(client *websocket.Client, ev *websocket.Event) error {
	switch ev.Type {
	case websocket.EventJoinConversation:
		return h.handleJoin(client, ev)
	case websocket.EventLeaveConversation:
		return h.handleLeave(client, ev)
	case websocket.EventSendMessage:
		return h.handleSendMessage(client, ev)
	case websocket.EventTyping:
		return h.handleTyping(client, ev)
	default:
		return websocket.ErrInvalidEvent
	}
}

func (h *SessionHandler) handleJoin(client *websocket.Client, ev *websocket.Event) error {
	var ref dto.ConversationRef
	if err := json.Unmarshal(ev.Data, &ref); err != nil {
		return websocket.ErrInvalidEvent
	}

	ctx, cancel := h.eventContext()
	defer cancel()

	if err := h.revalidate(ctx, client); err != nil {
		return err
	}

	if _, err := h.messages.Authorize(ctx, ref.ConversationID, client.UserID); err != nil {
		return err
	}

	if h.hub.Join(client, websocket.ConversationGroup(ref.ConversationID)) {
		logger.Debug().
			Str("user_id", client.UserID.String()).
			Str("conversation_id", ref.ConversationID.String()).
			Msg("joined conversation")
	}
	return nil
}

func (h *SessionHandler) handleLeave(client *websocket.Client, ev *websocket.Event) error {
	var ref dto.ConversationRef
	if err := json.Unmarshal(ev.Data, &ref); err != nil {
		return websocket.ErrInvalidEvent
	}

	h.hub.Leave(client, websocket.ConversationGroup(ref.ConversationID))
	return nil
}

func (h *SessionHandler) handleSendMessage(client *websocket.Client, ev *websocket.Event) error {
	var payload dto.SendMessagePayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		return websocket.ErrInvalidEvent
	}

	if err := services.ValidateContent(payload.Content, h.messages.MaxLength()); err != nil {
		return err
	}

	ctx, cancel := h.eventContext()
	defer cancel()

	if err := h.revalidate(ctx, client); err != nil {
		return err
	}

	message, conv, err := h.messages.Send(ctx, payload.ConversationID, client.UserID, payload.Content)
	if err != nil {
		return err
	}
	metrics.RecordMessage("ws")

	if err := h.hub.Emit(websocket.ConversationGroup(conv.ID), websocket.EventNewMessage, dto.NewMessageResponse(message)); err != nil {
		return err
	}
	return h.hub.EmitGlobal(websocket.EventNewMessage, dto.ConversationTouchedEvent{ConversationID: conv.ID})
}

func (h *SessionHandler) handleTyping(client *websocket.Client, ev *websocket.Event) error {
	var payload dto.TypingPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		return websocket.ErrInvalidEvent
	}

	group := websocket.ConversationGroup(payload.ConversationID)
	if !client.InGroup(group) {
		return services.ErrNotParticipant
	}

	return h.hub.EmitExcept(group, websocket.EventUserTyping, dto.UserTypingEvent{
		UserID:         client.UserID,
		IsTyping:       payload.IsTyping,
		ConversationID: payload.ConversationID,
	}, client)
}

// revalidate checks the handshake token again so that a logout takes effect
// on open connections. Connections trusted by user id carry no token. Only a
// token that is invalid, revoked or bound to another user closes the
// connection; a failed lookup rejects the current event alone.
func (h *SessionHandler) revalidate(ctx context.Context, client *websocket.Client) error {
	if client.Token == "" || h.validator == nil {
		return nil
	}

	userID, err := h.validator.Validate(ctx, client.Token)
	switch {
	case err == nil && userID == client.UserID:
		return nil
	case err == nil, errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenRevoked):
		logger.Info().
			Str("client_id", client.ID.String()).
			Str("user_id", client.UserID.String()).
			Msg("session token no longer valid, closing connection")
		client.Terminate()
		return ErrSessionRevoked
	default:
		return fmt.Errorf("%w: %v", ErrSessionUnverified, err)
	}
}
