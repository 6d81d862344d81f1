package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names a realtime event on the wire.
type EventType string

const (
	// client -> server
	EventJoinConversation  EventType = "join-conversation"
	EventLeaveConversation EventType = "leave-conversation"
	EventSendMessage       EventType = "send-message"
	EventTyping            EventType = "typing"

	// server -> client
	EventNewMessage       EventType = "new-message"
	EventUserTyping       EventType = "user-typing"
	EventUserStatusChange EventType = "user-status-change"

	EventPing EventType = "ping"
	EventPong EventType = "pong"
)

// metricLabel bounds the event label to the known event names.
func (t EventType) metricLabel() string {
	switch t {
	case EventJoinConversation, EventLeaveConversation, EventSendMessage, EventTyping,
		EventNewMessage, EventUserTyping, EventUserStatusChange, EventPing, EventPong:
		return string(t)
	}
	return "unknown"
}

// Event is the envelope for every frame in both directions.
type Event struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Encode builds the wire form of an event.
func Encode(eventType EventType, payload interface{}) ([]byte, error) {
	ev := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		ev.Data = data
	}

	return json.Marshal(ev)
}

// UserGroup is the group holding every connection of one user.
func UserGroup(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// ConversationGroup is the group of connections viewing a conversation.
func ConversationGroup(conversationID uuid.UUID) string {
	return "conversation:" + conversationID.String()
}
